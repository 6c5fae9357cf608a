// internal/services/script_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
	"github.com/InkMuseLab/InkMuseAI/internal/models"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// ScriptService 漫画台本生成器
// 单次模型响应一次性解析出完整的四层树；树形不完整时报告
// 结构性失败，不做部分修复——半成品树不是合法结果
type ScriptService struct {
	llm *LLMService
}

// NewScriptService 创建台本服务
func NewScriptService(llmService *LLMService) *ScriptService {
	return &ScriptService{llm: llmService}
}

// GenerateComicScript 根据故事构思生成完整漫画台本
// 返回的错误可能是生成错误（提供商失败）或结构错误（树形不完整），
// 调用方应把结构错误呈现为"需要重新生成"，而非静默重试
func (s *ScriptService) GenerateComicScript(ctx context.Context, userInput, language, requestedModel string) (*models.ComicScript, error) {
	prompt := BuildPrompt(DomainComicMeta, userInput, language)

	resp, err := s.llm.CompleteMeta(ctx, requestedModel, prompt, "")
	if err != nil {
		return nil, err
	}

	script := &models.ComicScript{}
	if jsonErr := json.Unmarshal([]byte(cleanJSONString(resp.Text)), script); jsonErr != nil {
		return nil, apperrors.NewStructuralError("漫画台本响应无法解析为JSON", jsonErr)
	}

	if err := validateScriptTree(script); err != nil {
		return nil, err
	}

	sanitizeScript(script)
	return script, nil
}

// validateScriptTree 校验 volumes→episodes→pages→panels 四层全部存在且非空
func validateScriptTree(script *models.ComicScript) error {
	if len(script.Volumes) == 0 {
		return apperrors.NewStructuralError("漫画台本缺少卷", nil)
	}
	for vi, volume := range script.Volumes {
		if len(volume.Episodes) == 0 {
			return apperrors.NewStructuralError(
				fmt.Sprintf("第%d卷缺少话", vi+1), nil)
		}
		for ei, episode := range volume.Episodes {
			if len(episode.Pages) == 0 {
				return apperrors.NewStructuralError(
					fmt.Sprintf("第%d卷第%d话缺少页", vi+1, ei+1), nil)
			}
			for pi, page := range episode.Pages {
				if len(page.Panels) == 0 {
					return apperrors.NewStructuralError(
						fmt.Sprintf("第%d卷第%d话第%d页缺少画格", vi+1, ei+1, pi+1), nil)
				}
			}
		}
	}
	return nil
}

// sanitizeScript 字段级清洗：编号重排为从1开始的连续序列，
// 文本字段修剪与预算截断。编号重排属于字段规范化，不属于结构修复
func sanitizeScript(script *models.ComicScript) {
	script.Title = utils.TruncateText(strings.TrimSpace(script.Title), metaTitleBudget)
	script.Description = utils.TruncateText(strings.TrimSpace(script.Description), metaDescriptionBudget)

	for vi := range script.Volumes {
		volume := &script.Volumes[vi]
		volume.VolumeNumber = vi + 1
		volume.Title = strings.TrimSpace(volume.Title)

		for ei := range volume.Episodes {
			episode := &volume.Episodes[ei]
			episode.EpisodeNumber = ei + 1
			episode.Title = strings.TrimSpace(episode.Title)

			for pi := range episode.Pages {
				page := &episode.Pages[pi]
				page.PageNumber = pi + 1

				for ni := range page.Panels {
					panel := &page.Panels[ni]
					panel.PanelNumber = ni + 1
					panel.SceneDescription = strings.TrimSpace(panel.SceneDescription)
					panel.Dialogue = strings.TrimSpace(panel.Dialogue)
					panel.Narration = strings.TrimSpace(panel.Narration)
				}
			}
		}
	}
}
