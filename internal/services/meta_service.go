// internal/services/meta_service.go
package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/InkMuseLab/InkMuseAI/internal/models"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// 元信息字段的存储预算
const (
	metaTitleBudget       = 80
	metaSummaryBudget     = 500
	metaDescriptionBudget = 500
)

// 缺失icon字段时的通用占位符
const defaultMetaIcon = "📝"

// MetaService 元信息生成器：时间轴摘要与对联集元信息
// 提供商传输错误向上传播；响应JSON畸形时就地降级为
// 由输入派生的保底元信息，不中断请求
type MetaService struct {
	llm *LLMService
}

// NewMetaService 创建元信息服务
func NewMetaService(llmService *LLMService) *MetaService {
	return &MetaService{llm: llmService}
}

// GenerateTimelineMeta 生成时间轴的标题/摘要元信息
func (s *MetaService) GenerateTimelineMeta(ctx context.Context, userInput, language, requestedModel string) (*models.TimelineMeta, error) {
	prompt := BuildPrompt(DomainTimelineSummary, userInput, language)

	resp, err := s.llm.CompleteMeta(ctx, requestedModel, prompt, "")
	if err != nil {
		return nil, err
	}

	meta := &models.TimelineMeta{}
	if jsonErr := json.Unmarshal([]byte(cleanJSONString(resp.Text)), meta); jsonErr != nil {
		utils.GetLogger().Warn("时间轴元信息解析失败，使用保底元信息", map[string]interface{}{
			"err": jsonErr,
		})
		meta = &models.TimelineMeta{
			Title:   utils.TruncateText(strings.TrimSpace(userInput), metaTitleBudget),
			Summary: "",
		}
	}

	sanitizeTimelineMeta(meta, userInput)
	return meta, nil
}

func sanitizeTimelineMeta(meta *models.TimelineMeta, userInput string) {
	meta.Title = utils.TruncateText(strings.TrimSpace(meta.Title), metaTitleBudget)
	if meta.Title == "" {
		meta.Title = utils.TruncateText(strings.TrimSpace(userInput), metaTitleBudget)
	}
	meta.Summary = utils.TruncateText(strings.TrimSpace(meta.Summary), metaSummaryBudget)
	meta.Era = strings.TrimSpace(meta.Era)
	if strings.TrimSpace(meta.Icon) == "" {
		meta.Icon = defaultMetaIcon
	}
}

// GenerateCoupletSetMeta 生成对联作品集的元信息
func (s *MetaService) GenerateCoupletSetMeta(ctx context.Context, userInput, language, requestedModel string) (*models.CoupletSetMeta, error) {
	prompt := BuildPrompt(DomainCoupletSet, userInput, language)

	resp, err := s.llm.CompleteMeta(ctx, requestedModel, prompt, "")
	if err != nil {
		return nil, err
	}

	meta := &models.CoupletSetMeta{}
	if jsonErr := json.Unmarshal([]byte(cleanJSONString(resp.Text)), meta); jsonErr != nil {
		utils.GetLogger().Warn("对联集元信息解析失败，使用保底元信息", map[string]interface{}{
			"err": jsonErr,
		})
		meta = &models.CoupletSetMeta{
			Title: utils.TruncateText(strings.TrimSpace(userInput), metaTitleBudget),
		}
	}

	sanitizeCoupletSetMeta(meta, userInput)
	return meta, nil
}

func sanitizeCoupletSetMeta(meta *models.CoupletSetMeta, userInput string) {
	meta.Title = utils.TruncateText(strings.TrimSpace(meta.Title), metaTitleBudget)
	if meta.Title == "" {
		meta.Title = utils.TruncateText(strings.TrimSpace(userInput), metaTitleBudget)
	}
	meta.Description = utils.TruncateText(strings.TrimSpace(meta.Description), metaDescriptionBudget)
	meta.Theme = strings.TrimSpace(meta.Theme)
	meta.CategoryHint = strings.TrimSpace(meta.CategoryHint)
	if strings.TrimSpace(meta.Icon) == "" {
		meta.Icon = defaultMetaIcon
	}

	// 标签提示同样遵守5个上限
	if len(meta.TagHints) > models.MaxClassificationTags {
		meta.TagHints = meta.TagHints[:models.MaxClassificationTags]
	}
}
