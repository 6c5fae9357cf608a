// internal/services/generation_service.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
	"github.com/InkMuseLab/InkMuseAI/internal/models"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// errUnknownDomain 未知内容域属于调用方错误，按校验错误报告
func errUnknownDomain(operation string, domain Domain) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("不支持%s的内容域: %s", operation, domain), nil)
}

// GenerationService 结构化生成管线对外的统一门面
// 每次调用相互独立、无共享可变状态，可无协调地并发执行；
// 管线自身不设超时，调用方通过ctx施加截止时间
type GenerationService struct {
	llm      *LLMService
	classify *ClassifyService
	meta     *MetaService
	script   *ScriptService
}

// NewGenerationService 创建生成门面
func NewGenerationService(llmService *LLMService) *GenerationService {
	return &GenerationService{
		llm:      llmService,
		classify: NewClassifyService(llmService),
		meta:     NewMetaService(llmService),
		script:   NewScriptService(llmService),
	}
}

// generateText 组装提示→流式生成→聚合为完整文本
// onFragment非空时对每个到达的片段回调（渐进式推送场景）
func (s *GenerationService) generateText(ctx context.Context, domain Domain, userInput, language, requestedModel string, onFragment func(string)) (string, error) {
	prompt := BuildPrompt(domain, userInput, language)

	fragments, err := s.llm.StreamText(ctx, requestedModel, prompt, "")
	if err != nil {
		return "", err
	}

	if onFragment == nil {
		return s.llm.CollectStream(fragments)
	}

	// 边聚合边向调用方推送片段
	var builder []byte
	for fragment := range fragments {
		if fragment.Text != "" {
			builder = append(builder, fragment.Text...)
			onFragment(fragment.Text)
		}
	}
	return string(builder), nil
}

// GenerateTimeline 生成并解析时间轴事件
// 提供商失败不向路由层抛出异常，而是降级为空记录列表
func (s *GenerationService) GenerateTimeline(ctx context.Context, userInput, language, requestedModel string) ([]models.TimelineEvent, ParseStats) {
	text, err := s.generateText(ctx, DomainTimeline, userInput, language, requestedModel, nil)
	if err != nil {
		utils.GetLogger().Error("时间轴生成失败，返回空列表", map[string]interface{}{"err": err})
		return []models.TimelineEvent{}, ParseStats{}
	}
	events, stats := ParseTimelineEvents(text)
	if events == nil {
		events = []models.TimelineEvent{}
	}
	return events, stats
}

// GenerateCouplets 生成并解析对联草稿
func (s *GenerationService) GenerateCouplets(ctx context.Context, userInput, language, requestedModel string) ([]models.CoupletDraft, ParseStats) {
	text, err := s.generateText(ctx, DomainCouplet, userInput, language, requestedModel, nil)
	if err != nil {
		utils.GetLogger().Error("对联生成失败，返回空列表", map[string]interface{}{"err": err})
		return []models.CoupletDraft{}, ParseStats{}
	}
	drafts, stats := ParseCoupletDrafts(text)
	if drafts == nil {
		drafts = []models.CoupletDraft{}
	}
	return drafts, stats
}

// GenerateComicPanels 生成并解析画格序列
func (s *GenerationService) GenerateComicPanels(ctx context.Context, userInput, language, requestedModel string) ([]models.Panel, ParseStats) {
	text, err := s.generateText(ctx, DomainComicPanel, userInput, language, requestedModel, nil)
	if err != nil {
		utils.GetLogger().Error("画格生成失败，返回空列表", map[string]interface{}{"err": err})
		return []models.Panel{}, ParseStats{}
	}
	panels, stats := ParseComicPanels(text)
	if panels == nil {
		panels = []models.Panel{}
	}
	return panels, stats
}

// GenerateRecords 按域分发的行式生成入口（供路由层统一调用）
func (s *GenerationService) GenerateRecords(ctx context.Context, domain Domain, userInput, language, requestedModel string) (interface{}, ParseStats, error) {
	switch domain {
	case DomainTimeline:
		records, stats := s.GenerateTimeline(ctx, userInput, language, requestedModel)
		return records, stats, nil
	case DomainCouplet:
		records, stats := s.GenerateCouplets(ctx, userInput, language, requestedModel)
		return records, stats, nil
	case DomainComicPanel:
		records, stats := s.GenerateComicPanels(ctx, userInput, language, requestedModel)
		return records, stats, nil
	default:
		return nil, ParseStats{}, errUnknownDomain("行式生成", domain)
	}
}

// GenerateRecordsStream 行式生成的渐进式变体：
// 每个到达的文本片段先经onFragment推送给调用方，完整文本仍照常解析
func (s *GenerationService) GenerateRecordsStream(ctx context.Context, domain Domain, userInput, language, requestedModel string, onFragment func(string)) (interface{}, ParseStats, error) {
	text, err := s.generateText(ctx, domain, userInput, language, requestedModel, onFragment)
	if err != nil {
		utils.GetLogger().Error("流式生成失败，返回空列表", map[string]interface{}{"err": err})
		text = ""
	}

	switch domain {
	case DomainTimeline:
		records, stats := ParseTimelineEvents(text)
		if records == nil {
			records = []models.TimelineEvent{}
		}
		return records, stats, nil
	case DomainCouplet:
		records, stats := ParseCoupletDrafts(text)
		if records == nil {
			records = []models.CoupletDraft{}
		}
		return records, stats, nil
	case DomainComicPanel:
		records, stats := ParseComicPanels(text)
		if records == nil {
			records = []models.Panel{}
		}
		return records, stats, nil
	default:
		return nil, ParseStats{}, errUnknownDomain("行式生成", domain)
	}
}

// Classify 分类入口，保证不失败（见ClassifyService）
func (s *GenerationService) Classify(ctx context.Context, userInput string, recordTexts []string, requestedModel string) models.ClassificationResult {
	return s.classify.Classify(ctx, userInput, recordTexts, requestedModel)
}

// QuickClassify 直接访问确定性回退分类（测试与离线场景）
func (s *GenerationService) QuickClassify(userInput string, recordTexts []string) models.ClassificationResult {
	return s.classify.QuickClassify(userInput, recordTexts)
}

// GenerateMeta 按域分发的元信息生成入口
// comic-meta域可能返回结构性失败，调用方应提示用户重新生成
func (s *GenerationService) GenerateMeta(ctx context.Context, domain Domain, userInput, language, requestedModel string) (interface{}, error) {
	switch domain {
	case DomainTimelineSummary:
		return s.meta.GenerateTimelineMeta(ctx, userInput, language, requestedModel)
	case DomainCoupletSet:
		return s.meta.GenerateCoupletSetMeta(ctx, userInput, language, requestedModel)
	case DomainComicMeta:
		return s.script.GenerateComicScript(ctx, userInput, language, requestedModel)
	default:
		return nil, errUnknownDomain("元信息生成", domain)
	}
}
