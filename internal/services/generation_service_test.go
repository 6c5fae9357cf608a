// internal/services/generation_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
)

func TestGenerateTimeline_EndToEnd(t *testing.T) {
	provider := &stubProvider{streamFragments: []string{
		`{"startDate":"1405","endDate":"1433",`,
		`"description":"郑和七下西洋"}` + "\n",
		`@1492@哥伦布抵达美洲` + "\n",
		"这一行不是记录\n",
	}}
	svc := NewGenerationService(newStubLLMService(provider))

	events, stats := svc.GenerateTimeline(context.Background(), "大航海时代", "", "")
	require.Len(t, events, 2)
	assert.Equal(t, "1405", events[0].StartDate)
	assert.Equal(t, "哥伦布抵达美洲", events[1].Description)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 1, stats.Dropped)
}

func TestGenerateTimeline_ProviderErrorYieldsEmptyList(t *testing.T) {
	provider := &stubProvider{streamErr: errors.New("connection refused")}
	svc := NewGenerationService(newStubLLMService(provider))

	events, stats := svc.GenerateTimeline(context.Background(), "主题", "", "")
	// 行式生成对路由层不抛异常，降级为空列表
	require.NotNil(t, events)
	assert.Empty(t, events)
	assert.Zero(t, stats.Parsed)
}

func TestGenerateCouplets_EndToEnd(t *testing.T) {
	provider := &stubProvider{streamFragments: []string{
		`{"upperLine":"爆竹声中一岁除","lowerLine":"春风送暖入屠苏"}` + "\n",
	}}
	svc := NewGenerationService(newStubLLMService(provider))

	drafts, stats := svc.GenerateCouplets(context.Background(), "春节", "", "")
	require.Len(t, drafts, 1)
	assert.Equal(t, "爆竹声中一岁除", drafts[0].UpperLine)
	assert.Equal(t, 1, stats.Parsed)
}

func TestGenerateRecords_UnknownDomain(t *testing.T) {
	svc := NewGenerationService(newStubLLMService(&stubProvider{}))

	_, _, err := svc.GenerateRecords(context.Background(), DomainClassification, "输入", "", "")
	assert.Error(t, err)
}

func TestGenerateRecordsStream_ForwardsFragments(t *testing.T) {
	provider := &stubProvider{streamFragments: []string{
		`{"startDate":"2008",`,
		`"description":"北京奥运会"}` + "\n",
	}}
	svc := NewGenerationService(newStubLLMService(provider))

	var forwarded []string
	records, stats, err := svc.GenerateRecordsStream(
		context.Background(), DomainTimeline, "奥运", "", "",
		func(fragment string) { forwarded = append(forwarded, fragment) })
	require.NoError(t, err)

	// 片段按到达顺序原样透传
	assert.Equal(t, provider.streamFragments, forwarded)
	assert.Equal(t, 1, stats.Parsed)
	assert.NotNil(t, records)
}

func TestGenerateRecordsStream_ErrorYieldsEmptyList(t *testing.T) {
	provider := &stubProvider{streamErr: errors.New("boom")}
	svc := NewGenerationService(newStubLLMService(provider))

	records, stats, err := svc.GenerateRecordsStream(
		context.Background(), DomainCouplet, "主题", "", "", func(string) {})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Zero(t, stats.Parsed)
}

func TestGenerationService_ClassifyDelegates(t *testing.T) {
	provider := &stubProvider{completeErr: errors.New("offline")}
	svc := NewGenerationService(newStubLLMService(provider))

	result := svc.Classify(context.Background(), "第二次世界大战中的重大战役", nil, "")
	assert.Equal(t, "military-war", result.Category.Slug)
}

func TestGenerateMeta_UnknownDomainIsValidationError(t *testing.T) {
	svc := NewGenerationService(newStubLLMService(&stubProvider{}))

	_, err := svc.GenerateMeta(context.Background(), Domain("timeline"), "输入", "", "")
	require.Error(t, err)
	// 未知域是调用方错误，必须携带校验错误类型供路由层映射400
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGenerateRecords_UnknownDomainIsValidationError(t *testing.T) {
	svc := NewGenerationService(newStubLLMService(&stubProvider{}))

	_, _, err := svc.GenerateRecords(context.Background(), Domain("comic-meta"), "输入", "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}
