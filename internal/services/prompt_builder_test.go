// internal/services/prompt_builder_test.go
package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_EmbedsUserInput(t *testing.T) {
	domains := []Domain{
		DomainTimeline, DomainTimelineSummary,
		DomainCouplet, DomainCoupletSet,
		DomainClassification, DomainGenericMeta,
		DomainComicMeta, DomainComicPanel,
	}

	for _, domain := range domains {
		prompt := BuildPrompt(domain, "丝绸之路的兴衰", "")
		assert.Contains(t, prompt, "丝绸之路的兴衰", "域 %s 必须原样嵌入用户输入", domain)
	}
}

func TestBuildPrompt_ProtocolPerDomainShape(t *testing.T) {
	linePrompt := BuildPrompt(DomainTimeline, "主题", "")
	assert.Contains(t, linePrompt, "每行一个独立的JSON对象")

	objectPrompt := BuildPrompt(DomainTimelineSummary, "主题", "")
	assert.Contains(t, objectPrompt, "必须是且仅是一个JSON对象")
	assert.NotContains(t, objectPrompt, "每行一个独立的JSON对象")
}

func TestBuildPrompt_LanguageDirective(t *testing.T) {
	// 显式指定语言
	prompt := BuildPrompt(DomainCouplet, "春节", "英文")
	assert.Contains(t, prompt, "必须使用英文书写")

	// 未指定时按输入文本推断
	inferred := BuildPrompt(DomainCouplet, "The rise and fall of the Silk Road", "")
	assert.Contains(t, inferred, "必须使用英文书写")

	chinese := BuildPrompt(DomainCouplet, "春节对联", "")
	assert.Contains(t, chinese, "必须使用中文书写")
}

func TestBuildPrompt_UnknownDomainFallsBack(t *testing.T) {
	prompt := BuildPrompt(Domain("unheard-of"), "某个主题", "")
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "某个主题")
	// 未知域按通用元信息处理，仍然是单对象协议
	assert.Contains(t, prompt, "必须是且仅是一个JSON对象")
}

func TestDomain_IsLineOriented(t *testing.T) {
	assert.True(t, DomainTimeline.IsLineOriented())
	assert.True(t, DomainCouplet.IsLineOriented())
	assert.True(t, DomainComicPanel.IsLineOriented())

	assert.False(t, DomainTimelineSummary.IsLineOriented())
	assert.False(t, DomainClassification.IsLineOriented())
	assert.False(t, DomainComicMeta.IsLineOriented())
}

func TestBuildPrompt_FieldSkeletons(t *testing.T) {
	timeline := BuildPrompt(DomainTimeline, "主题", "")
	for _, field := range []string{"startDate", "endDate", "description"} {
		assert.True(t, strings.Contains(timeline, field), "时间轴模板缺少字段 %s", field)
	}

	couplet := BuildPrompt(DomainCouplet, "主题", "")
	for _, field := range []string{"upperLine", "lowerLine", "horizontalScroll", "appreciation"} {
		assert.True(t, strings.Contains(couplet, field), "对联模板缺少字段 %s", field)
	}
}
