// internal/services/classify_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickClassify_WarKeyword(t *testing.T) {
	svc := NewClassifyService(nil)

	result := svc.QuickClassify("淝水之战是中国历史上著名的战争", nil)

	assert.Equal(t, "军事战争", result.Category.Name)
	assert.Equal(t, "military-war", result.Category.Slug)

	// 命中的分类名必须出现在标签里
	found := false
	for _, tag := range result.Tags {
		if tag.Name == "军事战争" {
			found = true
		}
	}
	assert.True(t, found, "分类名应作为标签返回")
}

func TestQuickClassify_Deterministic(t *testing.T) {
	svc := NewClassifyService(nil)
	records := []string{"贞观之治", "开元盛世"}

	first := svc.QuickClassify("唐朝历史", records)
	second := svc.QuickClassify("唐朝历史", records)

	assert.Equal(t, first, second)
}

func TestQuickClassify_TagCap(t *testing.T) {
	svc := NewClassifyService(nil)

	// 命中分类 + 全部跨领域标记，候选标签超过5个
	result := svc.QuickClassify("战争 古代 近代 现代 中国 世界 ancient modern china world", nil)

	assert.LessOrEqual(t, len(result.Tags), 5)
	assert.Len(t, result.Tags, 5)
}

func TestQuickClassify_DefaultCategory(t *testing.T) {
	svc := NewClassifyService(nil)

	result := svc.QuickClassify("zzzz qqqq xxxx", nil)

	assert.Equal(t, "ai-generated", result.Category.Slug)
	assert.Equal(t, "✨", result.Category.Icon)
	assert.Empty(t, result.Tags)
	assert.NotNil(t, result.Tags)
}

func TestQuickClassify_TieBreakDeclarationOrder(t *testing.T) {
	svc := NewClassifyService(nil)

	// "人物"命中历史人物，"战争"命中军事战争，各得1分，先声明者（历史人物）胜出
	result := svc.QuickClassify("人物 战争", nil)

	assert.Equal(t, "historical-figures", result.Category.Slug)
}

func TestClassify_Tier1Success(t *testing.T) {
	provider := &stubProvider{
		completeText: "好的，以下是分类结果：\n```json\n" +
			`{"category":{"name":"文化艺术","slug":"","description":"艺术相关内容","icon":"","color":"#6A1B9A","is_new":false},"tags":[{"name":"书法"},"绘画"]}` +
			"\n```",
	}
	svc := NewClassifyService(newStubLLMService(provider))

	result := svc.Classify(context.Background(), "王羲之的书法", []string{"兰亭序"}, "")

	assert.Equal(t, "文化艺术", result.Category.Name)
	// slug缺失时由名称确定性派生
	assert.NotEmpty(t, result.Category.Slug)
	// icon缺失时使用通用占位符
	assert.NotEmpty(t, result.Category.Icon)
	require.Len(t, result.Tags, 2)
	assert.Equal(t, "书法", result.Tags[0].Name)
	assert.Equal(t, "绘画", result.Tags[1].Name)
}

func TestClassify_ProviderErrorFallsBack(t *testing.T) {
	provider := &stubProvider{completeErr: errors.New("connection refused")}
	svc := NewClassifyService(newStubLLMService(provider))

	result := svc.Classify(context.Background(), "战争史", nil, "")

	assert.Equal(t, "military-war", result.Category.Slug)
}

func TestClassify_NeverFails(t *testing.T) {
	responses := []string{
		"",
		"这不是JSON",
		`{"category":{"name":"历史"}}`,            // 缺少tags键
		`{"tags":[{"name":"历史"}]}`,              // 缺少category键
		`{"category":{"name":""},"tags":[]}`,    // 分类名为空
		`{"category":"裸字符串","tags":[]}`,         // category形状错误
		strings.Repeat("{", 50),                 // 严重畸形
	}

	for _, response := range responses {
		provider := &stubProvider{completeText: response}
		svc := NewClassifyService(newStubLLMService(provider))

		result := svc.Classify(context.Background(), "科学发明", nil, "")

		assert.NotEmpty(t, result.Category.Name, "响应 %q 必须降级而非失败", response)
		assert.NotNil(t, result.Tags)
	}
}

func TestClassify_Tier1TagCapApplied(t *testing.T) {
	provider := &stubProvider{
		completeText: `{"category":{"name":"历史","slug":"history"},"tags":["a","b","c","d","e","f","g"]}`,
	}
	svc := NewClassifyService(newStubLLMService(provider))

	result := svc.Classify(context.Background(), "历史", nil, "")

	assert.Len(t, result.Tags, 5)
}

func TestClassify_BalancedBraceExtraction(t *testing.T) {
	// 响应前有带花括号的闲话时，提取以首个'{'起始的配平JSON子串
	provider := &stubProvider{
		completeText: `{"category":{"name":"神话传说","slug":"mythology-legend"},"tags":[{"name":"龙"}]} 以上是结果，{备注}不用理会`,
	}
	svc := NewClassifyService(newStubLLMService(provider))

	result := svc.Classify(context.Background(), "山海经", nil, "")

	assert.Equal(t, "mythology-legend", result.Category.Slug)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, "龙", result.Tags[0].Name)
}
