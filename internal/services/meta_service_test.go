// internal/services/meta_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTimelineMeta_Success(t *testing.T) {
	provider := &stubProvider{
		completeText: `{"title":"丝绸之路","summary":"连接东西方的商路。","era":"汉唐","icon":"🐫","color":"#F9A825"}`,
	}
	svc := NewMetaService(newStubLLMService(provider))

	meta, err := svc.GenerateTimelineMeta(context.Background(), "丝绸之路的历史", "", "")
	require.NoError(t, err)

	assert.Equal(t, "丝绸之路", meta.Title)
	assert.Equal(t, "汉唐", meta.Era)
	assert.Equal(t, "🐫", meta.Icon)
}

func TestGenerateTimelineMeta_DefaultsAndTruncation(t *testing.T) {
	longSummary := strings.Repeat("很", 600)
	provider := &stubProvider{
		completeText: `{"title":"","summary":"` + longSummary + `"}`,
	}
	svc := NewMetaService(newStubLLMService(provider))

	meta, err := svc.GenerateTimelineMeta(context.Background(), "保底标题来源", "", "")
	require.NoError(t, err)

	// 标题为空时从输入派生
	assert.Equal(t, "保底标题来源", meta.Title)
	// 摘要按存储预算截断
	assert.Equal(t, metaSummaryBudget, len([]rune(meta.Summary)))
	// icon缺失时使用通用占位符
	assert.Equal(t, defaultMetaIcon, meta.Icon)
}

func TestGenerateTimelineMeta_MalformedJSONDegrades(t *testing.T) {
	provider := &stubProvider{completeText: "抱歉我不能输出JSON"}
	svc := NewMetaService(newStubLLMService(provider))

	meta, err := svc.GenerateTimelineMeta(context.Background(), "安史之乱", "", "")
	require.NoError(t, err, "响应畸形时就地降级，不得中断请求")

	assert.Equal(t, "安史之乱", meta.Title)
	assert.Equal(t, defaultMetaIcon, meta.Icon)
}

func TestGenerateTimelineMeta_ProviderErrorPropagates(t *testing.T) {
	provider := &stubProvider{completeErr: errors.New("upstream down")}
	svc := NewMetaService(newStubLLMService(provider))

	_, err := svc.GenerateTimelineMeta(context.Background(), "主题", "", "")
	assert.Error(t, err, "提供商传输错误必须向上传播")
}

func TestGenerateCoupletSetMeta_TagHintCap(t *testing.T) {
	provider := &stubProvider{
		completeText: `{"title":"春联集","description":"辞旧迎新","tag_hints":["a","b","c","d","e","f","g"]}`,
	}
	svc := NewMetaService(newStubLLMService(provider))

	meta, err := svc.GenerateCoupletSetMeta(context.Background(), "春节对联", "", "")
	require.NoError(t, err)

	assert.Equal(t, "春联集", meta.Title)
	assert.Len(t, meta.TagHints, 5)
	assert.Equal(t, defaultMetaIcon, meta.Icon)
}
