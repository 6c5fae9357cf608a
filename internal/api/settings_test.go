// internal/api/settings_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InkMuseLab/InkMuseAI/internal/config"
	"github.com/InkMuseLab/InkMuseAI/internal/di"
	"github.com/InkMuseLab/InkMuseAI/internal/llm"
	"github.com/InkMuseLab/InkMuseAI/internal/services"
)

// recordedProvider 测试替身：记录初始化配置的提供商
type recordedProvider struct {
	config map[string]string
}

func (p *recordedProvider) Initialize(cfg map[string]string) error {
	if cfg["api_key"] == "" {
		return errors.New("api key required")
	}
	p.config = cfg
	return nil
}

func (p *recordedProvider) GetName() string { return "Recorded" }

func (p *recordedProvider) GetSupportedModels() []string { return []string{"recorded-1"} }

func (p *recordedProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Text: "{}", ProviderName: p.GetName()}, nil
}

func (p *recordedProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse)
	close(ch)
	return ch, nil
}

func init() {
	llm.Register("recorded", func() llm.Provider { return &recordedProvider{} })
}

func newSettingsTestRouter(t *testing.T) (*gin.Engine, *services.LLMService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// 隔离宿主环境的密钥，保证初始状态为未就绪
	t.Setenv("DASHSCOPE_API_KEY", "")
	t.Setenv("ZHIPU_API_KEY", "")
	require.NoError(t, config.InitConfig(t.TempDir()))

	llmService := services.NewLLMService()
	container := di.GetContainer()
	container.Register("llm", llmService)
	container.Register("generation", services.NewGenerationService(llmService))

	router, err := SetupRouter()
	require.NoError(t, err)
	return router, llmService
}

func postSettings(router *gin.Engine, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/settings/llm", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateLLMSettings_RegistersAndPersists(t *testing.T) {
	router, llmService := newSettingsTestRouter(t)

	w := postSettings(router, gin.H{
		"family": "recorded",
		"config": gin.H{"api_key": "secret", "default_model": "recorded-1"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, llmService.IsReady())

	// 配置已持久化到配置系统
	providerCfg := config.GetProviderConfig("recorded")
	require.NotNil(t, providerCfg)
	assert.Equal(t, "secret", providerCfg["api_key"])
}

func TestUpdateLLMSettings_UnknownFamily(t *testing.T) {
	router, _ := newSettingsTestRouter(t)

	w := postSettings(router, gin.H{
		"family": "no-such-family",
		"config": gin.H{"api_key": "k"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLLMSettings_ProviderInitFailureDoesNotPersist(t *testing.T) {
	router, llmService := newSettingsTestRouter(t)

	// recordedProvider要求api_key非空，初始化失败时不得切换也不得落盘
	w := postSettings(router, gin.H{
		"family": "recorded",
		"config": gin.H{"default_model": "recorded-1"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, llmService.IsReady())
	assert.Nil(t, config.GetProviderConfig("recorded"))
}

func TestUpdateLLMSettings_MissingFamily(t *testing.T) {
	router, _ := newSettingsTestRouter(t)

	w := postSettings(router, gin.H{"config": gin.H{"api_key": "k"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLLMSettings_MasksAPIKeys(t *testing.T) {
	router, _ := newSettingsTestRouter(t)

	postSettings(router, gin.H{
		"family": "recorded",
		"config": gin.H{"api_key": "secret", "default_model": "recorded-1"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/settings/llm", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// 密钥本身绝不回传
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), "api_key_set")
}
