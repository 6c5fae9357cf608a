// internal/api/handlers.go
package api

import (
	"net/http"

	"github.com/InkMuseLab/InkMuseAI/internal/config"
	"github.com/InkMuseLab/InkMuseAI/internal/llm"
	"github.com/InkMuseLab/InkMuseAI/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers 路由处理器集合
type Handlers struct {
	generation *services.GenerationService
	llmService *services.LLMService
}

// NewHandlers 创建处理器集合
func NewHandlers(generation *services.GenerationService, llmService *services.LLMService) *Handlers {
	return &Handlers{
		generation: generation,
		llmService: llmService,
	}
}

// GenerateRecordsRequest 行式生成请求
type GenerateRecordsRequest struct {
	Domain   string `json:"domain" binding:"required"`
	Input    string `json:"input" binding:"required"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// GenerateRecords POST /api/generate/records
func (h *Handlers) GenerateRecords(c *gin.Context) {
	var req GenerateRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	records, stats, err := h.generation.GenerateRecords(
		c.Request.Context(), services.Domain(req.Domain), req.Input, req.Language, req.Model)
	if err != nil {
		FailWithError(c, err)
		return
	}

	Success(c, gin.H{
		"records": records,
		"stats":   stats,
	})
}

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	Input   string   `json:"input" binding:"required"`
	Records []string `json:"records"`
	Model   string   `json:"model"`
}

// Classify POST /api/classify
// 分类保证成功：模型路径失败时自动降级到关键词回退
func (h *Handlers) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result := h.generation.Classify(c.Request.Context(), req.Input, req.Records, req.Model)
	Success(c, result)
}

// GenerateMetaRequest 元信息生成请求
type GenerateMetaRequest struct {
	Domain   string `json:"domain" binding:"required"`
	Input    string `json:"input" binding:"required"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// GenerateMeta POST /api/generate/meta
// comic-meta域的结构性失败以422返回，前端应提示重新生成
func (h *Handlers) GenerateMeta(c *gin.Context) {
	var req GenerateMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	meta, err := h.generation.GenerateMeta(
		c.Request.Context(), services.Domain(req.Domain), req.Input, req.Language, req.Model)
	if err != nil {
		FailWithError(c, err)
		return
	}

	Success(c, meta)
}

// Providers GET /api/providers
func (h *Handlers) Providers(c *gin.Context) {
	providerList := llm.ListProviders()
	modelsByProvider := make(map[string][]string, len(providerList))
	for _, name := range providerList {
		modelsByProvider[name] = llm.GetSupportedModelsForProvider(name)
	}

	Success(c, gin.H{
		"providers": providerList,
		"models":    modelsByProvider,
		"ready":     h.llmService.IsReady(),
		"state":     h.llmService.GetReadyState(),
	})
}

// UpdateLLMSettingsRequest 提供商配置更新请求
type UpdateLLMSettingsRequest struct {
	Family string            `json:"family" binding:"required"`
	Config map[string]string `json:"config" binding:"required"`
}

// UpdateLLMSettings POST /api/settings/llm
// 先用新配置初始化提供商实例验证其可用，成功后再持久化；
// 初始化失败时既不切换提供商也不落盘
func (h *Handlers) UpdateLLMSettings(c *gin.Context) {
	var req UpdateLLMSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.llmService.UpdateProvider(req.Family, req.Config); err != nil {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := config.UpdateLLMConfig(req.Family, req.Config); err != nil {
		FailWithError(c, err)
		return
	}

	Success(c, gin.H{
		"family": req.Family,
		"ready":  h.llmService.IsReady(),
		"state":  h.llmService.GetReadyState(),
	}, "提供商配置已更新")
}

// LLMSettings GET /api/settings/llm
// 返回各提供商族的配置概览，密钥只回传是否已设置
func (h *Handlers) LLMSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()

	families := make(map[string]gin.H, len(cfg.LLMConfigs))
	for family, providerCfg := range cfg.LLMConfigs {
		families[family] = gin.H{
			"api_key_set":   providerCfg["api_key"] != "",
			"default_model": providerCfg["default_model"],
		}
	}

	Success(c, gin.H{
		"default_provider": cfg.DefaultProvider,
		"families":         families,
		"ready":            h.llmService.IsReady(),
	})
}

// Health GET /api/health
func (h *Handlers) Health(c *gin.Context) {
	Success(c, gin.H{
		"status":    "ok",
		"llm_ready": h.llmService.IsReady(),
	})
}
