// internal/app/app.go
package app

import (
	"path/filepath"

	"github.com/InkMuseLab/InkMuseAI/internal/config"
	"github.com/InkMuseLab/InkMuseAI/internal/di"
	"github.com/InkMuseLab/InkMuseAI/internal/services"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"

	// 注册可用的模型提供商族
	_ "github.com/InkMuseLab/InkMuseAI/internal/llm/providers/glm"
	_ "github.com/InkMuseLab/InkMuseAI/internal/llm/providers/qwen"
)

// InitServices 按依赖顺序初始化所有服务并注册到DI容器
func InitServices() error {
	cfg := config.GetCurrentConfig()

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "inkmuse.log")); err != nil {
		return err
	}
	if cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	container := di.GetContainer()

	llmService := services.NewLLMService()
	container.Register("llm", llmService)

	generationService := services.NewGenerationService(llmService)
	container.Register("generation", generationService)

	utils.GetLogger().Info("服务初始化完成", map[string]interface{}{
		"llm_ready": llmService.IsReady(),
		"state":     llmService.GetReadyState(),
	})

	return nil
}
