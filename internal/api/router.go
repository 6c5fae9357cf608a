// internal/api/router.go
package api

import (
	"fmt"

	"github.com/InkMuseLab/InkMuseAI/internal/di"
	"github.com/InkMuseLab/InkMuseAI/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter 组装gin路由，服务实例从DI容器获取
func SetupRouter() (*gin.Engine, error) {
	container := di.GetContainer()

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok || llmService == nil {
		return nil, fmt.Errorf("llm服务未注册")
	}

	generationService, ok := container.Get("generation").(*services.GenerationService)
	if !ok || generationService == nil {
		return nil, fmt.Errorf("generation服务未注册")
	}

	handlers := NewHandlers(generationService, llmService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(CORSMiddleware())

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", handlers.Health)
		apiGroup.GET("/providers", handlers.Providers)
		apiGroup.POST("/generate/records", handlers.GenerateRecords)
		apiGroup.POST("/generate/meta", handlers.GenerateMeta)
		apiGroup.POST("/classify", handlers.Classify)

		settingsGroup := apiGroup.Group("/settings")
		{
			settingsGroup.GET("/llm", handlers.LLMSettings)
			settingsGroup.POST("/llm", handlers.UpdateLLMSettings)
		}
	}

	router.GET("/ws/generate", handlers.GenerateStream)

	return router, nil
}
