// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// LLM相关配置：provider family -> 初始化参数
	DefaultProvider string                       `json:"default_provider"`
	LLMConfigs      map[string]map[string]string `json:"llm_configs"`
}

// Config 存储基础环境配置
type Config struct {
	Port       string
	DataDir    string
	LogDir     string
	DebugMode  bool
	QwenAPIKey string
	GLMAPIKey  string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:       getEnv("PORT", "8080"),
		DataDir:    getEnvPath("DATA_DIR", "data"),
		LogDir:     getEnvPath("LOG_DIR", "logs"),
		DebugMode:  getEnvBool("DEBUG_MODE", true),
		QwenAPIKey: getEnv("DASHSCOPE_API_KEY", ""),
		GLMAPIKey:  getEnv("ZHIPU_API_KEY", ""),
	}

	if config.QwenAPIKey == "" && config.GLMAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置任何模型提供商API密钥，生成功能将退化为确定性回退路径")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:            baseConfig.Port,
		DataDir:         baseConfig.DataDir,
		LogDir:          baseConfig.LogDir,
		DebugMode:       baseConfig.DebugMode,
		DefaultProvider: "qwen",
		LLMConfigs: map[string]map[string]string{
			"qwen": {
				"api_key":       baseConfig.QwenAPIKey,
				"default_model": "qwen-plus",
			},
			"glm": {
				"api_key":       baseConfig.GLMAPIKey,
				"default_model": "glm-4-air",
			},
		},
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置：保留文件中的LLM设置，但使用最新的基础配置
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				// 文件中没有API密钥时回填环境变量的密钥
				if savedConfig.LLMConfigs != nil {
					if qwenCfg := savedConfig.LLMConfigs["qwen"]; qwenCfg != nil && qwenCfg["api_key"] == "" {
						qwenCfg["api_key"] = baseConfig.QwenAPIKey
					}
					if glmCfg := savedConfig.LLMConfigs["glm"]; glmCfg != nil && glmCfg["api_key"] == "" {
						glmCfg["api_key"] = baseConfig.GLMAPIKey
					}
					currentConfig = &savedConfig
				}
			}
		}
	}

	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:            baseConfig.Port,
			DataDir:         baseConfig.DataDir,
			LogDir:          baseConfig.LogDir,
			DebugMode:       baseConfig.DebugMode,
			DefaultProvider: "qwen",
			LLMConfigs: map[string]map[string]string{
				"qwen": {"api_key": baseConfig.QwenAPIKey},
				"glm":  {"api_key": baseConfig.GLMAPIKey},
			},
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// GetProviderConfig 返回指定提供商族的配置
func GetProviderConfig(family string) map[string]string {
	cfg := GetCurrentConfig()
	if cfg.LLMConfigs == nil {
		return nil
	}
	return cfg.LLMConfigs[family]
}

// UpdateLLMConfig 更新指定提供商族的LLM配置
func UpdateLLMConfig(family string, providerConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	if currentConfig.LLMConfigs == nil {
		currentConfig.LLMConfigs = make(map[string]map[string]string)
	}
	currentConfig.LLMConfigs[family] = providerConfig

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
