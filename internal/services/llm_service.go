// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/InkMuseLab/InkMuseAI/internal/config"
	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
	"github.com/InkMuseLab/InkMuseAI/internal/llm"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

var ErrLLMNotReady = errors.New("llm service not ready")

// 元信息/分类类调用的token预算上限；
// 行式生成（事件/对联/画格条数不定）不设上限
const metaMaxTokens = 4000

// ModelRoute 将一组已知模型标识映射到一个提供商族
// 路由表按声明顺序匹配，首个命中生效
type ModelRoute struct {
	Family string
	Models []string
}

// DefaultModelRoutes 默认路由表：先检查GLM族，再检查Qwen族
var DefaultModelRoutes = []ModelRoute{
	{
		Family: "glm",
		Models: []string{
			"glm-4", "glm-4-plus", "glm-4-air", "glm-4-flash", "glm-3-turbo",
		},
	},
	{
		Family: "qwen",
		Models: []string{
			"qwen-plus", "qwen-max", "qwen-turbo",
			"qwen2.5-72b-instruct", "qwen2.5-14b-instruct",
		},
	},
}

// 未知模型标识时的硬编码默认族/模型
const (
	defaultFamily = "qwen"
	defaultModel  = "qwen-plus"
)

// LLMService 提供统一的大语言模型调用接口：
// 模型标识路由、流式聚合、响应缓存
type LLMService struct {
	providerMutex sync.RWMutex
	providers     map[string]llm.Provider // family -> provider
	routes        []ModelRoute
	cache         *LLMCache
	readyState    string
}

// LLMCache 带过期时间的内存响应缓存
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

// CacheEntry 单条缓存项
type CacheEntry struct {
	Response  *llm.CompletionResponse
	CreatedAt time.Time
}

// NewLLMService 从当前配置创建LLM服务
// 未配置密钥的提供商族跳过，全部缺失时服务进入未就绪状态
func NewLLMService() *LLMService {
	service := newBaseLLMService(DefaultModelRoutes)

	cfg := config.GetCurrentConfig()
	if cfg == nil || cfg.LLMConfigs == nil {
		service.readyState = "Failed to retrieve configuration"
		return service
	}

	for family, providerCfg := range cfg.LLMConfigs {
		if providerCfg == nil || providerCfg["api_key"] == "" {
			continue
		}
		provider, err := llm.GetProvider(family, providerCfg)
		if err != nil {
			utils.GetLogger().Warn("初始化模型提供商失败", map[string]interface{}{
				"family": family, "err": err,
			})
			continue
		}
		service.providers[family] = provider
	}

	if len(service.providers) == 0 {
		service.readyState = "No provider configured"
	} else {
		service.readyState = "Ready"
	}

	return service
}

// NewLLMServiceWithProvider 使用显式提供商和路由表创建服务（测试替身入口）
func NewLLMServiceWithProvider(family string, provider llm.Provider, routes []ModelRoute) *LLMService {
	service := newBaseLLMService(routes)
	service.providers[family] = provider
	service.readyState = "Ready"
	return service
}

func newBaseLLMService(routes []ModelRoute) *LLMService {
	if len(routes) == 0 {
		routes = DefaultModelRoutes
	}
	return &LLMService{
		providers:  make(map[string]llm.Provider),
		routes:     routes,
		readyState: "Uninitialized",
		cache: &LLMCache{
			cache:      make(map[string]*CacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return len(s.providers) > 0
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// UpdateProvider 更新指定族的提供商实例
func (s *LLMService) UpdateProvider(family string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(family, providerConfig)
	if err != nil {
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.providers[family] = provider
	s.readyState = "Ready"

	// 提供商切换后缓存失效
	s.cache = &LLMCache{
		cache:      make(map[string]*CacheEntry),
		expiration: 30 * time.Minute,
	}

	return nil
}

// ResolveRoute 将请求的模型标识解析为(提供商族, 模型)
// 路由表按顺序匹配；未知标识回落到默认族/默认模型，永不报错
func (s *LLMService) ResolveRoute(requestedModel string) (string, string) {
	model := strings.TrimSpace(requestedModel)
	if model == "" {
		return defaultFamily, defaultModel
	}

	for _, route := range s.routes {
		for _, known := range route.Models {
			if model == known {
				return route.Family, model
			}
		}
	}

	utils.GetLogger().Debug("未知模型标识，使用默认路由", map[string]interface{}{
		"requested": model, "family": defaultFamily, "model": defaultModel,
	})
	return defaultFamily, defaultModel
}

// providerFor 获取指定族的提供商实例
func (s *LLMService) providerFor(family string) (llm.Provider, error) {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if provider, ok := s.providers[family]; ok {
		return provider, nil
	}

	// 目标族未配置时，退而使用任意可用提供商
	for fallbackFamily, provider := range s.providers {
		utils.GetLogger().Warn("目标提供商族未配置，使用可用提供商", map[string]interface{}{
			"requested": family, "using": fallbackFamily,
		})
		return provider, nil
	}

	return nil, apperrors.NewGenerationError(
		fmt.Sprintf("模型提供商未就绪: %s", s.readyState), ErrLLMNotReady)
}

// StreamText 按路由结果发起流式生成
// 初始网络调用失败作为生成错误向上传播
func (s *LLMService) StreamText(ctx context.Context, requestedModel, prompt, systemPrompt string) (<-chan llm.StreamResponse, error) {
	family, model := s.ResolveRoute(requestedModel)

	provider, err := s.providerFor(family)
	if err != nil {
		return nil, err
	}

	req := llm.CompletionRequest{
		Model:        model,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
	}

	ch, err := provider.StreamCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.NewGenerationError("流式生成请求失败", err)
	}
	return ch, nil
}

// CollectStream 将流式片段按到达顺序聚合为完整文本
// 内部不设超时，调用方负责通过ctx施加截止时间；
// 流中途出错时返回已缓冲的部分文本，仅在毫无内容时报错
func (s *LLMService) CollectStream(fragments <-chan llm.StreamResponse) (string, error) {
	var builder strings.Builder
	sawError := false

	for fragment := range fragments {
		if fragment.Text != "" {
			builder.WriteString(fragment.Text)
		}
		if fragment.Done && fragment.FinishReason == "error" {
			sawError = true
		}
	}

	if sawError && builder.Len() == 0 {
		return "", apperrors.NewGenerationError("流式响应中断且无任何内容", nil)
	}

	return builder.String(), nil
}

// CompleteMeta 发起一次有token预算约束的元信息/分类调用
func (s *LLMService) CompleteMeta(ctx context.Context, requestedModel, prompt, systemPrompt string) (*llm.CompletionResponse, error) {
	family, model := s.ResolveRoute(requestedModel)

	provider, err := s.providerFor(family)
	if err != nil {
		return nil, err
	}

	cacheKey := s.generateCacheKey(prompt, systemPrompt, family+"/"+model)
	if cached := s.cache.get(cacheKey); cached != nil {
		utils.GetLogger().Debug("LLM缓存命中", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
		return cached, nil
	}

	req := llm.CompletionRequest{
		Model:        model,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  0.3,
		MaxTokens:    metaMaxTokens,
	}

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, apperrors.NewGenerationError("元信息生成请求失败", err)
	}

	s.cache.set(cacheKey, resp)
	return resp, nil
}

// generateCacheKey 生成缓存键
func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s", prompt, systemPrompt, model)
	h := md5.New()
	h.Write([]byte(hashInput))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *LLMCache) get(key string) *llm.CompletionResponse {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, found := c.cache[key]
	if !found || time.Since(entry.CreatedAt) > c.expiration {
		return nil
	}
	return entry.Response
}

func (c *LLMCache) set(key string, response *llm.CompletionResponse) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{
		Response:  response,
		CreatedAt: time.Now(),
	}
}

// ---------------------------------------------------------------
// 模型输出JSON清洗：剥除Markdown围栏与噪声、规范全角标点、
// 用括号深度扫描截取首个配平的JSON值

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\uFEFF", "",
	" ", " ",
	" ", "\n",
	" ", "\n",
)

var structuralPunctuationMap = map[rune]rune{
	'：': ':',
	'﹕': ':',
	'，': ',',
	'﹐': ',',
	'；': ';',
	'﹔': ';',
	'【': '[',
	'】': ']',
	'［': '[',
	'］': ']',
	'｛': '{',
	'｝': '}',
	'（': '(',
	'）': ')',
}

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'”': '”',
	'„': '”',
	'‟': '”',
	'「': '」',
	'」': '」',
	'『': '』',
	'﹁': '﹂',
	'﹂': '﹂',
}

func normalizeJSONStructure(s string) string {
	if s == "" {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))
	inString := false
	escaped := false
	currentClosing := '"'

	for _, r := range s {
		if inString {
			if !escaped && r == '\\' {
				escaped = true
				builder.WriteRune(r)
				continue
			}

			if escaped {
				escaped = false
				builder.WriteRune(r)
				continue
			}

			if r == currentClosing || r == '"' {
				inString = false
				currentClosing = '"'
				builder.WriteRune('"')
				continue
			}

			builder.WriteRune(r)
			continue
		}

		if replacement, ok := structuralPunctuationMap[r]; ok {
			r = replacement
		} else if closing, ok := quotePairs[r]; ok {
			inString = true
			currentClosing = closing
			builder.WriteRune('"')
			continue
		} else if r == '"' {
			inString = true
			currentClosing = '"'
			builder.WriteRune(r)
			continue
		} else if r > unicode.MaxASCII && !unicode.IsSpace(r) {
			// 丢弃出现在字符串外的异常Unicode字符（例如 æ、• 等）
			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	// 统一替换常见的噪声、全角符号以及Markdown标记
	s = jsonNoiseReplacer.Replace(s)
	s = strings.TrimSpace(s)

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '​', '‌', '‍', '⁠', '\uFEFF':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// 查找第一个 { 或 [，将其之前的内容全部丢弃
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}

	s = strings.TrimSpace(s[start:])
	if s == "" {
		return s
	}

	// 规范化JSON结构所需的标点符号，移除字符串外的异常字符
	s = normalizeJSONStructure(s)

	isArray := len(s) > 0 && s[0] == '['

	// 括号深度计数，截取首个配平的JSON值
	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if isArray {
				if char == '[' {
					balance++
				} else if char == ']' {
					balance--
				}
			} else {
				if char == '{' {
					balance++
				} else if char == '}' {
					balance--
				}
			}

			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 没找到配平的结束符时回退到最后一个结束符
	end := -1
	if isArray {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}

	if end != -1 {
		return strings.TrimSpace(s[:end+1])
	}

	return strings.TrimSpace(s)
}
