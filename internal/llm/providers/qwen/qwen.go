// internal/llm/providers/qwen/qwen.go
package qwen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/InkMuseLab/InkMuseAI/internal/llm"
)

func init() {
	llm.Register("qwen", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"qwen-plus",
				"qwen-max",
				"qwen-turbo",
				"qwen2.5-72b-instruct",
			},
			baseURL: "https://dashscope.aliyuncs.com/api/v1",
		}
	})
}

type Provider struct {
	apiKey            string
	baseURL           string
	client            *http.Client
	defaultModel      string
	recommendedModels []string
	availableModels   []string
	region            string // 阿里云区域
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("通义千问(Qwen) API密钥未提供")
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "qwen-plus"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	if region, exists := config["region"]; exists && region != "" {
		p.region = region
	} else {
		p.region = "cn-beijing"
	}

	// 如果配置中包含自定义模型列表
	if customModels, exists := config["custom_models"]; exists && customModels != "" {
		var models []string
		if err := json.Unmarshal([]byte(customModels), &models); err == nil && len(models) > 0 {
			p.availableModels = models
		}
	}

	return nil
}

func (p *Provider) GetName() string {
	return "Qwen"
}

func (p *Provider) GetSupportedModels() []string {
	if len(p.availableModels) > 0 {
		return p.availableModels
	}
	return p.recommendedModels
}

// buildRequestBody 构建DashScope请求体
func (p *Provider) buildRequestBody(req llm.CompletionRequest, stream bool) (map[string]interface{}, string) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []map[string]string{
		{"role": "user", "content": req.Prompt},
	}
	if req.SystemPrompt != "" {
		messages = append([]map[string]string{
			{"role": "system", "content": req.SystemPrompt},
		}, messages...)
	}

	parameters := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if stream {
		parameters["incremental_output"] = true
	}
	if req.MaxTokens > 0 {
		parameters["max_tokens"] = req.MaxTokens
	}
	if req.TopP > 0 {
		parameters["top_p"] = req.TopP
	}
	if len(req.StopWords) > 0 {
		parameters["stop"] = req.StopWords
	}
	for k, v := range req.ExtraParams {
		parameters[k] = v
	}

	return map[string]interface{}{
		"model": model,
		"input": map[string]interface{}{
			"messages": messages,
		},
		"parameters": parameters,
	}, model
}

func (p *Provider) newRequest(ctx context.Context, body map[string]interface{}, sse bool) (*http.Request, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/services/aigc/text-generation/generation",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("X-DashScope-Region", p.region)
	if sse {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("X-DashScope-SSE", "enable")
	}

	return httpReq, nil
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	requestBody, model := p.buildRequestBody(req, false)

	httpReq, err := p.newRequest(ctx, requestBody, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("通义千问(Qwen) API错误(%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		RequestID string `json:"request_id"`
		Output    struct {
			Text    string `json:"text"`
			Choices []struct {
				Message struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"message"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	// 使用output.text或choices[0].message.content
	text := response.Output.Text
	finishReason := ""
	if len(response.Output.Choices) > 0 {
		finishReason = response.Output.Choices[0].FinishReason
		if text == "" {
			text = response.Output.Choices[0].Message.Content
		}
	}

	if text == "" {
		return nil, errors.New("通义千问(Qwen)未返回任何结果")
	}

	return &llm.CompletionResponse{
		Text:         text,
		FinishReason: finishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}

// StreamCompletion 实现流式响应
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	requestBody, model := p.buildRequestBody(req, true)

	httpReq, err := p.newRequest(ctx, requestBody, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, fmt.Errorf("通义千问(Qwen) API错误(%d): %s", httpResp.StatusCode, string(body))
	}

	respChan := make(chan llm.StreamResponse)

	go func() {
		defer httpResp.Body.Close()
		defer close(respChan)

		reader := bufio.NewReader(httpResp.Body)
		var contentBuffer strings.Builder

		for {
			select {
			case <-ctx.Done():
				return
			default:
				line, err := reader.ReadString('\n')
				if err != nil {
					if err != io.EOF {
						respChan <- llm.StreamResponse{
							Text:         "",
							FinishReason: "error",
							ModelName:    model,
							Done:         true,
						}
					}
					return
				}

				line = strings.TrimSpace(line)

				// 空行或注释
				if line == "" || strings.HasPrefix(line, ":") {
					continue
				}

				line = strings.TrimPrefix(line, "data: ")

				var streamResp struct {
					Output struct {
						Text    string `json:"text"`
						Choices []struct {
							FinishReason string `json:"finish_reason"`
							Message      struct {
								Content string `json:"content"`
							} `json:"message"`
						} `json:"choices"`
					} `json:"output"`
				}

				if err := json.Unmarshal([]byte(line), &streamResp); err != nil {
					continue
				}

				content := streamResp.Output.Text
				if content == "" && len(streamResp.Output.Choices) > 0 {
					content = streamResp.Output.Choices[0].Message.Content
				}

				if content != "" {
					// incremental_output开启时为增量文本，直接透传；
					// 个别模型仍返回全量文本，需要截取增量部分
					delta := content
					if strings.HasPrefix(content, contentBuffer.String()) && contentBuffer.Len() > 0 {
						delta = content[contentBuffer.Len():]
					}
					if delta != "" {
						contentBuffer.WriteString(delta)
						respChan <- llm.StreamResponse{
							Text:      delta,
							ModelName: model,
							Done:      false,
						}
					}
				}

				if len(streamResp.Output.Choices) > 0 && streamResp.Output.Choices[0].FinishReason != "" &&
					streamResp.Output.Choices[0].FinishReason != "null" {
					respChan <- llm.StreamResponse{
						Text:         "",
						FinishReason: streamResp.Output.Choices[0].FinishReason,
						ModelName:    model,
						Done:         true,
					}
					return
				}
			}
		}
	}()

	return respChan, nil
}
