// internal/services/stub_provider_test.go
package services

import (
	"context"

	"github.com/InkMuseLab/InkMuseAI/internal/llm"
)

// stubProvider 测试替身：可编程的模型提供商
type stubProvider struct {
	name            string
	completeText    string
	completeErr     error
	streamFragments []string
	streamErr       error
	streamMidError  bool

	lastRequest llm.CompletionRequest
}

func (p *stubProvider) Initialize(config map[string]string) error { return nil }

func (p *stubProvider) GetName() string {
	if p.name == "" {
		return "Stub"
	}
	return p.name
}

func (p *stubProvider) GetSupportedModels() []string {
	return []string{"stub-model"}
}

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.lastRequest = req
	if p.completeErr != nil {
		return nil, p.completeErr
	}
	return &llm.CompletionResponse{
		Text:         p.completeText,
		FinishReason: "stop",
		ModelName:    req.Model,
		ProviderName: p.GetName(),
	}, nil
}

func (p *stubProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	p.lastRequest = req
	if p.streamErr != nil {
		return nil, p.streamErr
	}

	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		for _, fragment := range p.streamFragments {
			ch <- llm.StreamResponse{Text: fragment, ModelName: req.Model}
		}
		if p.streamMidError {
			ch <- llm.StreamResponse{Done: true, FinishReason: "error", ModelName: req.Model}
			return
		}
		ch <- llm.StreamResponse{Done: true, FinishReason: "stop", ModelName: req.Model}
	}()
	return ch, nil
}

// newStubLLMService 用替身提供商构造LLM服务
func newStubLLMService(p *stubProvider) *LLMService {
	return NewLLMServiceWithProvider("stub", p, []ModelRoute{
		{Family: "stub", Models: []string{"stub-model"}},
	})
}
