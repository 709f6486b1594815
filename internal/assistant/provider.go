package assistant

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider talks to any OpenAI-compatible completion endpoint. A custom
// base URL covers local runtimes that speak the same protocol.
type OpenAIProvider struct {
	llm   llms.Model
	model string
}

func NewOpenAIProvider(token, model, baseURL string) (*OpenAIProvider, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIProvider{llm: llm, model: model}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, p.llm, prompt,
		llms.WithTemperature(0.2),
	)
}

func (p *OpenAIProvider) Model() string {
	return p.model
}
