package extract

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultOpenAIModel is used when Config.Model is empty and the provider is
// plain "openai" (not openai-compatible, which always requires a model).
const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider extracts via the OpenAI Chat Completions API. It also
// serves Config.Provider == OpenAICompatible, since any OpenAI-compatible
// endpoint is reached the same way with a custom BaseURL; that variant
// always requires both Model and APIBaseURL.
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
}

// NewOpenAIProvider builds a Provider backed by OpenAI or an
// OpenAI-compatible endpoint. cfg.Validate must be called by the caller
// (the registry does this) before construction.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extract: openai requires apiKey")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	name := string(OpenAI)
	if cfg.Provider == OpenAICompatible {
		name = string(OpenAICompatible)
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
		name:   name,
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Extract(ctx context.Context, content, query string) (Result, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt(content, query)),
		},
	})
	if err != nil {
		return Result{}, &ExtractError{Cause: err}
	}
	if len(resp.Choices) == 0 {
		return Result{}, &ExtractError{Cause: fmt.Errorf("no choices returned")}
	}
	return Result{Success: true, Content: resp.Choices[0].Message.Content}, nil
}
