package extract

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicModel is used when Config.Model is empty.
const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider extracts via the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider builds a Provider backed by Anthropic, using only
// the fields this package's Config exposes (no retry/base-URL override;
// APIBaseURL is not used by this provider).
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extract: anthropic requires apiKey")
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return string(Anthropic) }

func (p *AnthropicProvider) Extract(ctx context.Context, content, query string) (Result, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt(content, query))),
		},
	})
	if err != nil {
		return Result{}, &ExtractError{Cause: err}
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text = tb.Text
		}
	}
	return Result{Success: true, Content: text}, nil
}
