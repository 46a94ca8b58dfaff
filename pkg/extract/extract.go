// Package extract implements the optional LLM Extractor: a provider-agnostic
// (content, query) -> text stage run after cleaning. It answers a free-text
// query about already-cleaned page content — no JSON-schema structured
// output, no retry loop, since there's no validation step to retry against.
package extract

import (
	"context"
	"fmt"
)

// ProviderName identifies a configured LLM backend.
type ProviderName string

const (
	Anthropic        ProviderName = "anthropic"
	OpenAI           ProviderName = "openai"
	OpenAICompatible ProviderName = "openai-compatible"
)

// ExtractError reports that an extraction call failed. This is always
// non-fatal: the Scrape Orchestrator recovers by returning cleaned
// content annotated with the error.
type ExtractError struct {
	Cause error
}

func (e *ExtractError) Error() string { return fmt.Sprintf("extract: %v", e.Cause) }
func (e *ExtractError) Unwrap() error { return e.Cause }

// Result is the outcome of one extraction call.
type Result struct {
	Success bool
	Content string
	Error   string
}

// Provider performs LLM-backed text extraction against page content.
// Implementations are configured with temperature 0 and a fixed system
// prompt so that identical (content, query) pairs produce stable-enough
// output for caching.
type Provider interface {
	// Extract runs the configured model against content with the given
	// free-text query and returns the produced text. A non-nil error is
	// reserved for transport/auth failures; it is always wrapped in
	// *ExtractError so callers can recognize and recover from it.
	Extract(ctx context.Context, content, query string) (Result, error)

	// Name identifies the backend, e.g. "anthropic", "openai".
	Name() string
}

// systemPrompt is shared across providers so that extraction behavior does
// not vary by backend beyond the underlying model's own capability.
const systemPrompt = `You answer a query about the provided webpage content.

Respond with only the answer text, in plain prose or Markdown as appropriate.
Do not repeat the query, explain your reasoning, or add commentary.
If the content does not answer the query, say so briefly.`

// temperature is fixed at 0 across all providers so identical inputs
// produce stable-enough output to cache.
const temperature = 0.0

// maxTokens bounds extraction responses; callers needing larger extracts
// should narrow their query rather than requesting more output.
const maxTokens = 4096
