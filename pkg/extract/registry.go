package extract

import "fmt"

// New constructs the Provider named by cfg.Provider, validating required
// fields first.
func New(cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case Anthropic:
		return NewAnthropicProvider(cfg)
	case OpenAI, OpenAICompatible:
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}
