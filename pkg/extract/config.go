package extract

import "fmt"

// Config configures a Provider. Required fields vary by Provider:
// APIKey is always required; Model and APIBaseURL are required only
// for openai-compatible (otherwise each provider has its own default).
type Config struct {
	Provider   ProviderName
	APIKey     string
	Model      string
	APIBaseURL string
}

// Validate rejects an openai-compatible config that omits either Model
// or APIBaseURL.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("extract: apiKey is required")
	}
	switch c.Provider {
	case Anthropic, OpenAI:
		return nil
	case OpenAICompatible:
		if c.Model == "" || c.APIBaseURL == "" {
			return fmt.Errorf("extract: openai-compatible provider requires both model and apiBaseUrl")
		}
		return nil
	default:
		return fmt.Errorf("extract: unknown provider %q", c.Provider)
	}
}
