package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestConfig_ValidateRequiresAPIKey(t *testing.T) {
	err := Config{Provider: Anthropic}.Validate()
	if err == nil {
		t.Fatal("expected error for missing apiKey")
	}
}

func TestConfig_ValidateOpenAICompatibleRequiresModelAndBaseURL(t *testing.T) {
	cases := []Config{
		{Provider: OpenAICompatible, APIKey: "k"},
		{Provider: OpenAICompatible, APIKey: "k", Model: "m"},
		{Provider: OpenAICompatible, APIKey: "k", APIBaseURL: "http://x"},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for incomplete config %+v", c)
		}
	}

	full := Config{Provider: OpenAICompatible, APIKey: "k", Model: "m", APIBaseURL: "http://x"}
	if err := full.Validate(); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}

func TestConfig_ValidateUnknownProvider(t *testing.T) {
	err := Config{Provider: "bogus", APIKey: "k"}.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNew_RejectsIncompleteOpenAICompatible(t *testing.T) {
	_, err := New(Config{Provider: OpenAICompatible, APIKey: "k"})
	if err == nil {
		t.Fatal("expected validation error before provider construction")
	}
}

func TestNew_BuildsAnthropicProvider(t *testing.T) {
	p, err := New(Config{Provider: Anthropic, APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("got name %q", p.Name())
	}
}

func TestNew_BuildsOpenAICompatibleProviderWithDistinctName(t *testing.T) {
	p, err := New(Config{Provider: OpenAICompatible, APIKey: "k", Model: "m", APIBaseURL: "http://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai-compatible" {
		t.Errorf("got name %q, want openai-compatible", p.Name())
	}
}

func TestNew_UnknownProviderRejected(t *testing.T) {
	_, err := New(Config{Provider: "bogus", APIKey: "k"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPrompt_IncludesQueryAndContent(t *testing.T) {
	got := prompt("page body", "what is the title?")
	if !strings.Contains(got, "what is the title?") || !strings.Contains(got, "page body") {
		t.Errorf("expected prompt to embed query and content, got %q", got)
	}
}

func TestExtractError_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &ExtractError{Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected message to mention cause, got %q", err.Error())
	}
}
