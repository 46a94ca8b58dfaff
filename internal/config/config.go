// Package config loads the module's configuration from environment
// variables. The core library has no config file or CLI flags of its
// own — those belong to whatever hosts it — so this is a pure
// environment-variable loader.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StorageBackend selects the Resource Store implementation.
type StorageBackend string

const (
	StorageMemory     StorageBackend = "memory"
	StorageFilesystem StorageBackend = "filesystem"
)

// SelectorMode is the Strategy Selector's default optimization target.
type SelectorMode string

const (
	OptimizeCost  SelectorMode = "cost"
	OptimizeSpeed SelectorMode = "speed"
)

const (
	defaultMaxResultsPerPage = 200
	minMaxResultsPerPage     = 1
	maxMaxResultsPerPage     = 5000
)

// Config is the fully resolved set of options the core accepts.
type Config struct {
	VendorAPIKey  string
	VendorBaseURL string

	ResourceStorage        StorageBackend `validate:"omitempty,oneof=memory filesystem"`
	ResourceFilesystemRoot string

	LLMProvider   string `validate:"omitempty,oneof=anthropic openai openai-compatible"`
	LLMAPIKey     string
	LLMModel      string
	LLMAPIBaseURL string

	OptimizeFor SelectorMode `validate:"omitempty,oneof=cost speed"`

	MapDefaultCountry    string
	MapDefaultLanguages  []string
	MapMaxResultsPerPage int
}

// VendorEnabled reports whether enough configuration is present to
// construct the Vendor Fetcher.
func (c Config) VendorEnabled() bool { return c.VendorAPIKey != "" }

// ExtractorEnabled reports whether enough configuration is present to
// construct the Extractor.
func (c Config) ExtractorEnabled() bool { return c.LLMProvider != "" }

var envKeys = []string{
	"VENDOR_API_KEY",
	"VENDOR_BASE_URL",
	"MCP_RESOURCE_STORAGE",
	"MCP_RESOURCE_FILESYSTEM_ROOT",
	"LLM_PROVIDER",
	"LLM_API_KEY",
	"LLM_MODEL",
	"LLM_API_BASE_URL",
	"OPTIMIZE_FOR",
	"MAP_DEFAULT_COUNTRY",
	"MAP_DEFAULT_LANGUAGES",
	"MAP_MAX_RESULTS_PER_PAGE",
}

// Load reads the process environment into a Config, applying the
// MAP_MAX_RESULTS_PER_PAGE soft-validation fallback (invalid ⇒ warn +
// default 200) and returning any such warnings alongside the result.
// It returns an error only for the hard-validation failures in Validate
// (unknown storage backend, unknown LLM provider, unknown selector
// mode, missing filesystem root when the filesystem backend is chosen).
func Load() (Config, []string, error) {
	v := viper.New()
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	cfg := Config{
		VendorAPIKey:           v.GetString("VENDOR_API_KEY"),
		VendorBaseURL:          v.GetString("VENDOR_BASE_URL"),
		ResourceStorage:        StorageBackend(v.GetString("MCP_RESOURCE_STORAGE")),
		ResourceFilesystemRoot: v.GetString("MCP_RESOURCE_FILESYSTEM_ROOT"),
		LLMProvider:            v.GetString("LLM_PROVIDER"),
		LLMAPIKey:              v.GetString("LLM_API_KEY"),
		LLMModel:               v.GetString("LLM_MODEL"),
		LLMAPIBaseURL:          v.GetString("LLM_API_BASE_URL"),
		OptimizeFor:            SelectorMode(v.GetString("OPTIMIZE_FOR")),
		MapDefaultCountry:      v.GetString("MAP_DEFAULT_COUNTRY"),
		MapDefaultLanguages:    splitCSV(v.GetString("MAP_DEFAULT_LANGUAGES")),
	}

	var warnings []string
	requested := v.GetInt("MAP_MAX_RESULTS_PER_PAGE")
	if requested == 0 {
		cfg.MapMaxResultsPerPage = defaultMaxResultsPerPage
	} else if requested < minMaxResultsPerPage || requested > maxMaxResultsPerPage {
		cfg.MapMaxResultsPerPage = defaultMaxResultsPerPage
		warnings = append(warnings, fmt.Sprintf("MAP_MAX_RESULTS_PER_PAGE=%d out of range [%d, %d]; using default %d", requested, minMaxResultsPerPage, maxMaxResultsPerPage, defaultMaxResultsPerPage))
	} else {
		cfg.MapMaxResultsPerPage = requested
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, err
	}
	return cfg, warnings, nil
}

var structValidator = validator.New()

// Validate reports hard-failure configuration errors: an unrecognized
// enum value, or a missing filesystem root when the filesystem backend
// is selected. Callers should exit non-zero on a non-nil error.
func (c Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ResourceStorage == StorageFilesystem && c.ResourceFilesystemRoot == "" {
		return fmt.Errorf("config: MCP_RESOURCE_FILESYSTEM_ROOT is required when MCP_RESOURCE_STORAGE=filesystem")
	}
	return nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
