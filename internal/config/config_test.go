package config

import (
	"os"
	"strings"
	"testing"
)

func withEnv(t *testing.T, env map[string]string, fn func()) {
	t.Helper()
	for _, key := range envKeys {
		os.Unsetenv(key)
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	fn()
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	withEnv(t, nil, func() {
		cfg, warnings, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("expected no warnings, got %v", warnings)
		}
		if cfg.VendorEnabled() {
			t.Error("expected vendor disabled with no api key")
		}
		if cfg.ExtractorEnabled() {
			t.Error("expected extractor disabled with no provider")
		}
		if cfg.MapMaxResultsPerPage != defaultMaxResultsPerPage {
			t.Errorf("expected default maxResultsPerPage, got %d", cfg.MapMaxResultsPerPage)
		}
	})
}

func TestLoad_InvalidMaxResultsPerPageWarnsAndFallsBack(t *testing.T) {
	withEnv(t, map[string]string{"MAP_MAX_RESULTS_PER_PAGE": "50000"}, func() {
		cfg, warnings, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.MapMaxResultsPerPage != defaultMaxResultsPerPage {
			t.Errorf("expected fallback to default, got %d", cfg.MapMaxResultsPerPage)
		}
		if len(warnings) != 1 {
			t.Fatalf("expected exactly one warning, got %v", warnings)
		}
	})
}

func TestLoad_UnknownStorageBackendRejected(t *testing.T) {
	withEnv(t, map[string]string{"MCP_RESOURCE_STORAGE": "s3"}, func() {
		if _, _, err := Load(); err == nil {
			t.Error("expected an error for an unknown storage backend")
		}
	})
}

func TestLoad_FilesystemBackendRequiresRoot(t *testing.T) {
	withEnv(t, map[string]string{"MCP_RESOURCE_STORAGE": "filesystem"}, func() {
		_, _, err := Load()
		if err == nil || !strings.Contains(err.Error(), "MCP_RESOURCE_FILESYSTEM_ROOT") {
			t.Fatalf("expected a filesystem-root error, got %v", err)
		}
	})
}

func TestLoad_FilesystemBackendWithRootAccepted(t *testing.T) {
	withEnv(t, map[string]string{
		"MCP_RESOURCE_STORAGE":         "filesystem",
		"MCP_RESOURCE_FILESYSTEM_ROOT": "/tmp/pulse-fetch",
	}, func() {
		cfg, _, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.ResourceStorage != StorageFilesystem {
			t.Errorf("expected filesystem backend, got %q", cfg.ResourceStorage)
		}
	})
}

func TestLoad_UnknownLLMProviderRejected(t *testing.T) {
	withEnv(t, map[string]string{"LLM_PROVIDER": "ollama"}, func() {
		if _, _, err := Load(); err == nil {
			t.Error("expected an error for an unknown LLM provider")
		}
	})
}

func TestLoad_VendorAndExtractorEnabledFlags(t *testing.T) {
	withEnv(t, map[string]string{
		"VENDOR_API_KEY": "secret",
		"LLM_PROVIDER":   "anthropic",
		"LLM_API_KEY":    "secret",
	}, func() {
		cfg, _, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.VendorEnabled() || !cfg.ExtractorEnabled() {
			t.Errorf("expected both vendor and extractor enabled, got %+v", cfg)
		}
	})
}

func TestLoad_MapDefaultLanguagesSplitsCSV(t *testing.T) {
	withEnv(t, map[string]string{"MAP_DEFAULT_LANGUAGES": "en, fr,de"}, func() {
		cfg, _, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		want := []string{"en", "fr", "de"}
		if len(cfg.MapDefaultLanguages) != len(want) {
			t.Fatalf("expected %v, got %v", want, cfg.MapDefaultLanguages)
		}
		for i, w := range want {
			if cfg.MapDefaultLanguages[i] != w {
				t.Errorf("index %d: expected %q, got %q", i, w, cfg.MapDefaultLanguages[i])
			}
		}
	})
}
