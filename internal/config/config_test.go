package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.Realm != "Timescope Private Access" {
		t.Errorf("default auth realm = %q", cfg.Auth.Realm)
	}
	if cfg.Extractor.URL != "http://localhost:8000/extract" {
		t.Errorf("default extractor URL = %q", cfg.Extractor.URL)
	}
	if cfg.Completion.Model != "sonar-pro" {
		t.Errorf("default completion model = %q", cfg.Completion.Model)
	}
	if cfg.Completion.MaxTokens != 2048 {
		t.Errorf("default max tokens = %d", cfg.Completion.MaxTokens)
	}
	if cfg.Completion.Temperature != 0.2 {
		t.Errorf("default temperature = %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.RandomSeed != 42 {
		t.Errorf("default random seed = %d", cfg.Completion.RandomSeed)
	}
	// Credentials have no defaults; the auth gate stays closed until set.
	if cfg.Auth.Username != "" || cfg.Auth.Password != "" {
		t.Errorf("credentials must default to empty, got %q/%q", cfg.Auth.Username, cfg.Auth.Password)
	}
	if cfg.Completion.APIKey != "" {
		t.Error("API key must default to empty")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("TIMESCOPE_API_KEY", "key-from-env")
	t.Setenv("AUTH_USERNAME", "analyst")
	t.Setenv("AUTH_PASSWORD", "secret")
	t.Setenv("EXTRACTOR_URL", "http://extractor.internal:9000/extract")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Completion.APIKey != "key-from-env" {
		t.Errorf("API key not bound from env: %q", cfg.Completion.APIKey)
	}
	if cfg.Auth.Username != "analyst" || cfg.Auth.Password != "secret" {
		t.Errorf("credentials not bound from env: %q/%q", cfg.Auth.Username, cfg.Auth.Password)
	}
	if cfg.Extractor.URL != "http://extractor.internal:9000/extract" {
		t.Errorf("extractor URL not bound from env: %q", cfg.Extractor.URL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port not bound from env: %d", cfg.Server.Port)
	}
}

func TestLoadFallbackAPIKeyVariable(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("PERPLEXITY_API_KEY", "legacy-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Completion.APIKey != "legacy-key" {
		t.Errorf("fallback API key variable not honored: %q", cfg.Completion.APIKey)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("PORT", "70000")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestLoadCachesConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("Load should return the cached instance")
	}
}
