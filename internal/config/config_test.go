package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
	"github.com/TobiSchelling/FeedbackLens/internal/llm"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Annotation.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Annotation.Provider)
	}
	if cfg.Annotation.MinCommentChars != 8 {
		t.Errorf("expected min_comment_chars 8, got %d", cfg.Annotation.MinCommentChars)
	}
	if cfg.Annotation.VerifyTerms {
		t.Error("expected verify_terms off by default")
	}
	if !reflect.DeepEqual(cfg.Aspects(), feedback.DefaultAspects) {
		t.Errorf("expected full taxonomy, got %v", cfg.Aspects())
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
annotation:
  provider: openai
  model: gpt-4o-mini
  aspects: [Knowledge, Behavior]
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Annotation.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Annotation.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Annotation.TimeoutSeconds != 120 {
		t.Errorf("expected default timeout, got %d", cfg.Annotation.TimeoutSeconds)
	}
	if !reflect.DeepEqual(cfg.Aspects(), []string{"Knowledge", "Behavior"}) {
		t.Errorf("unexpected aspects %v", cfg.Aspects())
	}
}

func TestProviderEndpointDefaults(t *testing.T) {
	t.Setenv("TEST_FEEDBACKLENS_KEY", "sk-test")

	for _, provider := range []string{"openai", "anthropic"} {
		cfg, err := parse([]byte("annotation:\n  provider: " + provider + "\n  api_key_env: TEST_FEEDBACKLENS_KEY\n"))
		if err != nil {
			t.Fatalf("parse %s: %v", provider, err)
		}
		if got := cfg.LLM().EndpointURL; got != "" {
			t.Errorf("%s: expected empty endpoint so the provider default applies, got %q", provider, got)
		}
	}

	cfg, err := parse([]byte("annotation:\n  provider: openai\n  api_key_env: TEST_FEEDBACKLENS_KEY\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	client, err := llm.New(cfg.LLM())
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}
	openai, ok := client.(*llm.OpenAIClient)
	if !ok {
		t.Fatalf("expected *llm.OpenAIClient, got %T", client)
	}
	if openai.BaseURL != "https://api.openai.com" {
		t.Errorf("expected OpenAI endpoint, got %q", openai.BaseURL)
	}

	def, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("parse default: %v", err)
	}
	if def.Annotation.EndpointURL != "" {
		t.Errorf("default config should leave endpoint_url empty, got %q", def.Annotation.EndpointURL)
	}
}

func TestParseRejectsUnknownAspect(t *testing.T) {
	if _, err := parse([]byte("annotation:\n  aspects: [Punctuality]\n")); err == nil {
		t.Error("expected error for unknown aspect")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Annotation.Model == "" {
		t.Error("expected model to be populated from file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEEDBACKLENS_ENDPOINT_URL", "http://gpu-box:11434")
	t.Setenv("FEEDBACKLENS_MODEL", "mistral")
	t.Setenv("FEEDBACKLENS_TIMEOUT_SECONDS", "30")
	t.Setenv("FEEDBACKLENS_VERIFY_TERMS", "true")

	cfg := Default()
	if cfg.Annotation.EndpointURL != "http://gpu-box:11434" || cfg.Annotation.Model != "mistral" {
		t.Errorf("env overrides not applied: %+v", cfg.Annotation)
	}
	if cfg.Annotation.TimeoutSeconds != 30 || !cfg.Annotation.VerifyTerms {
		t.Errorf("typed env overrides not applied: %+v", cfg.Annotation)
	}
}

func TestEnvOverrideIntIgnoresGarbage(t *testing.T) {
	t.Setenv("FEEDBACKLENS_TIMEOUT_SECONDS", "soon")
	cfg := Default()
	if cfg.Annotation.TimeoutSeconds != 120 {
		t.Errorf("expected default timeout to survive, got %d", cfg.Annotation.TimeoutSeconds)
	}
}

func TestLLMConfig(t *testing.T) {
	t.Setenv("TEST_FEEDBACKLENS_KEY", "sk-test")
	cfg := &Config{Annotation: Annotation{
		Provider:       "anthropic",
		APIKeyEnv:      "TEST_FEEDBACKLENS_KEY",
		Model:          "claude-3-5-haiku-latest",
		TimeoutSeconds: 45,
		MaxTokens:      512,
	}}
	lc := cfg.LLM()
	if lc.APIKey != "sk-test" || lc.Provider != "anthropic" || lc.MaxTokens != 512 {
		t.Errorf("unexpected llm config: %+v", lc)
	}
	if lc.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", lc.Timeout)
	}
}

func TestDirectories(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.GetCacheDir() != filepath.Join("/custom/path", "datasets") {
		t.Errorf("unexpected cache dir %q", cfg.GetCacheDir())
	}
	if cfg.GetReportsDir() != filepath.Join("/custom/path", "reports") {
		t.Errorf("unexpected reports dir %q", cfg.GetReportsDir())
	}

	cfg.Cache.Dir = "/elsewhere"
	if cfg.GetCacheDir() != "/elsewhere" {
		t.Errorf("expected explicit cache dir, got %q", cfg.GetCacheDir())
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
