package config

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
	"github.com/TobiSchelling/FeedbackLens/internal/llm"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Annotation Annotation `yaml:"annotation"`
	Cache      Cache      `yaml:"cache"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Annotation struct {
	Provider        string   `yaml:"provider"`
	EndpointURL     string   `yaml:"endpoint_url"`
	APIKeyEnv       string   `yaml:"api_key_env"`
	Model           string   `yaml:"model"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	MaxTokens       int      `yaml:"max_tokens"`
	MinCommentChars int      `yaml:"min_comment_chars"`
	VerifyTerms     bool     `yaml:"verify_terms"`
	Aspects         []string `yaml:"aspects"`
}

type Cache struct {
	Dir                string `yaml:"dir"`
	InvalidateOnChange bool   `yaml:"invalidate_on_change"`
}

type Output struct {
	DataDir    string `yaml:"data_dir"`
	ReportsDir string `yaml:"reports_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for feedbacklens.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "feedbacklens")
}

// DataDir returns the XDG data directory for feedbacklens.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "feedbacklens")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/feedbacklens/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'feedbacklens init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	cfg.applyEnv()
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Annotation: Annotation{
			Provider:        "ollama",
			APIKeyEnv:       "OPENAI_API_KEY",
			Model:           "llama3",
			TimeoutSeconds:  120,
			MaxTokens:       1024,
			MinCommentChars: feedback.MinCommentChars,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	known := make(map[string]bool, len(feedback.DefaultAspects))
	for _, a := range feedback.DefaultAspects {
		known[a] = true
	}
	for _, a := range c.Annotation.Aspects {
		if !known[a] {
			return fmt.Errorf("unknown aspect %q in annotation.aspects (want one of %s)",
				a, strings.Join(feedback.DefaultAspects, ", "))
		}
	}
	if c.Annotation.TimeoutSeconds < 0 {
		return fmt.Errorf("annotation.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) applyEnv() {
	envOverride(&c.Annotation.Provider, "FEEDBACKLENS_PROVIDER")
	envOverride(&c.Annotation.EndpointURL, "FEEDBACKLENS_ENDPOINT_URL")
	envOverride(&c.Annotation.Model, "FEEDBACKLENS_MODEL")
	envOverrideInt(&c.Annotation.TimeoutSeconds, "FEEDBACKLENS_TIMEOUT_SECONDS")
	envOverrideBool(&c.Annotation.VerifyTerms, "FEEDBACKLENS_VERIFY_TERMS")
	envOverride(&c.Cache.Dir, "FEEDBACKLENS_CACHE_DIR")
}

// LLM returns the client configuration, reading the API key from the
// environment variable named by annotation.api_key_env.
func (c *Config) LLM() llm.Config {
	var key string
	if c.Annotation.APIKeyEnv != "" {
		key = os.Getenv(c.Annotation.APIKeyEnv)
	}
	return llm.Config{
		Provider:    c.Annotation.Provider,
		EndpointURL: c.Annotation.EndpointURL,
		APIKey:      key,
		Model:       c.Annotation.Model,
		Timeout:     time.Duration(c.Annotation.TimeoutSeconds) * time.Second,
		MaxTokens:   c.Annotation.MaxTokens,
	}
}

// Aspects returns the configured aspect list or the full taxonomy.
func (c *Config) Aspects() []string {
	if len(c.Annotation.Aspects) == 0 {
		return feedback.DefaultAspects
	}
	return c.Annotation.Aspects
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetCacheDir returns where annotated tables are kept.
func (c *Config) GetCacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.GetDataDir(), "datasets")
}

// GetReportsDir returns where PDF reports are written.
func (c *Config) GetReportsDir() string {
	if c.Output.ReportsDir != "" {
		return c.Output.ReportsDir
	}
	return filepath.Join(c.GetDataDir(), "reports")
}

// GetDBPath returns the ledger database location.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "feedbacklens.db")
}

// Debug reports whether row-level logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("ignoring invalid %s '%s': %v", envKey, val, err)
			return
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
