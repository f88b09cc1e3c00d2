// Package config handles configuration loading for marketprose.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration. It is built
// once at process start and passed by injection into each component, so
// tests can substitute fake upstream endpoints and keys.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Data      DataConfig      `mapstructure:"data"      yaml:"data"`
	Editorial EditorialConfig `mapstructure:"editorial" yaml:"editorial"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary     string  `mapstructure:"primary"      yaml:"primary"` // "openai" or "gemini"
	OpenAIKey   string  `mapstructure:"openai_key"   yaml:"openai_key"`
	GeminiKey   string  `mapstructure:"gemini_key"   yaml:"gemini_key"`
	Model       string  `mapstructure:"model"        yaml:"model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
}

// DataConfig holds market-data upstream configuration. Base URLs are
// configurable so tests can point the sources at local fakes.
type DataConfig struct {
	BenzingaKey     string `mapstructure:"benzinga_key"     yaml:"benzinga_key"`
	PolygonKey      string `mapstructure:"polygon_key"      yaml:"polygon_key"`
	QuoteBaseURL    string `mapstructure:"quote_base_url"   yaml:"quote_base_url"`
	NewsBaseURL     string `mapstructure:"news_base_url"    yaml:"news_base_url"`
	PolygonBaseURL  string `mapstructure:"polygon_base_url" yaml:"polygon_base_url"`
	CalendarBaseURL string `mapstructure:"calendar_base_url" yaml:"calendar_base_url"`
}

// EditorialConfig holds copy-desk policy settings.
type EditorialConfig struct {
	Attribution    string `mapstructure:"attribution"      yaml:"attribution"`      // e.g., "Benzinga Pro data"
	MaxLinkRetries int    `mapstructure:"max_link_retries" yaml:"max_link_retries"` // LLM re-prompts on hyperlink deficit
	ContextLinks   int    `mapstructure:"context_links"    yaml:"context_links"`    // related links to weave into context
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketprose/config.yaml (home directory)
//  3. /etc/marketprose/config.yaml (system)
//
// Environment variables override config file values.
// Format: MARKETPROSE_<SECTION>_<KEY>, e.g., MARKETPROSE_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketprose"))
	v.AddConfigPath("/etc/marketprose")

	v.SetEnvPrefix("MARKETPROSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("MARKETPROSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 2048)

	// Data upstream defaults
	v.SetDefault("data.quote_base_url", "https://api.benzinga.com/api/v1")
	v.SetDefault("data.news_base_url", "https://api.benzinga.com/api/v2")
	v.SetDefault("data.calendar_base_url", "https://api.benzinga.com/api/v2.1")
	v.SetDefault("data.polygon_base_url", "https://api.polygon.io")

	// Editorial defaults
	v.SetDefault("editorial.attribution", "Benzinga Pro data")
	v.SetDefault("editorial.max_link_retries", 2)
	v.SetDefault("editorial.context_links", 3)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("MARKETPROSE_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("MARKETPROSE_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("MARKETPROSE_DATA_BENZINGA_KEY"); key != "" {
		cfg.Data.BenzingaKey = key
	}
	if key := os.Getenv("MARKETPROSE_DATA_POLYGON_KEY"); key != "" {
		cfg.Data.PolygonKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
