package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/santiagomed/conjure/llm"
	"github.com/santiagomed/conjure/schema"
)

// Config stores all configuration of the application.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ServerURL       string        `mapstructure:"server_url"`
	DatabasePath    string        `mapstructure:"database_path"`
	DefaultModel    string        `mapstructure:"default_model"`
	TellmURL        string        `mapstructure:"tellm_url"`
	BatchID         string        `mapstructure:"batch_id"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	DeepSeekAPIKey  string        `mapstructure:"deepseek_api_key"`
	DeepSeekBaseURL string        `mapstructure:"deepseek_base_url"`
}

// Dir is where conjure keeps its config, database and log.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".conjure")
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:8080",
		ServerURL:       "http://127.0.0.1:8080",
		DatabasePath:    filepath.Join(Dir(), "conjure.db"),
		DefaultModel:    schema.DefaultModel,
		HTTPTimeout:     5 * time.Minute,
		LogLevel:        "info",
		DeepSeekBaseURL: llm.DefaultDeepSeekBaseURL,
	}
}

// LoadConfig reads .env, config.yaml (from configPath, the working directory or ~/.conjure)
// and CONJURE_ prefixed environment variables, in increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath(Dir())

	v.SetDefault("listen_addr", config.ListenAddr)
	v.SetDefault("server_url", config.ServerURL)
	v.SetDefault("database_path", config.DatabasePath)
	v.SetDefault("default_model", config.DefaultModel)
	v.SetDefault("tellm_url", "")
	v.SetDefault("batch_id", "")
	v.SetDefault("http_timeout", config.HTTPTimeout)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("deepseek_base_url", config.DeepSeekBaseURL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables
	v.SetEnvPrefix("CONJURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openai_api_key", "CONJURE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "CONJURE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("gemini_api_key", "CONJURE_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("deepseek_api_key", "CONJURE_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY")

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if _, ok := schema.LookupModel(config.DefaultModel); !ok {
		return fmt.Errorf("unknown default model %q", config.DefaultModel)
	}
	return nil
}

// ValidateServer checks what the backend needs on top of the shared settings.
func (c *Config) ValidateServer() error {
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" && c.GeminiAPIKey == "" && c.DeepSeekAPIKey == "" {
		return fmt.Errorf("at least one provider API key is required (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or DEEPSEEK_API_KEY)")
	}
	return nil
}

// LlmConfig extracts the provider settings.
func (c *Config) LlmConfig() *llm.LlmConfig {
	return &llm.LlmConfig{
		OpenAIKey:       c.OpenAIAPIKey,
		AnthropicKey:    c.AnthropicAPIKey,
		GeminiKey:       c.GeminiAPIKey,
		DeepSeekKey:     c.DeepSeekAPIKey,
		DeepSeekBaseURL: c.DeepSeekBaseURL,
		BatchID:         c.BatchID,
		TellmURL:        c.TellmURL,
	}
}
