// Package config loads webpilot settings from defaults, an optional config
// file, and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerURL     string  `mapstructure:"server_url" yaml:"server_url"`
	Model         string  `mapstructure:"model" yaml:"model"`
	OllamaHost    string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxSteps      int     `mapstructure:"max_steps" yaml:"max_steps"`
	ScreenshotDir string  `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	LogLevel      string  `mapstructure:"log_level" yaml:"log_level"`
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_url", "http://localhost:5600/mcp")
	v.SetDefault("model", "qwen2.5-coder:7b")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_steps", 50)
	v.SetDefault("screenshot_dir", ".")
	v.SetDefault("log_level", "info")
}

// Load builds a Config from defaults, an optional config file at configPath,
// and WEBPILOT_* environment variables. OLLAMA_MODEL is honored as a legacy
// model override.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("WEBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("model", "WEBPILOT_MODEL", "OLLAMA_MODEL"); err != nil {
		return nil, fmt.Errorf("binding model env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}
