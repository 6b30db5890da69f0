// Package config loads FinFeeX settings from defaults, an optional
// config.yaml, a .env file and FINFEEX_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// FINFEEX_SERVER_PORT or FINFEEX_ANALYSIS_ASSUMED_TXN_VALUE.
const EnvPrefix = "FINFEEX"

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Port           int           `mapstructure:"port" yaml:"port"`
		StaticDir      string        `mapstructure:"static_dir" yaml:"static_dir"`
		MaxUploadMB    int           `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
		MetricsEnabled bool          `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	} `mapstructure:"server" yaml:"server"`

	Analysis struct {
		EstimatedAnnualTxns int     `mapstructure:"estimated_annual_txns" yaml:"estimated_annual_txns"`
		AssumedTxnValue     float64 `mapstructure:"assumed_txn_value" yaml:"assumed_txn_value"`
		Recipient           string  `mapstructure:"recipient" yaml:"recipient"`
		PreviewChars        int     `mapstructure:"preview_chars" yaml:"preview_chars"`
	} `mapstructure:"analysis" yaml:"analysis"`

	AI struct {
		Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
		Model             string        `mapstructure:"model" yaml:"model"`
		RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
		TimeoutSeconds    int           `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
		APIKey            string        `mapstructure:"api_key" yaml:"-"`
	} `mapstructure:"ai" yaml:"ai"`
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// Load builds the configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and $HOME/.finfeex.
// A missing config file is not an error.
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.finfeex")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// The API key is commonly exported without the prefix.
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind GEMINI_API_KEY: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("analysis.estimated_annual_txns", 0)
	v.SetDefault("analysis.assumed_txn_value", 100.0)
	v.SetDefault("analysis.recipient", "Support")
	v.SetDefault("analysis.preview_chars", 800)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.requests_per_minute", 10)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.cache_ttl", time.Hour)
	v.SetDefault("ai.api_key", "")
}

// Validate checks value ranges and cross-field requirements.
func Validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive, got: %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Analysis.EstimatedAnnualTxns < 0 {
		return fmt.Errorf("analysis.estimated_annual_txns must not be negative, got: %d", cfg.Analysis.EstimatedAnnualTxns)
	}
	if v := cfg.Analysis.AssumedTxnValue; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("analysis.assumed_txn_value must be a finite, non-negative number, got: %v", v)
	}
	if cfg.Analysis.PreviewChars < 0 {
		return fmt.Errorf("analysis.preview_chars must not be negative, got: %d", cfg.Analysis.PreviewChars)
	}
	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}
		if cfg.AI.RequestsPerMinute < 1 || cfg.AI.RequestsPerMinute > 1000 {
			return fmt.Errorf("ai.requests_per_minute must be between 1 and 1000, got: %d", cfg.AI.RequestsPerMinute)
		}
		if cfg.AI.TimeoutSeconds < 1 || cfg.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", cfg.AI.TimeoutSeconds)
		}
	}
	return nil
}

// loadEnvFile loads .env from the working directory if present. Variables
// already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load(".env")
}
