// Package config loads application configuration from an optional YAML file
// with environment overrides, and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hatchline/opportunity-cli/internal/cost"
	"github.com/hatchline/opportunity-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Reddit    RedditConfig    `yaml:"reddit" mapstructure:"reddit"`
	Websearch WebsearchConfig `yaml:"websearch" mapstructure:"websearch"`
	Services  ServicesConfig  `yaml:"services" mapstructure:"services"`
	Loader    LoaderConfig    `yaml:"loader" mapstructure:"loader"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	DLQ       DLQConfig       `yaml:"dlq" mapstructure:"dlq"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the concept store backend.
type StoreConfig struct {
	// Driver is one of "postgres", "sqlite", "memory".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RedditConfig holds settings for the submission collection client.
type RedditConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent  string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// WebsearchConfig holds settings for the market-validation search client.
type WebsearchConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServicesConfig holds the enrichment capability flags and shared service
// knobs.
type ServicesConfig struct {
	Opportunity         bool `yaml:"opportunity" mapstructure:"opportunity"`
	Monetization        bool `yaml:"monetization" mapstructure:"monetization"`
	Profile             bool `yaml:"profile" mapstructure:"profile"`
	Trust               bool `yaml:"trust" mapstructure:"trust"`
	Market              bool `yaml:"market" mapstructure:"market"`
	AnalysisTimeoutSecs int  `yaml:"analysis_timeout_secs" mapstructure:"analysis_timeout_secs"`
}

// LoaderConfig configures the relational sink.
type LoaderConfig struct {
	Table      string `yaml:"table" mapstructure:"table"`
	PrimaryKey string `yaml:"primary_key" mapstructure:"primary_key"`
	Mode       string `yaml:"mode" mapstructure:"mode"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// RetryConfig configures retry behavior for costly external calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// DLQConfig configures the dead letter queue for failed enrichments.
type DLQConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PricingConfig holds per-model token rates and per-analysis unit costs.
// Empty maps fall back to the built-in defaults.
type PricingConfig struct {
	Anthropic map[string]cost.ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Analysis  map[string]float64        `yaml:"analysis" mapstructure:"analysis"`
}

// Rates merges configured pricing over the defaults.
func (p PricingConfig) Rates() cost.Rates {
	rates := cost.DefaultRates()
	for m, r := range p.Anthropic {
		rates.Anthropic[m] = r
	}
	for t, c := range p.Analysis {
		rates.Analysis[model.AnalysisType(t)] = c
	}
	return rates
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPPORTUNITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "concepts.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("reddit.base_url", "https://oauth.reddit.com")
	v.SetDefault("reddit.user_agent", "opportunity-cli/1.0")
	v.SetDefault("reddit.rate_per_sec", 1.0)
	v.SetDefault("websearch.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("websearch.rate_per_sec", 1.0)
	v.SetDefault("services.opportunity", true)
	v.SetDefault("services.monetization", true)
	v.SetDefault("services.profile", true)
	v.SetDefault("services.trust", true)
	v.SetDefault("services.market", true)
	v.SetDefault("services.analysis_timeout_secs", 60)
	v.SetDefault("loader.table", "enriched_submissions")
	v.SetDefault("loader.primary_key", "submission_id")
	v.SetDefault("loader.mode", "merge")
	v.SetDefault("loader.batch_size", 500)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("dlq.path", "dlq.jsonl")
	v.SetDefault("dlq.max_retries", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
