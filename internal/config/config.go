package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfidenceThreshold is the minimum resolver confidence for
	// auto-committing a signal; candidates below it go to the review queue.
	DefaultConfidenceThreshold = 0.7

	// DefaultBatchSize is the number of comments per persistence flush.
	DefaultBatchSize = 50

	// DefaultVelocityAlertPct is the absolute percent change in mean
	// sentiment between window halves that fires an alert.
	DefaultVelocityAlertPct = 30.0

	// DefaultVelocityMinSamples is the minimum signal count per window half
	// below which velocity reports insufficient data.
	DefaultVelocityMinSamples = 10

	// DefaultDiscoverySampleCap is the hard cap on stored context snippets
	// per discovered entity.
	DefaultDiscoverySampleCap = 10
)

// Config holds all configuration for chattersignal.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Claude    ClaudeConfig    `mapstructure:"claude"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// StoreConfig holds signal store settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ClaudeConfig holds Anthropic Claude API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// ScoringConfig selects and tunes the scoring strategy.
type ScoringConfig struct {
	// Strategy is one of "lexicon", "claude", "hybrid".
	Strategy string `mapstructure:"strategy"`
	// EscalateConfidence: hybrid escalates to the remote model when the
	// lexicon result's confidence is below this.
	EscalateConfidence float64 `mapstructure:"escalate_confidence"`
	// EscalateMagnitude: hybrid escalates when the lexicon sentiment
	// magnitude is at or below this (near-zero readings are unreliable).
	EscalateMagnitude float64 `mapstructure:"escalate_magnitude"`
}

// EnrichConfig holds orchestrator settings.
type EnrichConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	BatchSize           int     `mapstructure:"batch_size"`
	Workers             int     `mapstructure:"workers"`
	MaxRetries          int     `mapstructure:"max_retries"`
	// StanceEnabled gates the per-entity stance signal kind. Off by default:
	// omitting a kind beats storing per-entity values the scorer cannot
	// attribute reliably.
	StanceEnabled bool `mapstructure:"stance_enabled"`
}

// DiscoveryConfig holds discovered-entity tracker settings.
type DiscoveryConfig struct {
	SampleCap   int `mapstructure:"sample_cap"`
	MinMentions int `mapstructure:"min_mentions"`
}

// AnalyticsConfig holds velocity and aggregation settings.
type AnalyticsConfig struct {
	VelocityWindowHours int     `mapstructure:"velocity_window_hours"`
	MinSamples          int     `mapstructure:"min_samples"`
	AlertThresholdPct   float64 `mapstructure:"alert_threshold_pct"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("store.path", filepath.Join(homeDir(), ".chattersignal", "signals.db"))

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("scoring.strategy", "hybrid")
	v.SetDefault("scoring.escalate_confidence", 0.6)
	v.SetDefault("scoring.escalate_magnitude", 0.15)

	v.SetDefault("enrich.confidence_threshold", DefaultConfidenceThreshold)
	v.SetDefault("enrich.batch_size", DefaultBatchSize)
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("enrich.max_retries", 3)
	v.SetDefault("enrich.stance_enabled", false)

	v.SetDefault("discovery.sample_cap", DefaultDiscoverySampleCap)
	v.SetDefault("discovery.min_mentions", 3)

	v.SetDefault("analytics.velocity_window_hours", 72)
	v.SetDefault("analytics.min_samples", DefaultVelocityMinSamples)
	v.SetDefault("analytics.alert_threshold_pct", DefaultVelocityAlertPct)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".chattersignal"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("CHATTERSIGNAL")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("store.path", "CHATTERSIGNAL_STORE_PATH")
	_ = v.BindEnv("scoring.strategy", "CHATTERSIGNAL_SCORING_STRATEGY")
	_ = v.BindEnv("api.listen_addr", "CHATTERSIGNAL_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "CHATTERSIGNAL_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK; use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	switch c.Scoring.Strategy {
	case "lexicon", "claude", "hybrid":
	default:
		return fmt.Errorf("scoring.strategy must be one of lexicon, claude, hybrid (got %q)", c.Scoring.Strategy)
	}
	if c.Scoring.EscalateConfidence < 0 || c.Scoring.EscalateConfidence > 1 {
		return fmt.Errorf("scoring.escalate_confidence must be between 0 and 1")
	}
	if c.Scoring.EscalateMagnitude < 0 || c.Scoring.EscalateMagnitude > 1 {
		return fmt.Errorf("scoring.escalate_magnitude must be between 0 and 1")
	}
	if c.Enrich.ConfidenceThreshold < 0 || c.Enrich.ConfidenceThreshold > 1 {
		return fmt.Errorf("enrich.confidence_threshold must be between 0 and 1")
	}
	if c.Enrich.BatchSize <= 0 {
		return fmt.Errorf("enrich.batch_size must be greater than 0")
	}
	if c.Enrich.Workers <= 0 {
		return fmt.Errorf("enrich.workers must be greater than 0")
	}
	if c.Enrich.MaxRetries < 0 {
		return fmt.Errorf("enrich.max_retries must be >= 0")
	}
	if c.Discovery.SampleCap <= 0 {
		return fmt.Errorf("discovery.sample_cap must be greater than 0")
	}
	if c.Discovery.MinMentions < 1 {
		return fmt.Errorf("discovery.min_mentions must be >= 1")
	}
	if c.Analytics.VelocityWindowHours <= 0 {
		return fmt.Errorf("analytics.velocity_window_hours must be greater than 0")
	}
	if c.Analytics.MinSamples < 1 {
		return fmt.Errorf("analytics.min_samples must be >= 1")
	}
	if c.Analytics.AlertThresholdPct < 0 {
		return fmt.Errorf("analytics.alert_threshold_pct must be >= 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
