package config

import (
	"strings"
	"testing"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "/tmp/signals.db",
		},
		Scoring: ScoringConfig{
			Strategy:           "hybrid",
			EscalateConfidence: 0.6,
			EscalateMagnitude:  0.15,
		},
		Enrich: EnrichConfig{
			ConfidenceThreshold: 0.7,
			BatchSize:           50,
			Workers:             4,
			MaxRetries:          3,
		},
		Discovery: DiscoveryConfig{
			SampleCap:   10,
			MinMentions: 3,
		},
		Analytics: AnalyticsConfig{
			VelocityWindowHours: 72,
			MinSamples:          10,
			AlertThresholdPct:   30,
		},
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	cfg := validCfg()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config should pass, got: %v", err)
	}
}

func TestValidate_EmptyStorePath(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Path = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty store.path")
	}
	if !strings.Contains(err.Error(), "store.path") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownScoringStrategy(t *testing.T) {
	cfg := validCfg()
	cfg.Scoring.Strategy = "oracle"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for strategy = oracle")
	}
	if !strings.Contains(err.Error(), "scoring.strategy") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EscalateConfidenceOutOfRange(t *testing.T) {
	cfg := validCfg()
	cfg.Scoring.EscalateConfidence = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for escalate_confidence = 1.5")
	}
}

func TestValidate_ConfidenceThresholdNeg(t *testing.T) {
	cfg := validCfg()
	cfg.Enrich.ConfidenceThreshold = -0.1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for confidence_threshold = -0.1")
	}
	if !strings.Contains(err.Error(), "confidence_threshold") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BatchSizeZero(t *testing.T) {
	cfg := validCfg()
	cfg.Enrich.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for batch_size = 0")
	}
}

func TestValidate_WorkersZero(t *testing.T) {
	cfg := validCfg()
	cfg.Enrich.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for workers = 0")
	}
}

func TestValidate_NegativeMaxRetries(t *testing.T) {
	cfg := validCfg()
	cfg.Enrich.MaxRetries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_retries = -1")
	}
}

func TestValidate_SampleCapZero(t *testing.T) {
	cfg := validCfg()
	cfg.Discovery.SampleCap = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for sample_cap = 0")
	}
	if !strings.Contains(err.Error(), "sample_cap") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MinMentionsZero(t *testing.T) {
	cfg := validCfg()
	cfg.Discovery.MinMentions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_mentions = 0")
	}
}

func TestValidate_VelocityWindowZero(t *testing.T) {
	cfg := validCfg()
	cfg.Analytics.VelocityWindowHours = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for velocity_window_hours = 0")
	}
}

func TestValidate_MinSamplesZero(t *testing.T) {
	cfg := validCfg()
	cfg.Analytics.MinSamples = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_samples = 0")
	}
}

func TestValidate_NegativeAlertThreshold(t *testing.T) {
	cfg := validCfg()
	cfg.Analytics.AlertThresholdPct = -5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for alert_threshold_pct = -5")
	}
}

func TestClaudeConfig_StringMasksAPIKey(t *testing.T) {
	c := ClaudeConfig{APIKey: "sk-ant-REDACTED", Model: "claude-haiku-4-5-20251001"}
	s := c.String()
	if strings.Contains(s, "verylongsecret") {
		t.Fatalf("API key leaked in String(): %s", s)
	}
	if !strings.Contains(s, "sk-a") || !strings.Contains(s, "cret") {
		t.Fatalf("expected masked prefix/suffix, got: %s", s)
	}
}

func TestClaudeConfig_StringShortKeyFullyMasked(t *testing.T) {
	c := ClaudeConfig{APIKey: "short"}
	if s := c.String(); strings.Contains(s, "short") {
		t.Fatalf("short key should be fully masked, got: %s", s)
	}
}
