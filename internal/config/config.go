// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Browser BrowserConfig `mapstructure:"browser"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Extract ExtractConfig `mapstructure:"extract"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Startup StartupConfig `mapstructure:"startup"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// BrowserConfig governs the automation engine session.
type BrowserConfig struct {
	RemoteDebuggingPort int  `mapstructure:"remote_debugging_port"`
	Headless            bool `mapstructure:"headless"`
	SlowMoMs            int  `mapstructure:"slow_mo_ms"`
	NavTimeoutSec       int  `mapstructure:"nav_timeout_seconds"`
}

// GatewayConfig controls the command gateway and its supervisor.
type GatewayConfig struct {
	QueueDepth          int `mapstructure:"queue_depth"`
	PollIntervalMs      int `mapstructure:"poll_interval_ms"`
	DefaultDeadlineSec  int `mapstructure:"default_deadline_seconds"`
	StartTimeoutSec     int `mapstructure:"start_timeout_seconds"`
	StartAttempts       int `mapstructure:"start_attempts"`
	SubmitTimeoutSec    int `mapstructure:"submit_timeout_seconds"`
	ProfileDeadlineSec  int `mapstructure:"profile_deadline_seconds"`
	ShutdownTimeoutSec  int `mapstructure:"shutdown_timeout_seconds"`
}

// ExtractConfig governs the composite LinkedIn extraction flow.
type ExtractConfig struct {
	NavAttempts       int `mapstructure:"nav_attempts"`
	SettleBaseSeconds int `mapstructure:"settle_base_seconds"`
	SettleStepSeconds int `mapstructure:"settle_step_seconds"`
	MaxExperience     int `mapstructure:"max_experience"`
}

// ScoringConfig holds investor scoring policy knobs.
type ScoringConfig struct {
	InvestorThreshold float64 `mapstructure:"investor_threshold"`
	// FallbackConfidence is applied when the engine is unavailable and a
	// caller still asks for a score. Disabled (0) by default.
	FallbackConfidence float64 `mapstructure:"fallback_confidence"`
}

// LLMConfig configures the optional profile analyzer backend.
type LLMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EnrichConfig configures the web enrichment collector.
type EnrichConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxPortfolio   int    `mapstructure:"max_portfolio"`
}

// StartupConfig points at startup artifacts such as the pitch deck.
type StartupConfig struct {
	Name          string `mapstructure:"name"`
	ElevatorPitch string `mapstructure:"elevator_pitch"`
	PitchDeckPath string `mapstructure:"pitch_deck_path"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEEDPITCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5500)
	v.SetDefault("logging.development", true)
	v.SetDefault("browser.remote_debugging_port", 9222)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.slow_mo_ms", 50)
	v.SetDefault("browser.nav_timeout_seconds", 60)
	v.SetDefault("gateway.queue_depth", 64)
	v.SetDefault("gateway.poll_interval_ms", 1000)
	v.SetDefault("gateway.default_deadline_seconds", 10)
	v.SetDefault("gateway.start_timeout_seconds", 30)
	v.SetDefault("gateway.start_attempts", 3)
	v.SetDefault("gateway.submit_timeout_seconds", 5)
	v.SetDefault("gateway.profile_deadline_seconds", 60)
	v.SetDefault("gateway.shutdown_timeout_seconds", 10)
	v.SetDefault("extract.nav_attempts", 3)
	v.SetDefault("extract.settle_base_seconds", 3)
	v.SetDefault("extract.settle_step_seconds", 2)
	v.SetDefault("extract.max_experience", 5)
	v.SetDefault("scoring.investor_threshold", 0.5)
	v.SetDefault("scoring.fallback_confidence", 0.0)
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("enrich.user_agent", "seedpitcher-bot/0.1")
	v.SetDefault("enrich.timeout_seconds", 15)
	v.SetDefault("enrich.max_portfolio", 10)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.RemoteDebuggingPort <= 0 {
		return fmt.Errorf("browser.remote_debugging_port must be > 0")
	}
	if c.Gateway.QueueDepth <= 0 {
		return fmt.Errorf("gateway.queue_depth must be > 0")
	}
	if c.Gateway.StartAttempts <= 0 {
		return fmt.Errorf("gateway.start_attempts must be > 0")
	}
	if c.Extract.NavAttempts <= 0 {
		return fmt.Errorf("extract.nav_attempts must be > 0")
	}
	if c.Scoring.InvestorThreshold < 0 || c.Scoring.InvestorThreshold > 1 {
		return fmt.Errorf("scoring.investor_threshold must be in [0,1]")
	}
	if c.Scoring.FallbackConfidence < 0 || c.Scoring.FallbackConfidence > 1 {
		return fmt.Errorf("scoring.fallback_confidence must be in [0,1]")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.LLM.Enabled && c.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set when llm is enabled")
	}
	return nil
}

// PollInterval returns the owner loop poll interval as a duration.
func (c GatewayConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DefaultDeadline returns the per-command await deadline.
func (c GatewayConfig) DefaultDeadline() time.Duration {
	return time.Duration(c.DefaultDeadlineSec) * time.Second
}

// StartTimeout returns the supervisor readiness timeout.
func (c GatewayConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutSec) * time.Second
}
