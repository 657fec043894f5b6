// Package config loads the bot configuration from YAML with .env overrides.
// All values are immutable after Load; validation failures abort startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration.
type Config struct {
	Engine Engine `yaml:"engine"`
	Series Series `yaml:"series"`
	Model  Model  `yaml:"model"`
	Risk   Risk   `yaml:"risk"`
	Paper  Paper  `yaml:"paper"`
	API    API    `yaml:"api"`
	Audit  Audit  `yaml:"audit"`
	Alerts Alerts `yaml:"alerts"`
	Log    Log    `yaml:"log"`
}

// Engine controls the evaluation loops.
type Engine struct {
	TickIntervalMs          int `yaml:"tick_interval_ms"`
	MarketRefreshSeconds    int `yaml:"market_refresh_seconds"`
	TelemetryEverySeconds   int `yaml:"telemetry_every_seconds"`
	StreamStaleAfterSeconds int `yaml:"stream_stale_after_seconds"`
	SpotMaxAgeSeconds       int `yaml:"spot_max_age_seconds"`
	FatalStalenessSeconds   int `yaml:"fatal_staleness_seconds"`
}

// Series holds the seed slugs anchoring the two rolling contract families.
type Series struct {
	FiveMinSeedSlug       string `yaml:"five_min_seed_slug"`
	FifteenMinSeedSlug    string `yaml:"fifteen_min_seed_slug"`
	FiveMinHoldSeconds    int    `yaml:"five_min_hold_seconds"`
	FifteenMinHoldSeconds int    `yaml:"fifteen_min_hold_seconds"`
}

// Model selects and parameterizes the probability estimator.
type Model struct {
	Variant      string  `yaml:"variant"` // volnormal | threshold
	SigmaAnnual  float64 `yaml:"sigma_annual"`
	ThresholdBps float64 `yaml:"threshold_bps"`
}

// Risk holds the trading limits.
type Risk struct {
	StopLossUSD          float64 `yaml:"stop_loss_usd"`
	TakeProfitUSD        float64 `yaml:"take_profit_usd"`
	MaxCumulativeLossUSD float64 `yaml:"max_cumulative_loss_usd"`
	SignalCooldownSec    int     `yaml:"signal_cooldown_sec"`
}

// Paper controls the paper execution engine.
type Paper struct {
	NotionalUSD float64 `yaml:"notional_usd"`
}

// API contains the external endpoints.
type API struct {
	CLOBBase      string `yaml:"clob_base"`
	CLOBWSBase    string `yaml:"clob_ws_base"`
	BinanceBase   string `yaml:"binance_base"`
	BinanceSymbol string `yaml:"binance_symbol"`
}

// Audit controls where the audit trail is written.
type Audit struct {
	JSONLPath string `yaml:"jsonl_path"`
	DSN       string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// Alerts holds the telemetry spike bounds driving the kill switch.
type Alerts struct {
	MaxRejectRate float64 `yaml:"max_reject_rate"`
	MaxP95Ms      float64 `yaml:"max_p95_submit_ms"`
}

// Log controls logging format and level.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Environment values
// override the YAML for the keys that support it; defaults fill the rest.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// TickInterval returns the pipeline tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.TickIntervalMs) * time.Millisecond
}

// MarketRefresh returns the contract discovery refresh interval.
func (c *Config) MarketRefresh() time.Duration {
	return time.Duration(c.Engine.MarketRefreshSeconds) * time.Second
}

// TelemetryInterval returns the telemetry snapshot cadence.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Engine.TelemetryEverySeconds) * time.Second
}

// StreamStaleAfter returns the websocket staleness bound.
func (c *Config) StreamStaleAfter() time.Duration {
	return time.Duration(c.Engine.StreamStaleAfterSeconds) * time.Second
}

// SpotMaxAge returns the reference quote staleness bound.
func (c *Config) SpotMaxAge() time.Duration {
	return time.Duration(c.Engine.SpotMaxAgeSeconds) * time.Second
}

// FatalStaleness returns how long a feed may stay down before the kill
// switch trips.
func (c *Config) FatalStaleness() time.Duration {
	return time.Duration(c.Engine.FatalStalenessSeconds) * time.Second
}

// SignalCooldown returns the per-series re-entry suppression window.
func (c *Config) SignalCooldown() time.Duration {
	return time.Duration(c.Risk.SignalCooldownSec) * time.Second
}

// FiveMinHold returns the 5m series minimum hold.
func (c *Config) FiveMinHold() time.Duration {
	return time.Duration(c.Series.FiveMinHoldSeconds) * time.Second
}

// FifteenMinHold returns the 15m series minimum hold.
func (c *Config) FifteenMinHold() time.Duration {
	return time.Duration(c.Series.FifteenMinHoldSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CLOB_BASE"); v != "" {
		cfg.API.CLOBBase = v
	}
	if v := os.Getenv("CLOB_WS_BASE"); v != "" {
		cfg.API.CLOBWSBase = v
	}
	if v := os.Getenv("BINANCE_BASE"); v != "" {
		cfg.API.BinanceBase = v
	}
	if v := os.Getenv("AUDIT_DSN"); v != "" {
		cfg.Audit.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Engine.TickIntervalMs <= 0 {
		cfg.Engine.TickIntervalMs = 1000
	}
	if cfg.Engine.MarketRefreshSeconds <= 0 {
		cfg.Engine.MarketRefreshSeconds = 5
	}
	if cfg.Engine.TelemetryEverySeconds <= 0 {
		cfg.Engine.TelemetryEverySeconds = 30
	}
	if cfg.Engine.StreamStaleAfterSeconds <= 0 {
		cfg.Engine.StreamStaleAfterSeconds = 10
	}
	if cfg.Engine.SpotMaxAgeSeconds <= 0 {
		cfg.Engine.SpotMaxAgeSeconds = 10
	}
	if cfg.Engine.FatalStalenessSeconds <= 0 {
		cfg.Engine.FatalStalenessSeconds = 60
	}
	if cfg.Series.FiveMinHoldSeconds <= 0 {
		cfg.Series.FiveMinHoldSeconds = 45
	}
	if cfg.Series.FifteenMinHoldSeconds <= 0 {
		cfg.Series.FifteenMinHoldSeconds = 90
	}
	if cfg.Model.Variant == "" {
		cfg.Model.Variant = "volnormal"
	}
	if cfg.Model.SigmaAnnual <= 0 {
		cfg.Model.SigmaAnnual = 0.8
	}
	if cfg.Model.ThresholdBps <= 0 {
		cfg.Model.ThresholdBps = 800
	}
	if cfg.Risk.StopLossUSD <= 0 {
		cfg.Risk.StopLossUSD = 12
	}
	if cfg.Risk.TakeProfitUSD <= 0 {
		cfg.Risk.TakeProfitUSD = 18
	}
	if cfg.Risk.MaxCumulativeLossUSD <= 0 {
		cfg.Risk.MaxCumulativeLossUSD = 100
	}
	if cfg.Risk.SignalCooldownSec <= 0 {
		cfg.Risk.SignalCooldownSec = 20
	}
	if cfg.Paper.NotionalUSD <= 0 {
		cfg.Paper.NotionalUSD = 25
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.CLOBWSBase == "" {
		cfg.API.CLOBWSBase = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://api.binance.com"
	}
	if cfg.API.BinanceSymbol == "" {
		cfg.API.BinanceSymbol = "BTCUSDT"
	}
	if cfg.Audit.JSONLPath == "" {
		cfg.Audit.JSONLPath = "data/audit.jsonl"
	}
	if cfg.Audit.DSN == "" {
		cfg.Audit.DSN = "data/coinbot.db"
	}
	if cfg.Alerts.MaxRejectRate <= 0 {
		cfg.Alerts.MaxRejectRate = 0.1
	}
	if cfg.Alerts.MaxP95Ms <= 0 {
		cfg.Alerts.MaxP95Ms = 1200
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Series.FiveMinSeedSlug == "" {
		return fmt.Errorf("series.five_min_seed_slug is required")
	}
	if c.Series.FifteenMinSeedSlug == "" {
		return fmt.Errorf("series.fifteen_min_seed_slug is required")
	}
	if c.Model.Variant != "volnormal" && c.Model.Variant != "threshold" {
		return fmt.Errorf("model.variant %q: must be volnormal or threshold", c.Model.Variant)
	}
	if c.Risk.TakeProfitUSD <= 0 || c.Risk.StopLossUSD <= 0 {
		return fmt.Errorf("risk limits must be positive")
	}
	if c.Paper.NotionalUSD > 10000 {
		return fmt.Errorf("paper.notional_usd %v: implausibly large for a paper run", c.Paper.NotionalUSD)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}
