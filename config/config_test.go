package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greg-czaplicki/coinbot-alpha/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
series:
  five_min_seed_slug: btc-updown-5m-1771549800
  fifteen_min_seed_slug: btc-updown-15m-1771549800
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 5*time.Second, cfg.MarketRefresh())
	assert.Equal(t, "volnormal", cfg.Model.Variant)
	assert.Equal(t, 0.8, cfg.Model.SigmaAnnual)
	assert.Equal(t, 800.0, cfg.Model.ThresholdBps)
	assert.Equal(t, 12.0, cfg.Risk.StopLossUSD)
	assert.Equal(t, 18.0, cfg.Risk.TakeProfitUSD)
	assert.Equal(t, 20*time.Second, cfg.SignalCooldown())
	assert.Equal(t, 45*time.Second, cfg.FiveMinHold())
	assert.Equal(t, 90*time.Second, cfg.FifteenMinHold())
	assert.Equal(t, 25.0, cfg.Paper.NotionalUSD)
	assert.Equal(t, "https://clob.polymarket.com", cfg.API.CLOBBase)
	assert.Equal(t, "BTCUSDT", cfg.API.BinanceSymbol)
	assert.Equal(t, 0.1, cfg.Alerts.MaxRejectRate)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalYAML+`
engine:
  tick_interval_ms: 500
model:
  variant: threshold
  threshold_bps: 600
risk:
  stop_loss_usd: 8
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "threshold", cfg.Model.Variant)
	assert.Equal(t, 600.0, cfg.Model.ThresholdBps)
	assert.Equal(t, 8.0, cfg.Risk.StopLossUSD)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CLOB_BASE", "http://localhost:8080")

	cfg, err := config.Load(writeConfig(t, minimalYAML+`
log:
  level: info
`))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8080", cfg.API.CLOBBase)
}

func TestLoad_MissingSeedSlugFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
series:
  five_min_seed_slug: btc-updown-5m-1771549800
`))
	assert.ErrorContains(t, err, "fifteen_min_seed_slug")
}

func TestLoad_InvalidVariantFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, minimalYAML+`
model:
  variant: gaussian
`))
	assert.ErrorContains(t, err, "model.variant")
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, minimalYAML+`
log:
  level: verbose
`))
	assert.ErrorContains(t, err, "log.level")
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
