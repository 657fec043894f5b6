package notify_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/notify"
	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

func TestPrintSummary_NoPositions(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	console.PrintSummary(nil, 12.5, 0)

	out := buf.String()
	assert.Contains(t, out, "no open positions")
	assert.Contains(t, out, "realized PnL:   +12.50 USD")
	assert.Contains(t, out, "total PnL:      +12.50 USD")
}

func TestPrintSummary_RendersPositionsTable(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	positions := []domain.Position{
		{
			Series:     domain.SeriesFiveMin,
			Slug:       "btc-updown-5m-1105",
			Side:       domain.BuyYes,
			EntryPrice: 0.55,
			EntryAt:    time.Now().Add(-90 * time.Second),
			Notional:   25,
			Shares:     45.45,
		},
		{
			Series:     domain.SeriesFifteenMin,
			Slug:       "btc-updown-15m-1115",
			Side:       domain.BuyNo,
			EntryPrice: 0.40,
			EntryAt:    time.Now().Add(-30 * time.Second),
			Notional:   25,
			Shares:     41.67,
		},
	}

	console.PrintSummary(positions, -3.10, 1.75)

	out := buf.String()
	assert.Contains(t, out, "btc-updown-5m-1105")
	assert.Contains(t, out, "BUY_NO")
	assert.Contains(t, out, "realized PnL:   -3.10 USD")
	assert.Contains(t, out, "unrealized PnL: +1.75 USD")
	assert.Contains(t, out, "total PnL:      -1.35 USD")
}
