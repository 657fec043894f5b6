package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/audit"
	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

func sampleRoll(at time.Time) domain.AuditRecord {
	return domain.NewMarketRoll("rec-1", "btc-updown-5m-1100", domain.Contract{
		Series:      domain.SeriesFiveMin,
		Slug:        "btc-updown-5m-1105",
		ConditionID: "0xcond",
		YesTokenID:  "tok_yes",
		NoTokenID:   "tok_no",
		Strike:      66900,
		Expiry:      at.Add(5 * time.Minute),
	}, at)
}

func sampleSnapshot(at time.Time) domain.AuditRecord {
	return domain.NewSeriesSnapshot("rec-2", domain.SeriesFiveMin, at, domain.SeriesSnapshot{
		Slug:          "btc-updown-5m-1105",
		Spot:          67000,
		Strike:        66900,
		YesPrice:      0.55,
		ModelProb:     0.67,
		EdgeBps:       1200,
		TimeToExpiryS: 180,
		Decision:      domain.BuyYes,
	})
}

func TestJSONLSink_AppendWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	sink, err := audit.NewJSONLSink(path)
	require.NoError(t, err)

	at := time.Date(2026, 8, 25, 11, 5, 0, 0, time.UTC)
	require.NoError(t, sink.Append(context.Background(), sampleRoll(at)))
	require.NoError(t, sink.Append(context.Background(), sampleSnapshot(at.Add(time.Second))))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "market_roll", lines[0]["kind"])
	assert.Equal(t, "btc-updown-5m-1100", lines[0]["prev_slug"])
	assert.Equal(t, "btc-updown-5m-1105", lines[0]["new_slug"])
	assert.Equal(t, "2026-08-25T11:05:00Z", lines[0]["ts"])

	assert.Equal(t, "series_snapshot", lines[1]["kind"])
	assert.Equal(t, "5m", lines[1]["series"])
	assert.Equal(t, "BUY_YES", lines[1]["decision"])
	assert.InDelta(t, 1200.0, lines[1]["edge_bps"], 1e-9)
}

func TestJSONLSink_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	at := time.Now().UTC()

	for i := 0; i < 2; i++ {
		sink, err := audit.NewJSONLSink(path)
		require.NoError(t, err)
		require.NoError(t, sink.Append(context.Background(), sampleSnapshot(at)))
		require.NoError(t, sink.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func TestJSONLSink_RejectsRecordWithoutPayload(t *testing.T) {
	sink, err := audit.NewJSONLSink(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	defer sink.Close()

	err = sink.Append(context.Background(), domain.AuditRecord{
		ID:   "bad",
		Kind: domain.AuditMarketRoll,
		At:   time.Now(),
	})
	assert.Error(t, err)
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
