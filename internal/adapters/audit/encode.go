// Package audit provides the append-only sinks for the audit trail: a
// line-oriented JSONL file and a SQLite store. Both share one wire encoding
// so records stay greppable across sinks.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// encode flattens an audit record into the JSON object written by all sinks.
// ts and kind always come first so the trail reads naturally with tail/grep.
func encode(rec domain.AuditRecord) (map[string]any, error) {
	m := map[string]any{
		"ts":   rec.At.UTC().Format(time.RFC3339Nano),
		"kind": string(rec.Kind),
		"id":   rec.ID,
	}
	if rec.Series != "" {
		m["series"] = string(rec.Series)
	}

	switch rec.Kind {
	case domain.AuditMarketRoll:
		if rec.Roll == nil {
			return nil, fmt.Errorf("audit.encode: market_roll without payload")
		}
		m["prev_slug"] = rec.Roll.PrevSlug
		m["new_slug"] = rec.Roll.NewSlug
		m["condition_id"] = rec.Roll.ConditionID
		m["yes_token"] = rec.Roll.YesTokenID
		m["strike"] = rec.Roll.Strike
		m["expiry"] = rec.Roll.Expiry.UTC().Format(time.RFC3339)

	case domain.AuditSeriesSnapshot:
		if rec.Snapshot == nil {
			return nil, fmt.Errorf("audit.encode: series_snapshot without payload")
		}
		s := rec.Snapshot
		m["slug"] = s.Slug
		m["spot"] = s.Spot
		m["strike"] = s.Strike
		m["yes_price"] = s.YesPrice
		m["model_yes"] = s.ModelProb
		m["edge_bps"] = s.EdgeBps
		m["tte_s"] = s.TimeToExpiryS
		m["decision"] = string(s.Decision)
		if s.Note != "" {
			m["note"] = s.Note
		}

	case domain.AuditPaperSubmit:
		if rec.Submit == nil {
			return nil, fmt.Errorf("audit.encode: paper_submit without payload")
		}
		s := rec.Submit
		m["intent_id"] = s.IntentID
		m["slug"] = s.Slug
		m["action"] = s.Action
		m["side"] = string(s.Side)
		m["price"] = s.Price
		m["notional_usd"] = s.Notional
		m["shares"] = s.Shares
		m["realized_delta"] = s.RealizedDelta
		m["realized_total"] = s.RealizedTotal
		m["unrealized"] = s.Unrealized
		m["status"] = string(s.Status)
		m["reason"] = s.Reason

	case domain.AuditTelemetrySnapshot:
		if rec.Telemetry == nil {
			return nil, fmt.Errorf("audit.encode: telemetry_snapshot without payload")
		}
		t := rec.Telemetry
		m["loops"] = t.Loops
		m["submits"] = t.Submits
		m["rejects"] = t.Rejects
		m["reject_rate"] = t.RejectRate
		m["p50_submit_ms"] = t.P50SubmitMs
		m["p95_submit_ms"] = t.P95SubmitMs
		m["p99_submit_ms"] = t.P99SubmitMs
		m["realized_pnl"] = t.RealizedPnL
		m["unrealized_pnl"] = t.UnrealizedPnL
		m["open_positions"] = t.OpenPositions
		m["kill_switch"] = t.KillSwitch
		if t.KillReason != "" {
			m["kill_reason"] = t.KillReason
		}

	default:
		return nil, fmt.Errorf("audit.encode: unknown kind %q", rec.Kind)
	}

	return m, nil
}

func marshalLine(rec domain.AuditRecord) ([]byte, error) {
	m, err := encode(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
