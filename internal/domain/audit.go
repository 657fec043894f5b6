package domain

import "time"

// AuditKind tags the variants of the audit record union.
type AuditKind string

const (
	AuditMarketRoll        AuditKind = "market_roll"
	AuditSeriesSnapshot    AuditKind = "series_snapshot"
	AuditPaperSubmit       AuditKind = "paper_submit"
	AuditTelemetrySnapshot AuditKind = "telemetry_snapshot"
)

// AuditRecord is the closed union appended to the audit trail. Exactly one of
// the variant pointers is non-nil, matching Kind. Records are append-only and
// never mutated after construction.
type AuditRecord struct {
	ID     string
	Kind   AuditKind
	Series Series // empty for process-wide telemetry snapshots
	At     time.Time

	Roll      *MarketRoll
	Snapshot  *SeriesSnapshot
	Submit    *PaperSubmit
	Telemetry *TelemetrySnapshot
}

// MarketRoll records a contract rollover for a series.
type MarketRoll struct {
	PrevSlug    string // empty on first discovery
	NewSlug     string
	ConditionID string
	YesTokenID  string
	Strike      float64
	Expiry      time.Time
}

// SeriesSnapshot is the per-tick observability record, emitted every
// evaluation regardless of whether a trade results.
type SeriesSnapshot struct {
	Slug          string
	Spot          float64
	Strike        float64
	YesPrice      float64
	ModelProb     float64
	EdgeBps       float64
	TimeToExpiryS float64
	Decision      Direction
	Note          string // e.g. "no_strike_parse", "stream_stale"
}

// SubmitStatus is the outcome of a paper order submission.
type SubmitStatus string

const (
	SubmitFilled   SubmitStatus = "filled"
	SubmitRejected SubmitStatus = "rejected"
)

// PaperSubmit records every attempted paper action: opens, closes, both legs
// of a flip, and risk rejections (with the blocking reason).
type PaperSubmit struct {
	IntentID      string
	Slug          string
	Action        string // "open" | "close" | "flip_close" | "flip_open"
	Side          Direction
	Price         float64
	Notional      float64
	Shares        float64
	RealizedDelta float64
	RealizedTotal float64
	Unrealized    float64
	Status        SubmitStatus
	Reason        string // "signal", "stop_loss", "take_profit", "rollover", or the blocked reason
}

// TelemetrySnapshot summarizes pipeline health and PnL across all series.
type TelemetrySnapshot struct {
	Loops         int64
	Submits       int64
	Rejects       int64
	RejectRate    float64
	P50SubmitMs   float64
	P95SubmitMs   float64
	P99SubmitMs   float64
	RealizedPnL   float64
	UnrealizedPnL float64
	OpenPositions int
	KillSwitch    bool
	KillReason    string
}

// NewMarketRoll builds a market_roll record for a series rollover.
func NewMarketRoll(id string, prev string, c Contract, at time.Time) AuditRecord {
	return AuditRecord{
		ID:     id,
		Kind:   AuditMarketRoll,
		Series: c.Series,
		At:     at,
		Roll: &MarketRoll{
			PrevSlug:    prev,
			NewSlug:     c.Slug,
			ConditionID: c.ConditionID,
			YesTokenID:  c.YesTokenID,
			Strike:      c.Strike,
			Expiry:      c.Expiry,
		},
	}
}

// NewSeriesSnapshot builds the per-tick series_snapshot record.
func NewSeriesSnapshot(id string, series Series, at time.Time, s SeriesSnapshot) AuditRecord {
	return AuditRecord{ID: id, Kind: AuditSeriesSnapshot, Series: series, At: at, Snapshot: &s}
}

// NewPaperSubmit builds a paper_submit record.
func NewPaperSubmit(id string, series Series, at time.Time, s PaperSubmit) AuditRecord {
	return AuditRecord{ID: id, Kind: AuditPaperSubmit, Series: series, At: at, Submit: &s}
}

// NewTelemetrySnapshot builds the periodic process-wide telemetry record.
func NewTelemetrySnapshot(id string, at time.Time, t TelemetrySnapshot) AuditRecord {
	return AuditRecord{ID: id, Kind: AuditTelemetrySnapshot, At: at, Telemetry: &t}
}
