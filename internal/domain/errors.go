package domain

import "errors"

// Sentinel errors shared across the pipeline. All of them are designed
// control-flow outcomes: the affected series skips its tick, nothing halts.
var (
	// ErrMetadataIncomplete means the active contract carries no parseable strike.
	ErrMetadataIncomplete = errors.New("contract metadata incomplete")

	// ErrStale means the source connected but has not updated within tolerance.
	ErrStale = errors.New("quote stale")

	// ErrDisconnected means the price stream currently has no live subscription.
	ErrDisconnected = errors.New("stream disconnected")

	// ErrUnavailable means the reference feed exceeded its staleness bound.
	ErrUnavailable = errors.New("reference price unavailable")

	// ErrNoActiveContract means discovery returned no live candidate for the series.
	ErrNoActiveContract = errors.New("no active contract for series")
)
