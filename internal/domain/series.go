package domain

import "time"

// Series identifies one of the rolling contract cadences tracked by the bot.
type Series string

const (
	SeriesFiveMin    Series = "5m"
	SeriesFifteenMin Series = "15m"
)

// AllSeries lists every series the pipeline runs, in display order.
func AllSeries() []Series {
	return []Series{SeriesFiveMin, SeriesFifteenMin}
}

// SeriesSpec is the immutable per-series configuration fixed at startup.
type SeriesSpec struct {
	Series     Series
	SlugPrefix string // slug family, e.g. "btc-updown-5m"
	SeedSlug   string // fallback slug when discovery returns no live candidate
	MinHold    time.Duration
}

// Cadence returns the nominal window length of the series.
func (s Series) Cadence() time.Duration {
	if s == SeriesFifteenMin {
		return 15 * time.Minute
	}
	return 5 * time.Minute
}
