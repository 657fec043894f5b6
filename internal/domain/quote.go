package domain

import "time"

// QuoteSource distinguishes the two price feeds the pipeline consumes.
type QuoteSource string

const (
	SourceReference QuoteSource = "reference" // spot price (Binance)
	SourceContract  QuoteSource = "contract"  // YES price (CLOB websocket)
)

// Quote is an immutable latest-wins price snapshot from one source.
type Quote struct {
	Source     QuoteSource
	Value      float64
	ObservedAt time.Time
}

// Age returns how old the quote is at the given instant.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}

// Zero reports whether the quote has never been populated.
func (q Quote) Zero() bool {
	return q.ObservedAt.IsZero()
}
