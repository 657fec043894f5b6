package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

// ReferenceFeed polls the spot price on a fixed interval and serves the
// latest quote to all series pipelines. Single writer (the poll loop),
// many readers.
type ReferenceFeed struct {
	source   ports.ReferenceSource
	interval time.Duration
	maxAge   time.Duration

	mu   sync.RWMutex
	last domain.Quote
}

// NewReferenceFeed creates a feed that polls every interval and considers a
// quote unusable once it is older than maxAge.
func NewReferenceFeed(source ports.ReferenceSource, interval, maxAge time.Duration) *ReferenceFeed {
	return &ReferenceFeed{source: source, interval: interval, maxAge: maxAge}
}

// Run polls until the context is cancelled. Fetch failures are logged and
// absorbed: the last quote keeps serving with its true, growing age.
func (f *ReferenceFeed) Run(ctx context.Context) {
	f.poll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.poll(ctx)
		}
	}
}

func (f *ReferenceFeed) poll(ctx context.Context) {
	quote, err := f.source.FetchSpot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("reference price fetch failed", "error", err)
		}
		return
	}
	f.mu.Lock()
	f.last = quote
	f.mu.Unlock()
}

// Snapshot returns the latest quote, or domain.ErrUnavailable when no quote
// exists yet or the last one aged past the bound. The stale quote is still
// returned alongside the error so callers can log its age.
func (f *ReferenceFeed) Snapshot(now time.Time) (domain.Quote, error) {
	f.mu.RLock()
	quote := f.last
	f.mu.RUnlock()

	if quote.Zero() || quote.Age(now) > f.maxAge {
		return quote, domain.ErrUnavailable
	}
	return quote, nil
}
