package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

// Resolver tracks the active contract of one series. Discovery is refreshed
// on a fixed interval, and immediately when the current contract expires.
type Resolver struct {
	discovery ports.Discovery
	spec      domain.SeriesSpec
	refresh   time.Duration

	mu        sync.Mutex
	current   domain.Contract
	lastFetch time.Time
}

// NewResolver creates a resolver for the series with the given discovery
// refresh interval.
func NewResolver(discovery ports.Discovery, spec domain.SeriesSpec, refresh time.Duration) *Resolver {
	return &Resolver{discovery: discovery, spec: spec, refresh: refresh}
}

// Resolve returns the contract the series should track right now. Callers
// detect a rollover by comparing the returned slug with the one they hold.
//
// A contract without a parseable strike is still committed (so the stream can
// subscribe and the roll is audited once) but returns ErrMetadataIncomplete:
// the series must skip evaluation until the metadata resolves.
func (r *Resolver) Resolve(ctx context.Context, now time.Time) (domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.current.Slug != "" && !r.current.Expired(now)
	if live && now.Sub(r.lastFetch) < r.refresh {
		return r.currentLocked()
	}

	contracts, err := r.discovery.FetchSeriesContracts(ctx, r.spec)
	if err != nil {
		// keep serving the current contract through transient discovery
		// failures as long as it has not expired
		if live {
			return r.currentLocked()
		}
		return domain.Contract{}, fmt.Errorf("engine.Resolver.Resolve: %w", err)
	}
	r.lastFetch = now

	next, ok := pickContract(contracts, r.spec.SeedSlug, now)
	if !ok {
		if live {
			return r.currentLocked()
		}
		return domain.Contract{}, fmt.Errorf("engine.Resolver.Resolve %s: %w", r.spec.Series, domain.ErrNoActiveContract)
	}

	r.current = next
	return r.currentLocked()
}

func (r *Resolver) currentLocked() (domain.Contract, error) {
	if !r.current.HasStrike() {
		return r.current, domain.ErrMetadataIncomplete
	}
	return r.current, nil
}

// Current returns the contract the resolver last committed, if any.
func (r *Resolver) Current() (domain.Contract, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current.Slug != ""
}

// pickContract selects the contract whose window contains now: the smallest
// expiry still in the future. When none qualifies it falls back to the
// configured seed slug.
func pickContract(contracts []domain.Contract, seedSlug string, now time.Time) (domain.Contract, bool) {
	var best domain.Contract
	found := false
	for _, c := range contracts {
		if c.Expired(now) {
			continue
		}
		if !found || c.Expiry.Before(best.Expiry) {
			best = c
			found = true
		}
	}
	if found {
		return best, true
	}

	for _, c := range contracts {
		if c.Slug == seedSlug {
			return c, true
		}
	}
	return domain.Contract{}, false
}
