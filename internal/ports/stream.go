package ports

import (
	"context"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// PriceStream maintains one long-lived subscription per series to the active
// contract's YES price channel.
type PriceStream interface {
	// Run drives the subscription loops until the context is cancelled.
	Run(ctx context.Context)

	// Subscribe points the series subscription at a new outcome token,
	// tearing down any previous subscription regardless of its state.
	Subscribe(series domain.Series, tokenID string)

	// Latest returns the most recent quote for the series, or
	// domain.ErrStale / domain.ErrDisconnected when there is no tradeable
	// price this tick. A stale price is never silently reused.
	Latest(series domain.Series) (domain.Quote, error)
}
