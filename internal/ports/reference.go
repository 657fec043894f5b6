package ports

import (
	"context"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// ReferenceSource fetches the spot price of the reference symbol.
type ReferenceSource interface {
	// FetchSpot performs one request/response fetch. Failures are transient
	// by definition; the caller keeps serving its last known quote.
	FetchSpot(ctx context.Context) (domain.Quote, error)
}
