package ports

import (
	"context"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// Discovery lists the live contracts of a slug family from the market
// discovery source.
type Discovery interface {
	// FetchSeriesContracts returns every active, non-closed contract whose
	// slug belongs to the given family prefix. Pagination is handled
	// internally.
	FetchSeriesContracts(ctx context.Context, spec domain.SeriesSpec) ([]domain.Contract, error)
}
