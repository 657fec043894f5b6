package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

const (
	samplingMarketsPath = "/sampling-markets"
	pageSize            = 100
	maxPages            = 30

	// "LTE=" is base64 for "-1": the CLOB's end-of-results cursor.
	endCursor = "LTE="
)

// FetchSeriesContracts returns every live contract of the series' slug
// family, paginating /sampling-markets with next_cursor until exhausted.
func (c *Client) FetchSeriesContracts(ctx context.Context, spec domain.SeriesSpec) ([]domain.Contract, error) {
	prefix := spec.SlugPrefix + "-"
	var out []domain.Contract
	cursor := ""

	for page := 0; page < maxPages; page++ {
		url := fmt.Sprintf("%s%s?limit=%d", c.clobBase, samplingMarketsPath, pageSize)
		if cursor != "" {
			url += "&next_cursor=" + cursor
		}

		var resp samplingMarketsResponse
		if err := c.get(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchSeriesContracts: %w", err)
		}

		for _, raw := range resp.Data {
			if !raw.Active || raw.Closed {
				continue
			}
			if !strings.HasPrefix(raw.MarketSlug, prefix) && raw.MarketSlug != spec.SeedSlug {
				continue
			}
			if contract, ok := mapContract(spec.Series, raw); ok {
				out = append(out, contract)
			}
		}

		if resp.NextCursor == "" || resp.NextCursor == cursor || resp.NextCursor == endCursor {
			break
		}
		cursor = resp.NextCursor
	}

	slog.Debug("series contracts fetched",
		"series", spec.Series,
		"family", spec.SlugPrefix,
		"candidates", len(out),
	)
	return out, nil
}
