// Package binance fetches the spot reference price for a fixed symbol.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

const (
	defaultBase    = "https://api.binance.com"
	tickerPath     = "/api/v3/ticker/price"
	requestTimeout = 3 * time.Second
)

// SpotClient implements ports.ReferenceSource against the public ticker
// endpoint. The symbol is fixed for the run.
type SpotClient struct {
	rest   *resty.Client
	symbol string
}

// tickerResponse is the raw payload: {"symbol":"BTCUSDT","price":"67000.10"}.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewSpotClient creates a client for the given symbol. An empty base URL
// selects production.
func NewSpotClient(baseURL, symbol string) *SpotClient {
	if baseURL == "" {
		baseURL = defaultBase
	}
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")
	return &SpotClient{rest: rest, symbol: strings.ToUpper(symbol)}
}

// FetchSpot performs one ticker fetch. Any failure is transient: the caller
// keeps serving its last known quote with increased staleness.
func (c *SpotClient) FetchSpot(ctx context.Context) (domain.Quote, error) {
	var payload tickerResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("symbol", c.symbol).
		SetResult(&payload).
		Get(tickerPath)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("binance.FetchSpot: %w", err)
	}
	if resp.IsError() {
		return domain.Quote{}, fmt.Errorf("binance.FetchSpot: status %d: %s", resp.StatusCode(), resp.String())
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || price <= 0 {
		return domain.Quote{}, fmt.Errorf("binance.FetchSpot: bad price %q", payload.Price)
	}

	return domain.Quote{
		Source:     domain.SourceReference,
		Value:      price,
		ObservedAt: time.Now().UTC(),
	}, nil
}
