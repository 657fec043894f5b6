package binance_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/binance"
	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

func TestFetchSpot_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"67000.10"}`))
	}))
	defer srv.Close()

	client := binance.NewSpotClient(srv.URL, "btcusdt")
	quote, err := client.FetchSpot(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 67000.10, quote.Value, 1e-9)
	assert.Equal(t, domain.SourceReference, quote.Source)
	assert.False(t, quote.ObservedAt.IsZero())
}

func TestFetchSpot_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := binance.NewSpotClient(srv.URL, "BTCUSDT")
	_, err := client.FetchSpot(context.Background())
	assert.Error(t, err)
}

func TestFetchSpot_MalformedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"n/a"}`))
	}))
	defer srv.Close()

	client := binance.NewSpotClient(srv.URL, "BTCUSDT")
	_, err := client.FetchSpot(context.Background())
	assert.Error(t, err)
}
