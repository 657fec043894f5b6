package polymarket

import (
	"encoding/json"
	"io"
)

// Raw DTOs of the CLOB API. Only used inside this package.

// samplingMarketsResponse is the paginated response of GET /sampling-markets.
type samplingMarketsResponse struct {
	Limit      int              `json:"limit"`
	Count      int              `json:"count"`
	NextCursor string           `json:"next_cursor"`
	Data       []samplingMarket `json:"data"`
}

// samplingMarket is one market as returned by the CLOB.
type samplingMarket struct {
	ConditionID string      `json:"condition_id"`
	QuestionID  string      `json:"question_id"`
	Question    string      `json:"question"`
	MarketSlug  string      `json:"market_slug"`
	EndDateISO  string      `json:"end_date_iso"`
	Tokens      []clobToken `json:"tokens"`
	Active      bool        `json:"active"`
	Closed      bool        `json:"closed"`
}

// clobToken is one side (YES/NO) of a binary market.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// --- websocket market channel ---

// wsSubscribeRequest subscribes the connection to one or more asset IDs.
// The channel historically accepted both spellings of the field; sending the
// current one plus the legacy alias keeps older gateways working.
type wsSubscribeRequest struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids,omitempty"`
	AssetIDs  []string `json:"asset_ids,omitempty"`
}

// wsMarketEvent is the loosely-typed envelope pushed by the market channel.
// Events arrive both as single objects and as arrays; price information can
// sit at the top level or inside nested change lists.
type wsMarketEvent struct {
	EventType string            `json:"event_type"`
	AssetID   string            `json:"asset_id"`
	Market    string            `json:"market"`
	Price     json.Number       `json:"price"`
	BestBid   json.Number       `json:"best_bid"`
	BestAsk   json.Number       `json:"best_ask"`
	Changes   []json.RawMessage `json:"changes"`
	Events    []json.RawMessage `json:"events"`
}

func decodeJSON(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(out)
}
