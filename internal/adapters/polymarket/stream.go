package polymarket

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// Reconnection constants for the market channel.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterPercent  = 0.2

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// StreamState is the subscription lifecycle:
// Disconnected → Connecting → Subscribed → Stale → Disconnected.
type StreamState int32

const (
	StateDisconnected StreamState = iota
	StateConnecting
	StateSubscribed
	StateStale
)

func (s StreamState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStale:
		return "stale"
	}
	return "disconnected"
}

// Stream implements ports.PriceStream on the CLOB market websocket. One
// subscription goroutine runs per series; quotes land in a single-slot
// latest-wins cell. Intermediate updates may be dropped: the evaluation loop
// only ever needs the freshest price.
type Stream struct {
	wsURL      string
	staleAfter time.Duration

	mu      sync.Mutex
	subs    map[domain.Series]*subscription
	ctx     context.Context
	started bool
	wg      sync.WaitGroup
}

type subscription struct {
	series  domain.Series
	tokenID string
	cancel  context.CancelFunc

	mu    sync.RWMutex
	state StreamState
	quote domain.Quote
}

// NewStream creates a Stream. An empty URL selects the production channel.
// staleAfter bounds how old a quote may be before Latest reports ErrStale.
func NewStream(wsURL string, staleAfter time.Duration) *Stream {
	if wsURL == "" {
		wsURL = defaultWSBase
	}
	return &Stream{
		wsURL:      wsURL,
		staleAfter: staleAfter,
		subs:       make(map[domain.Series]*subscription),
	}
}

// Run drives all subscription loops until ctx is cancelled. Subscriptions
// registered before Run are started here; later ones start immediately.
func (s *Stream) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.started = true
	for _, sub := range s.subs {
		s.launch(ctx, sub)
	}
	s.mu.Unlock()

	<-ctx.Done()
	s.wg.Wait()
}

// Subscribe points the series at a new outcome token. Any previous
// subscription is torn down regardless of its state.
func (s *Stream) Subscribe(series domain.Series, tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.subs[series]; ok {
		if prev.tokenID == tokenID {
			return
		}
		if prev.cancel != nil {
			prev.cancel()
		}
	}

	sub := &subscription{series: series, tokenID: tokenID, state: StateDisconnected}
	s.subs[series] = sub
	if s.started {
		s.launch(s.ctx, sub)
	}
}

// Latest returns the freshest quote for the series. Stale and disconnected
// subscriptions yield errors, never a reusable price.
func (s *Stream) Latest(series domain.Series) (domain.Quote, error) {
	s.mu.Lock()
	sub, ok := s.subs[series]
	s.mu.Unlock()
	if !ok {
		return domain.Quote{}, domain.ErrDisconnected
	}

	sub.mu.RLock()
	state, quote := sub.state, sub.quote
	sub.mu.RUnlock()

	if quote.Zero() {
		return domain.Quote{}, domain.ErrDisconnected
	}
	if state == StateDisconnected || state == StateConnecting {
		return domain.Quote{}, domain.ErrDisconnected
	}
	if quote.Age(time.Now()) > s.staleAfter {
		return domain.Quote{}, domain.ErrStale
	}
	return quote, nil
}

// State reports the series' subscription state, for telemetry.
func (s *Stream) State(series domain.Series) StreamState {
	s.mu.Lock()
	sub, ok := s.subs[series]
	s.mu.Unlock()
	if !ok {
		return StateDisconnected
	}
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	return sub.state
}

func (s *Stream) launch(parent context.Context, sub *subscription) {
	ctx, cancel := context.WithCancel(parent)
	sub.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSubscription(ctx, sub)
	}()
}

// runSubscription is the reconnect loop: unlimited retries with capped
// exponential backoff — this channel is not allowed to permanently die while
// the series is live.
func (s *Stream) runSubscription(ctx context.Context, sub *subscription) {
	backoff := initialBackoff

	for ctx.Err() == nil {
		sub.setState(StateConnecting)

		err := s.connectAndRead(ctx, sub)
		sub.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			slog.Warn("market channel error",
				"series", sub.series,
				"token", shortToken(sub.tokenID),
				"err", err,
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(withJitter(backoff)):
		}
		backoff = nextBackoff(backoff)
	}
}

// connectAndRead dials, subscribes, and pumps messages until the connection
// breaks or the context is cancelled. Returns nil only on cancellation.
func (s *Stream) connectAndRead(ctx context.Context, sub *subscription) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	req := wsSubscribeRequest{
		Type:      "market",
		AssetsIDs: []string{sub.tokenID},
		AssetIDs:  []string{sub.tokenID},
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return err
	}
	sub.setState(StateSubscribed)
	slog.Info("market channel subscribed",
		"series", sub.series,
		"token", shortToken(sub.tokenID),
	)

	for ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(s.staleAfter))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// No update within tolerance: surface staleness, then let
				// the reconnect loop rebuild the subscription.
				sub.setState(StateStale)
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.consume(sub, data)
	}
	return nil
}

// consume walks a raw market-channel message and stores any price that
// matches the subscribed token.
func (s *Stream) consume(sub *subscription, data []byte) {
	s.walk(sub, data, "")
}

func (s *Stream) walk(sub *subscription, raw []byte, inheritedAsset string) {
	trimmed := trimSpaceLeft(raw)
	if len(trimmed) == 0 {
		return
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return
		}
		for _, item := range items {
			s.walk(sub, item, inheritedAsset)
		}
		return
	}

	var ev wsMarketEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return
	}

	asset := ev.AssetID
	if asset == "" {
		asset = inheritedAsset
	}
	if asset == sub.tokenID {
		if price, ok := extractPrice(ev); ok {
			sub.setQuote(domain.Quote{
				Source:     domain.SourceContract,
				Value:      price,
				ObservedAt: time.Now().UTC(),
			})
		}
	}

	for _, nested := range ev.Events {
		s.walk(sub, nested, asset)
	}
	for _, change := range ev.Changes {
		s.walk(sub, change, asset)
	}
}

// extractPrice prefers the traded price, then best bid, then best ask.
func extractPrice(ev wsMarketEvent) (float64, bool) {
	for _, n := range []json.Number{ev.Price, ev.BestBid, ev.BestAsk} {
		if n == "" {
			continue
		}
		if v, err := n.Float64(); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func (sub *subscription) setState(st StreamState) {
	sub.mu.Lock()
	sub.state = st
	sub.mu.Unlock()
}

func (sub *subscription) setQuote(q domain.Quote) {
	sub.mu.Lock()
	sub.quote = q
	if sub.state == StateStale {
		sub.state = StateSubscribed
	}
	sub.mu.Unlock()
}

func nextBackoff(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * backoffFactor)
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	jitter := 1 + jitterPercent*(2*rand.Float64()-1)
	return time.Duration(float64(d) * jitter)
}

func shortToken(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func trimSpaceLeft(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\n' || b[0] == '\r') {
		b = b[1:]
	}
	return b
}
