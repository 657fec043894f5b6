// Package engine contains the per-series decision pipeline: contract
// resolution, price feeds, edge computation, risk gating, paper execution and
// telemetry. Two pipelines (5m, 15m) run concurrently; a fault in one never
// propagates to the other.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

// PipelineOpts wires one series pipeline. All fields are required.
type PipelineOpts struct {
	Spec           domain.SeriesSpec
	Resolver       *Resolver
	Stream         ports.PriceStream
	Feed           *ReferenceFeed
	Edge           *EdgeEngine
	Risk           *Manager
	State          *RiskState
	Ledger         *Ledger
	Sink           ports.AuditSink
	Collector      *Collector
	TickInterval   time.Duration
	FatalStaleness time.Duration
}

// Pipeline is the evaluation loop of one series. Ticks are exclusive: a tick
// that overruns its interval causes the next one to be skipped, never
// overlapped.
type Pipeline struct {
	spec           domain.SeriesSpec
	resolver       *Resolver
	stream         ports.PriceStream
	feed           *ReferenceFeed
	edge           *EdgeEngine
	risk           *Manager
	state          *RiskState
	ledger         *Ledger
	sink           ports.AuditSink
	collector      *Collector
	interval       time.Duration
	fatalStaleness time.Duration

	busy            atomic.Bool
	active          domain.Contract
	feedDownSince   time.Time
	streamDownSince time.Time
}

// NewPipeline assembles a series pipeline from its parts.
func NewPipeline(o PipelineOpts) *Pipeline {
	return &Pipeline{
		spec:           o.Spec,
		resolver:       o.Resolver,
		stream:         o.Stream,
		feed:           o.Feed,
		edge:           o.Edge,
		risk:           o.Risk,
		state:          o.State,
		ledger:         o.Ledger,
		sink:           o.Sink,
		collector:      o.Collector,
		interval:       o.TickInterval,
		fatalStaleness: o.FatalStaleness,
	}
}

// Run ticks the pipeline until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(ctx, time.Now().UTC())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick runs one evaluation. Safe to call directly in tests; concurrent calls
// are collapsed by the exclusive gate.
func (p *Pipeline) Tick(ctx context.Context, now time.Time) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)
	defer p.collector.TickDone()

	contract, err := p.resolver.Resolve(ctx, now)
	if err != nil && !errors.Is(err, domain.ErrMetadataIncomplete) {
		slog.Warn("contract resolution failed", "series", p.spec.Series, "error", err)
		return
	}
	if contract.Slug != p.active.Slug {
		p.handleRoll(ctx, contract, now)
	}
	if err != nil || !contract.HasStrike() {
		p.snapshot(ctx, now, domain.SeriesSnapshot{Note: "no_strike_parse"})
		return
	}

	spot, err := p.feed.Snapshot(now)
	if err != nil {
		p.noteFeedDown(now)
		p.snapshot(ctx, now, domain.SeriesSnapshot{Strike: contract.Strike, Note: "reference_unavailable"})
		return
	}
	p.feedDownSince = time.Time{}

	quote, err := p.stream.Latest(p.spec.Series)
	if err != nil {
		p.noteStreamDown(now)
		note := "stream_disconnected"
		if errors.Is(err, domain.ErrStale) {
			note = "stream_stale"
		}
		p.snapshot(ctx, now, domain.SeriesSnapshot{Spot: spot.Value, Strike: contract.Strike, Note: note})
		return
	}
	p.streamDownSince = time.Time{}

	tte := contract.TimeToExpiry(now)
	eval := p.edge.Evaluate(p.spec.Series, spot.Value, contract.Strike, quote.Value, tte, now)

	var posPtr *domain.Position
	unrealized := 0.0
	if pos, ok := p.ledger.Position(p.spec.Series); ok {
		posPtr = &pos
		unrealized = p.ledger.Unrealized(p.spec.Series, quote.Value)
	}

	decision := p.risk.Assess(p.spec, eval.Signal, posPtr, unrealized, now)
	p.apply(ctx, decision, contract, quote.Value, now)

	p.risk.CheckRealized(p.ledger.RealizedTotal(), now)
	if reason, ok := p.collector.Alert(); ok {
		if p.state.Trip(reason, now) {
			slog.Error("kill switch tripped", "reason", reason)
		}
	}

	p.snapshot(ctx, now, domain.SeriesSnapshot{
		Spot:          spot.Value,
		Strike:        contract.Strike,
		YesPrice:      quote.Value,
		ModelProb:     eval.ModelProb,
		EdgeBps:       eval.EdgeBps,
		TimeToExpiryS: tte.Seconds(),
		Decision:      eval.Signal.Direction,
	})
}

// handleRoll retires the previous contract: any position pinned to it is
// force-closed at the last observed price, then exactly one market_roll is
// audited and the stream resubscribes to the new YES token.
func (p *Pipeline) handleRoll(ctx context.Context, next domain.Contract, now time.Time) {
	prev := p.active

	if pos, ok := p.ledger.Position(p.spec.Series); ok && pos.Slug == prev.Slug {
		price := pos.EntryPrice
		if q, err := p.stream.Latest(p.spec.Series); err == nil {
			price = q.Value
		}

		start := time.Now()
		closed, delta, total, err := p.ledger.Close(p.spec.Series, price, now)
		if err != nil {
			slog.Error("rollover close failed", "series", p.spec.Series, "error", err)
		} else {
			p.collector.RecordSubmit(time.Since(start), false)
			p.risk.NoteSubmit(p.spec.Series, now)
			p.append(ctx, domain.NewPaperSubmit(uuid.NewString(), p.spec.Series, now, domain.PaperSubmit{
				IntentID:      uuid.NewString(),
				Slug:          closed.Slug,
				Action:        "close",
				Side:          closed.Side,
				Price:         price,
				Notional:      closed.Notional,
				Shares:        closed.Shares,
				RealizedDelta: delta,
				RealizedTotal: total,
				Status:        domain.SubmitFilled,
				Reason:        "rollover",
			}))
		}
	}

	p.active = next
	p.append(ctx, domain.NewMarketRoll(uuid.NewString(), prev.Slug, next, now))
	p.stream.Subscribe(p.spec.Series, next.YesTokenID)
	slog.Info("market rolled",
		"series", p.spec.Series,
		"prev", prev.Slug,
		"next", next.Slug,
		"strike", next.Strike,
		"expiry", next.Expiry,
	)
}

// apply executes a risk decision against the ledger and audits every attempt.
func (p *Pipeline) apply(ctx context.Context, d Decision, contract domain.Contract, yesPrice float64, now time.Time) {
	series := p.spec.Series

	switch d.Action {
	case ActionNone:
		return

	case ActionOpen:
		start := time.Now()
		pos, err := p.ledger.Open(series, contract.Slug, d.Side, yesPrice, now)
		if err != nil {
			slog.Warn("paper open failed", "series", series, "error", err)
			return
		}
		p.collector.RecordSubmit(time.Since(start), false)
		p.risk.NoteSubmit(series, now)
		p.auditSubmit(ctx, now, domain.PaperSubmit{
			IntentID:      uuid.NewString(),
			Slug:          pos.Slug,
			Action:        "open",
			Side:          pos.Side,
			Price:         yesPrice,
			Notional:      pos.Notional,
			Shares:        pos.Shares,
			RealizedTotal: p.ledger.RealizedTotal(),
			Status:        domain.SubmitFilled,
			Reason:        d.Reason,
		})

	case ActionClose:
		start := time.Now()
		closed, delta, total, err := p.ledger.Close(series, yesPrice, now)
		if err != nil {
			slog.Warn("paper close failed", "series", series, "error", err)
			return
		}
		p.collector.RecordSubmit(time.Since(start), false)
		p.risk.NoteSubmit(series, now)
		p.auditSubmit(ctx, now, domain.PaperSubmit{
			IntentID:      uuid.NewString(),
			Slug:          closed.Slug,
			Action:        "close",
			Side:          closed.Side,
			Price:         yesPrice,
			Notional:      closed.Notional,
			Shares:        closed.Shares,
			RealizedDelta: delta,
			RealizedTotal: total,
			Status:        domain.SubmitFilled,
			Reason:        d.Reason,
		})

	case ActionFlip:
		start := time.Now()
		closed, opened, delta, total, err := p.ledger.Flip(series, contract.Slug, d.Side, yesPrice, now)
		if err != nil {
			slog.Warn("paper flip failed", "series", series, "error", err)
			return
		}
		latency := time.Since(start)
		p.collector.RecordSubmit(latency, false)
		p.collector.RecordSubmit(latency, false)
		p.risk.NoteSubmit(series, now)
		intentID := uuid.NewString() // both legs share one intent
		p.auditSubmit(ctx, now, domain.PaperSubmit{
			IntentID:      intentID,
			Slug:          closed.Slug,
			Action:        "flip_close",
			Side:          closed.Side,
			Price:         yesPrice,
			Notional:      closed.Notional,
			Shares:        closed.Shares,
			RealizedDelta: delta,
			RealizedTotal: total,
			Status:        domain.SubmitFilled,
			Reason:        d.Reason,
		})
		p.auditSubmit(ctx, now, domain.PaperSubmit{
			IntentID:      intentID,
			Slug:          opened.Slug,
			Action:        "flip_open",
			Side:          opened.Side,
			Price:         yesPrice,
			Notional:      opened.Notional,
			Shares:        opened.Shares,
			RealizedTotal: total,
			Status:        domain.SubmitFilled,
			Reason:        d.Reason,
		})

	case ActionReject:
		p.collector.RecordSubmit(0, true)
		p.auditSubmit(ctx, now, domain.PaperSubmit{
			IntentID: uuid.NewString(),
			Slug:     contract.Slug,
			Action:   "open",
			Side:     d.Side,
			Price:    yesPrice,
			Status:   domain.SubmitRejected,
			Reason:   d.Reason,
		})
	}
}

func (p *Pipeline) auditSubmit(ctx context.Context, now time.Time, s domain.PaperSubmit) {
	p.append(ctx, domain.NewPaperSubmit(uuid.NewString(), p.spec.Series, now, s))
}

func (p *Pipeline) snapshot(ctx context.Context, now time.Time, s domain.SeriesSnapshot) {
	if s.Slug == "" {
		s.Slug = p.active.Slug
	}
	if s.Decision == "" {
		s.Decision = domain.Flat
	}
	p.append(ctx, domain.NewSeriesSnapshot(uuid.NewString(), p.spec.Series, now, s))
}

func (p *Pipeline) append(ctx context.Context, rec domain.AuditRecord) {
	if err := p.sink.Append(ctx, rec); err != nil {
		slog.Error("audit append failed", "kind", rec.Kind, "series", rec.Series, "error", err)
	}
}

func (p *Pipeline) noteFeedDown(now time.Time) {
	if p.feedDownSince.IsZero() {
		p.feedDownSince = now
		return
	}
	if now.Sub(p.feedDownSince) >= p.fatalStaleness {
		if p.state.Trip("reference_feed_down", now) {
			slog.Error("kill switch tripped", "reason", "reference_feed_down", "series", p.spec.Series)
		}
	}
}

func (p *Pipeline) noteStreamDown(now time.Time) {
	if p.streamDownSince.IsZero() {
		p.streamDownSince = now
		return
	}
	if now.Sub(p.streamDownSince) >= p.fatalStaleness {
		if p.state.Trip("price_stream_down", now) {
			slog.Error("kill switch tripped", "reason", "price_stream_down", "series", p.spec.Series)
		}
	}
}

// Engine runs the whole bot: the shared feeds, both series pipelines and the
// periodic telemetry snapshot.
type Engine struct {
	pipelines         []*Pipeline
	stream            ports.PriceStream
	feed              *ReferenceFeed
	ledger            *Ledger
	state             *RiskState
	collector         *Collector
	sink              ports.AuditSink
	telemetryInterval time.Duration
}

// NewEngine assembles the process-level runner.
func NewEngine(pipelines []*Pipeline, stream ports.PriceStream, feed *ReferenceFeed, ledger *Ledger, state *RiskState, collector *Collector, sink ports.AuditSink, telemetryInterval time.Duration) *Engine {
	return &Engine{
		pipelines:         pipelines,
		stream:            stream,
		feed:              feed,
		ledger:            ledger,
		state:             state,
		collector:         collector,
		sink:              sink,
		telemetryInterval: telemetryInterval,
	}
}

// Run starts every goroutine and blocks until the context is cancelled and
// all of them have drained.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.stream.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.feed.Run(ctx)
	}()

	for _, p := range e.pipelines {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.telemetryLoop(ctx)
	}()

	wg.Wait()
}

func (e *Engine) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(e.telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.emitTelemetry(ctx, time.Now().UTC())
		}
	}
}

func (e *Engine) emitTelemetry(ctx context.Context, now time.Time) {
	unrealized := e.ledger.UnrealizedTotal(func(series domain.Series) (float64, bool) {
		q, err := e.stream.Latest(series)
		if err != nil {
			return 0, false
		}
		return q.Value, true
	})

	snap := e.collector.Snapshot(
		e.ledger.RealizedTotal(),
		unrealized,
		len(e.ledger.Positions()),
		e.state.Tripped(),
		e.state.Reason(),
	)
	if err := e.sink.Append(ctx, domain.NewTelemetrySnapshot(uuid.NewString(), now, snap)); err != nil {
		slog.Error("audit append failed", "kind", domain.AuditTelemetrySnapshot, "error", err)
	}
}

// Summary exposes the end-of-run totals for the console notifier.
func (e *Engine) Summary() ([]domain.Position, float64, float64) {
	unrealized := e.ledger.UnrealizedTotal(func(series domain.Series) (float64, bool) {
		q, err := e.stream.Latest(series)
		if err != nil {
			return 0, false
		}
		return q.Value, true
	})
	return e.ledger.Positions(), e.ledger.RealizedTotal(), unrealized
}
