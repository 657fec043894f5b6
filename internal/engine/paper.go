package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// Ledger is the in-memory paper book. It owns all position state and the
// realized PnL total; at most one position per series can exist. Every
// mutation happens under one lock, so a flip exposes no intermediate state.
//
// All money arithmetic runs on decimals; floats only appear at the domain
// boundary.
type Ledger struct {
	mu        sync.Mutex
	notional  decimal.Decimal
	positions map[domain.Series]domain.Position
	realized  decimal.Decimal
}

// NewLedger creates an empty ledger with a fixed per-position notional.
func NewLedger(notionalUSD float64) *Ledger {
	return &Ledger{
		notional:  decimal.NewFromFloat(notionalUSD),
		positions: make(map[domain.Series]domain.Position),
	}
}

// Open creates a position for the series. Fails if one is already open or the
// price is not tradeable.
func (l *Ledger) Open(series domain.Series, slug string, side domain.Direction, yesPrice float64, now time.Time) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open(series, slug, side, yesPrice, now)
}

// Close closes the series position at the given YES price, realizing its PnL.
// Returns the closed position, the realized delta and the new realized total.
func (l *Ledger) Close(series domain.Series, yesPrice float64, now time.Time) (domain.Position, float64, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.close(series, yesPrice)
}

// Flip closes the current position and opens the opposite side at the same
// price, atomically. No caller can observe the flat state in between.
func (l *Ledger) Flip(series domain.Series, slug string, side domain.Direction, yesPrice float64, now time.Time) (closed, opened domain.Position, delta, total float64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	closed, delta, total, err = l.close(series, yesPrice)
	if err != nil {
		return domain.Position{}, domain.Position{}, 0, 0, err
	}
	opened, err = l.open(series, slug, side, yesPrice, now)
	if err != nil {
		return domain.Position{}, domain.Position{}, 0, 0, err
	}
	return closed, opened, delta, total, nil
}

func (l *Ledger) open(series domain.Series, slug string, side domain.Direction, yesPrice float64, now time.Time) (domain.Position, error) {
	if _, ok := l.positions[series]; ok {
		return domain.Position{}, fmt.Errorf("engine.Ledger: position already open for series %s", series)
	}
	if side != domain.BuyYes && side != domain.BuyNo {
		return domain.Position{}, fmt.Errorf("engine.Ledger: cannot open %q position", side)
	}
	if yesPrice <= 0 || yesPrice >= 1 {
		return domain.Position{}, fmt.Errorf("engine.Ledger: untradeable price %v", yesPrice)
	}

	shares := l.notional.Div(decimal.NewFromFloat(yesPrice))
	pos := domain.Position{
		Series:     series,
		Slug:       slug,
		Side:       side,
		EntryPrice: yesPrice,
		EntryAt:    now,
		Notional:   l.notional.InexactFloat64(),
		Shares:     shares.Round(6).InexactFloat64(),
	}
	l.positions[series] = pos
	return pos, nil
}

func (l *Ledger) close(series domain.Series, yesPrice float64) (domain.Position, float64, float64, error) {
	pos, ok := l.positions[series]
	if !ok {
		return domain.Position{}, 0, 0, fmt.Errorf("engine.Ledger: no open position for series %s", series)
	}
	delete(l.positions, series)

	delta := pnl(pos, yesPrice)
	l.realized = l.realized.Add(delta)
	return pos, delta.InexactFloat64(), l.realized.InexactFloat64(), nil
}

// pnl is (exit − entry) × shares on the YES axis, sign flipped for BUY_NO.
func pnl(pos domain.Position, exitPrice float64) decimal.Decimal {
	move := decimal.NewFromFloat(exitPrice).Sub(decimal.NewFromFloat(pos.EntryPrice))
	delta := move.Mul(decimal.NewFromFloat(pos.Shares))
	if pos.Side == domain.BuyNo {
		delta = delta.Neg()
	}
	return delta.Round(6)
}

// Position returns the open position for the series, if any.
func (l *Ledger) Position(series domain.Series) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[series]
	return pos, ok
}

// Positions returns all open positions in series display order.
func (l *Ledger) Positions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Position
	for _, series := range domain.AllSeries() {
		if pos, ok := l.positions[series]; ok {
			out = append(out, pos)
		}
	}
	return out
}

// RealizedTotal returns the accumulated realized PnL.
func (l *Ledger) RealizedTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realized.InexactFloat64()
}

// Unrealized marks the series position to the given YES price. Zero when the
// series is flat.
func (l *Ledger) Unrealized(series domain.Series, yesPrice float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[series]
	if !ok {
		return 0
	}
	return pnl(pos, yesPrice).InexactFloat64()
}

// UnrealizedTotal sums unrealized PnL across all open positions, asking the
// price function for each series' current YES price. Positions without a
// price contribute zero.
func (l *Ledger) UnrealizedTotal(price func(domain.Series) (float64, bool)) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for series, pos := range l.positions {
		if p, ok := price(series); ok {
			total = total.Add(pnl(pos, p))
		}
	}
	return total.InexactFloat64()
}
