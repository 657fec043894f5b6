package domain

import "time"

// Position is an open paper position. At most one exists per series at any
// instant. The contract slug is pinned at open: a position never migrates
// across a rollover — it is force-closed when its contract retires.
//
// Prices are always expressed on the YES axis, for BUY_NO positions included;
// the sign of the PnL flips with the side instead.
type Position struct {
	Series     Series
	Slug       string
	Side       Direction // BuyYes or BuyNo, never Flat
	EntryPrice float64   // YES price at open
	EntryAt    time.Time
	Notional   float64 // fixed paper size in USD
	Shares     float64 // Notional / EntryPrice
}

// HeldFor returns how long the position has been open.
func (p Position) HeldFor(now time.Time) time.Duration {
	return now.Sub(p.EntryAt)
}

// SignedShares returns the share count signed by side: positive for BUY_YES,
// negative for BUY_NO.
func (p Position) SignedShares() float64 {
	if p.Side == BuyNo {
		return -p.Shares
	}
	return p.Shares
}
