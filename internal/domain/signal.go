package domain

import "time"

// Direction is the trade direction a signal proposes.
type Direction string

const (
	BuyYes Direction = "BUY_YES"
	BuyNo  Direction = "BUY_NO"
	Flat   Direction = "FLAT"
)

// Opposite returns the flip side of a directional signal. Flat has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case BuyYes:
		return BuyNo
	case BuyNo:
		return BuyYes
	}
	return Flat
}

// Signal is the candidate action produced by the edge engine for one tick.
// It is ephemeral: consumed by the risk manager, never stored.
type Signal struct {
	Series    Series
	Direction Direction
	EdgeBps   float64
	At        time.Time
}

// EdgeBps is the signed difference between the model-implied probability and
// the market YES price, in basis points.
func EdgeBps(modelProb, yesPrice float64) float64 {
	return (modelProb - yesPrice) * 10000
}

// SignalFromEdge applies the threshold rule to a computed edge. The comparison
// is inclusive on both sides: an edge exactly at the threshold trades.
func SignalFromEdge(series Series, edgeBps, thresholdBps float64, at time.Time) Signal {
	dir := Flat
	switch {
	case edgeBps >= thresholdBps:
		dir = BuyYes
	case edgeBps <= -thresholdBps:
		dir = BuyNo
	}
	return Signal{Series: series, Direction: dir, EdgeBps: edgeBps, At: at}
}
