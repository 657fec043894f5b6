package engine

import (
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

// EdgeEngine turns a (spot, strike, yes price) observation into a trade
// signal by comparing the model-implied probability with the market price.
type EdgeEngine struct {
	estimator    ports.Estimator
	thresholdBps float64
}

// NewEdgeEngine creates an engine with the given signal threshold in basis
// points. The threshold comparison is inclusive on both sides.
func NewEdgeEngine(estimator ports.Estimator, thresholdBps float64) *EdgeEngine {
	return &EdgeEngine{estimator: estimator, thresholdBps: thresholdBps}
}

// Evaluation is the full output of one edge computation, kept together so the
// audit snapshot and the risk assessment see the same numbers.
type Evaluation struct {
	ModelProb float64
	EdgeBps   float64
	Signal    domain.Signal
}

// Evaluate computes the model probability and edge for one tick and applies
// the threshold rule. Pure: no state, no side effects.
func (e *EdgeEngine) Evaluate(series domain.Series, spot, strike, yesPrice float64, timeToExpiry time.Duration, now time.Time) Evaluation {
	prob := e.estimator.Estimate(spot, strike, timeToExpiry)
	edge := domain.EdgeBps(prob, yesPrice)
	return Evaluation{
		ModelProb: prob,
		EdgeBps:   edge,
		Signal:    domain.SignalFromEdge(series, edge, e.thresholdBps, now),
	}
}
