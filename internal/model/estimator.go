// Package model hosts the probability model variants behind ports.Estimator.
// The pipeline depends only on the interface contract: probability in [0,1],
// monotonic in spot, degenerate at expiry (1 above strike, 0 below, 0.5 tie).
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

const (
	VariantVolNormal = "volnormal"
	VariantThreshold = "threshold"
)

// New selects an estimator variant by name. Called once at startup.
func New(variant string, sigmaAnnual float64) (ports.Estimator, error) {
	switch variant {
	case VariantVolNormal, "":
		return VolNormal{SigmaAnnual: sigmaAnnual}, nil
	case VariantThreshold:
		return Threshold{}, nil
	}
	return nil, fmt.Errorf("model.New: unknown variant %q", variant)
}

// VolNormal models log-distance to the strike normalized by annualized
// volatility scaled to the remaining lifetime:
//
//	z = ln(strike/spot) / (σ·√t),  p = 1 − Φ(z)
type VolNormal struct {
	SigmaAnnual float64
}

const secondsPerYear = 365.0 * 24 * 3600

func (m VolNormal) Estimate(spot, strike float64, timeToExpiry time.Duration) float64 {
	if timeToExpiry <= 0 {
		return expiryProb(spot, strike)
	}
	if spot <= 0 || strike <= 0 {
		return 0.5
	}

	// Floor at one second so z stays finite right before expiry.
	tteSec := math.Max(timeToExpiry.Seconds(), 1.0)
	volT := m.SigmaAnnual * math.Sqrt(tteSec/secondsPerYear)
	if volT <= 0 {
		return 0.5
	}

	z := math.Log(strike/spot) / volT
	return clamp01(1.0 - normalCDF(z))
}

// Threshold is the distance-free variant: a step at the strike with a narrow
// linear ramp (±10 bps of spot) so the output is not violently bistable while
// the contract is still live.
type Threshold struct{}

func (Threshold) Estimate(spot, strike float64, timeToExpiry time.Duration) float64 {
	if timeToExpiry <= 0 {
		return expiryProb(spot, strike)
	}
	if strike <= 0 {
		return 0.5
	}

	band := strike * 0.001
	switch {
	case spot >= strike+band:
		return 1.0
	case spot <= strike-band:
		return 0.0
	}
	return clamp01(0.5 + (spot-strike)/(2*band)*0.5)
}

func expiryProb(spot, strike float64) float64 {
	switch {
	case spot > strike:
		return 1.0
	case spot < strike:
		return 0.0
	}
	return 0.5
}

func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
