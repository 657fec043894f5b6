package ports

import "time"

// Estimator maps (spot, strike, time-to-expiry) to the model-implied
// probability of the reference price finishing above the strike. Variants are
// selected by configuration at startup; implementations must be pure and
// monotonic in spot.
type Estimator interface {
	Estimate(spot, strike float64, timeToExpiry time.Duration) float64
}
