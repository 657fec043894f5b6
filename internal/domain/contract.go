package domain

import "time"

// Contract is a single rolling binary market instance. Contracts are never
// mutated: a rollover produces a new Contract and retires the previous one.
type Contract struct {
	Series      Series
	Slug        string
	ConditionID string
	Question    string
	Strike      float64 // 0 when the question could not be parsed
	Expiry      time.Time
	YesTokenID  string
	NoTokenID   string
	YesPrice    float64 // last price seen at discovery time
}

// HasStrike reports whether a strike could be extracted from the metadata.
func (c Contract) HasStrike() bool {
	return c.Strike > 0
}

// TimeToExpiry returns the remaining contract lifetime, floored at zero.
func (c Contract) TimeToExpiry(now time.Time) time.Duration {
	d := c.Expiry.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the contract window has already closed.
func (c Contract) Expired(now time.Time) bool {
	return !c.Expiry.After(now)
}
