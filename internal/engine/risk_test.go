package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/engine"
)

var testLimits = engine.Limits{
	StopLossUSD:       12,
	TakeProfitUSD:     18,
	MaxCumulativeLoss: 100,
	Cooldown:          20 * time.Second,
}

func fiveMinSpec() domain.SeriesSpec {
	return domain.SeriesSpec{
		Series:     domain.SeriesFiveMin,
		SlugPrefix: "btc-updown-5m",
		MinHold:    45 * time.Second,
	}
}

func signalAt(dir domain.Direction, at time.Time) domain.Signal {
	return domain.Signal{Series: domain.SeriesFiveMin, Direction: dir, EdgeBps: 900, At: at}
}

func openPosition(side domain.Direction, at time.Time) *domain.Position {
	return &domain.Position{
		Series:     domain.SeriesFiveMin,
		Slug:       "btc-updown-5m-1105",
		Side:       side,
		EntryPrice: 0.50,
		EntryAt:    at,
		Notional:   25,
		Shares:     50,
	}
}

func TestAssess_OpensWhenFlat(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()

	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now), nil, 0, now)

	assert.Equal(t, engine.ActionOpen, d.Action)
	assert.Equal(t, domain.BuyYes, d.Side)
	assert.Equal(t, "signal", d.Reason)
}

func TestAssess_FlatSignalDoesNothing(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()

	d := m.Assess(fiveMinSpec(), signalAt(domain.Flat, now), nil, 0, now)
	assert.Equal(t, engine.ActionNone, d.Action)

	// flat signal with a healthy position holds
	pos := openPosition(domain.BuyYes, now.Add(-time.Minute))
	d = m.Assess(fiveMinSpec(), signalAt(domain.Flat, now), pos, 2, now)
	assert.Equal(t, engine.ActionNone, d.Action)
}

func TestAssess_HoldsOnSameDirection(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()
	pos := openPosition(domain.BuyYes, now.Add(-time.Minute))

	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now), pos, 3, now)
	assert.Equal(t, engine.ActionNone, d.Action)
}

func TestAssess_StopLossForcesCloseEveryTick(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()
	pos := openPosition(domain.BuyYes, now.Add(-time.Second)) // inside min-hold

	// even a same-direction signal cannot override the stop
	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now), pos, -12, now)
	assert.Equal(t, engine.ActionClose, d.Action)
	assert.Equal(t, "stop_loss", d.Reason)
}

func TestAssess_TakeProfitForcesClose(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()
	pos := openPosition(domain.BuyNo, now.Add(-time.Second))

	d := m.Assess(fiveMinSpec(), signalAt(domain.Flat, now), pos, 18, now)
	assert.Equal(t, engine.ActionClose, d.Action)
	assert.Equal(t, "take_profit", d.Reason)
	assert.Equal(t, domain.BuyNo, d.Side)
}

func TestAssess_FlipOnlyAfterMinHold(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()

	early := openPosition(domain.BuyYes, now.Add(-30*time.Second))
	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyNo, now), early, -2, now)
	assert.Equal(t, engine.ActionReject, d.Action)
	assert.Equal(t, "min_hold", d.Reason)

	held := openPosition(domain.BuyYes, now.Add(-46*time.Second))
	d = m.Assess(fiveMinSpec(), signalAt(domain.BuyNo, now), held, -2, now)
	assert.Equal(t, engine.ActionFlip, d.Action)
	assert.Equal(t, domain.BuyNo, d.Side)
}

func TestAssess_KillSwitchBlocksOpensNeverCloses(t *testing.T) {
	state := engine.NewRiskState()
	m := engine.NewManager(state, testLimits)
	now := time.Now()
	state.Trip("max_loss", now)

	// open blocked
	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now), nil, 0, now)
	assert.Equal(t, engine.ActionReject, d.Action)
	assert.Equal(t, "kill_switch", d.Reason)

	// stop-loss close still happens
	pos := openPosition(domain.BuyYes, now.Add(-time.Minute))
	d = m.Assess(fiveMinSpec(), signalAt(domain.Flat, now), pos, -15, now)
	assert.Equal(t, engine.ActionClose, d.Action)

	// flip degrades to a plain close: the open leg is blocked
	d = m.Assess(fiveMinSpec(), signalAt(domain.BuyNo, now), pos, -2, now)
	assert.Equal(t, engine.ActionClose, d.Action)
	assert.Equal(t, "kill_switch", d.Reason)
	assert.Equal(t, domain.BuyYes, d.Side)
}

func TestAssess_CooldownSuppressesReentry(t *testing.T) {
	m := engine.NewManager(engine.NewRiskState(), testLimits)
	now := time.Now()
	m.NoteSubmit(domain.SeriesFiveMin, now)

	d := m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now.Add(10*time.Second)), nil, 0, now.Add(10*time.Second))
	assert.Equal(t, engine.ActionReject, d.Action)
	assert.Equal(t, "cooldown", d.Reason)

	d = m.Assess(fiveMinSpec(), signalAt(domain.BuyYes, now.Add(21*time.Second)), nil, 0, now.Add(21*time.Second))
	assert.Equal(t, engine.ActionOpen, d.Action)
}

func TestRiskState_TripIsMonotonic(t *testing.T) {
	state := engine.NewRiskState()
	now := time.Now()

	assert.False(t, state.Tripped())
	assert.True(t, state.Trip("max_loss", now))
	assert.False(t, state.Trip("reject_spike", now.Add(time.Second)))
	assert.True(t, state.Tripped())
	assert.Equal(t, "max_loss", state.Reason())
}

func TestCheckRealized_TripsOnCumulativeLoss(t *testing.T) {
	state := engine.NewRiskState()
	m := engine.NewManager(state, testLimits)
	now := time.Now()

	m.CheckRealized(-99, now)
	assert.False(t, state.Tripped())

	m.CheckRealized(-100, now)
	assert.True(t, state.Tripped())
	assert.Equal(t, "max_loss", state.Reason())
}
