package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// RiskState is the process-wide kill switch. It is an explicit shared value
// with a single logical writer; once tripped it stays tripped for the rest of
// the run. There is no reset path.
type RiskState struct {
	mu      sync.Mutex
	tripped bool
	reason  string
	at      time.Time
}

// NewRiskState returns an armed, untripped state.
func NewRiskState() *RiskState {
	return &RiskState{}
}

// Trip activates the kill switch. Only the first call wins; it reports
// whether this call was the one that tripped it.
func (s *RiskState) Trip(reason string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return false
	}
	s.tripped = true
	s.reason = reason
	s.at = now
	return true
}

// Tripped reports whether the kill switch is active.
func (s *RiskState) Tripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}

// Reason returns the trip reason, empty while armed.
func (s *RiskState) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Action is what the risk manager tells the pipeline to do this tick.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionClose
	ActionFlip
	ActionReject
)

// Decision is the risk manager's verdict for one tick.
type Decision struct {
	Action Action
	Side   domain.Direction // side to open (Open/Flip) or side being closed
	Reason string           // "signal", "stop_loss", "take_profit", or the blocked reason
}

// Limits are the risk knobs fixed at startup.
type Limits struct {
	StopLossUSD       float64
	TakeProfitUSD     float64
	MaxCumulativeLoss float64
	Cooldown          time.Duration
}

// Manager is the per-series risk gate. It never mutates positions itself; it
// reads ledger state and produces decisions the pipeline applies.
type Manager struct {
	state  *RiskState
	limits Limits

	mu            sync.Mutex
	cooldownUntil map[domain.Series]time.Time
}

// NewManager creates a manager bound to the shared kill-switch state.
func NewManager(state *RiskState, limits Limits) *Manager {
	return &Manager{
		state:         state,
		limits:        limits,
		cooldownUntil: make(map[domain.Series]time.Time),
	}
}

// Assess applies the decision table for one tick. pos is nil when the series
// is flat; unrealized is the mark-to-market PnL of the open position.
//
// Stop-loss and take-profit are checked first, every tick, independent of the
// candidate signal. The kill switch blocks opens, never closes: a
// flip-eligible opposite signal under an active kill switch degrades to a
// plain close.
func (m *Manager) Assess(spec domain.SeriesSpec, sig domain.Signal, pos *domain.Position, unrealized float64, now time.Time) Decision {
	if pos != nil {
		if unrealized <= -m.limits.StopLossUSD {
			return Decision{Action: ActionClose, Side: pos.Side, Reason: "stop_loss"}
		}
		if unrealized >= m.limits.TakeProfitUSD {
			return Decision{Action: ActionClose, Side: pos.Side, Reason: "take_profit"}
		}
	}

	if sig.Direction == domain.Flat {
		return Decision{Action: ActionNone}
	}

	if pos == nil {
		if m.state.Tripped() {
			return Decision{Action: ActionReject, Side: sig.Direction, Reason: "kill_switch"}
		}
		if m.inCooldown(sig.Series, now) {
			return Decision{Action: ActionReject, Side: sig.Direction, Reason: "cooldown"}
		}
		return Decision{Action: ActionOpen, Side: sig.Direction, Reason: "signal"}
	}

	if sig.Direction == pos.Side {
		return Decision{Action: ActionNone} // hold
	}

	// opposite signal: flip only after the series min-hold
	if pos.HeldFor(now) < spec.MinHold {
		return Decision{Action: ActionReject, Side: sig.Direction, Reason: "min_hold"}
	}
	if m.state.Tripped() {
		return Decision{Action: ActionClose, Side: pos.Side, Reason: "kill_switch"}
	}
	if m.inCooldown(sig.Series, now) {
		return Decision{Action: ActionReject, Side: sig.Direction, Reason: "cooldown"}
	}
	return Decision{Action: ActionFlip, Side: sig.Direction, Reason: "signal"}
}

// NoteSubmit starts the series cooldown after any filled submit.
func (m *Manager) NoteSubmit(series domain.Series, now time.Time) {
	if m.limits.Cooldown <= 0 {
		return
	}
	m.mu.Lock()
	m.cooldownUntil[series] = now.Add(m.limits.Cooldown)
	m.mu.Unlock()
}

func (m *Manager) inCooldown(series domain.Series, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Before(m.cooldownUntil[series])
}

// CheckRealized trips the kill switch when cumulative realized losses breach
// the configured bound. A bound of zero disables the check.
func (m *Manager) CheckRealized(realizedTotal float64, now time.Time) {
	if m.limits.MaxCumulativeLoss <= 0 {
		return
	}
	if realizedTotal <= -m.limits.MaxCumulativeLoss {
		if m.state.Trip("max_loss", now) {
			slog.Error("kill switch tripped", "reason", "max_loss", "realized", realizedTotal)
		}
	}
}
