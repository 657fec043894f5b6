package ports

import "github.com/greg-czaplicki/coinbot-alpha/internal/domain"

// Notifier presents the run summary to the operator.
type Notifier interface {
	// PrintSummary renders open positions and PnL totals, typically on
	// shutdown.
	PrintSummary(positions []domain.Position, realized, unrealized float64)
}
