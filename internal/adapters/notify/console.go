// Package notify renders operator-facing output for the paper trader.
package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// Console implements ports.Notifier on stdout.
type Console struct {
	out io.Writer
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintSummary renders the open positions and PnL totals as a table. Called
// on shutdown so the operator sees where the run ended.
func (c *Console) PrintSummary(positions []domain.Position, realized, unrealized float64) {
	now := time.Now().UTC()

	fmt.Fprintf(c.out, "\n=== paper session summary (%s) ===\n", now.Format("2006-01-02 15:04:05 MST"))

	if len(positions) == 0 {
		fmt.Fprintln(c.out, "no open positions")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("Series", "Market", "Side", "Entry", "Shares", "Notional", "Held")

		for _, p := range positions {
			table.Append(
				string(p.Series),
				p.Slug,
				string(p.Side),
				fmt.Sprintf("%.4f", p.EntryPrice),
				fmt.Sprintf("%.2f", p.Shares),
				fmt.Sprintf("$%.2f", p.Notional),
				p.HeldFor(now).Round(time.Second).String(),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "realized PnL:   %+.2f USD\n", realized)
	fmt.Fprintf(c.out, "unrealized PnL: %+.2f USD\n", unrealized)
	fmt.Fprintf(c.out, "total PnL:      %+.2f USD\n", realized+unrealized)
}
