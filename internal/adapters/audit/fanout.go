package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

// Fanout forwards every record to all configured sinks. A failing sink is
// logged and skipped: a broken trail must never halt the trading pipelines.
type Fanout struct {
	sinks []ports.AuditSink
}

// NewFanout builds a fanout over the given sinks. nil entries are dropped.
func NewFanout(sinks ...ports.AuditSink) *Fanout {
	kept := make([]ports.AuditSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Fanout{sinks: kept}
}

// Append writes the record to every sink. Errors are logged, not returned.
func (f *Fanout) Append(ctx context.Context, rec domain.AuditRecord) error {
	for _, s := range f.sinks {
		if err := s.Append(ctx, rec); err != nil {
			slog.Error("audit sink append failed",
				"kind", rec.Kind,
				"series", rec.Series,
				"error", err,
			)
		}
	}
	return nil
}

// Close closes all sinks, returning the joined errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
