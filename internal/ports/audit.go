package ports

import (
	"context"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// AuditSink is an append-only, externally-observed audit trail. Append is the
// only mutating operation; records are never edited or removed.
type AuditSink interface {
	Append(ctx context.Context, rec domain.AuditRecord) error
	Close() error
}
