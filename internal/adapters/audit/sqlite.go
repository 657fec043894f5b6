package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Append-only audit trail. Rows are never updated or deleted by the bot.
CREATE TABLE IF NOT EXISTS audit_records (
    id      TEXT PRIMARY KEY,
    ts      DATETIME NOT NULL,
    kind    TEXT     NOT NULL,
    series  TEXT     NOT NULL DEFAULT '',
    payload TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_ts   ON audit_records(ts);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_records(kind, series);
`

// SQLiteSink persists the audit trail to SQLite (pure Go, no CGo). Insert is
// the only statement the bot ever runs against the table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at the given path and applies
// the schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit.NewSQLiteSink: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit.NewSQLiteSink: apply schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Append inserts one record. The payload column carries the same JSON object
// the JSONL sink writes, so either sink can reconstruct the other.
func (s *SQLiteSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	payload, err := marshalLine(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, ts, kind, series, payload) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.At.UTC(), string(rec.Kind), string(rec.Series), string(payload),
	)
	if err != nil {
		return fmt.Errorf("audit.SQLiteSink.Append: %w", err)
	}
	return nil
}

// CountByKind returns how many records of a kind were appended, optionally
// filtered by series. Used by operators and tests; the bot itself never reads.
func (s *SQLiteSink) CountByKind(ctx context.Context, kind domain.AuditKind, series domain.Series) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_records WHERE kind = ? AND (? = '' OR series = ?)`,
		string(kind), string(series), string(series),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit.SQLiteSink.CountByKind: %w", err)
	}
	return n, nil
}

// Recent returns the payloads of the most recent records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM audit_records ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit.SQLiteSink.Recent: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("audit.SQLiteSink.Recent: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
