package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// JSONLSink appends one JSON object per line to a file. This is the
// externally-observed trail: other processes may tail it while the bot runs.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink opens (or creates) the file in append mode, creating parent
// directories as needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit.NewJSONLSink: mkdir %q: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit.NewJSONLSink: open %q: %w", path, err)
	}
	return &JSONLSink{file: f}, nil
}

// Append writes one record as a single line. The write happens under a lock
// so concurrent series pipelines never interleave partial lines.
func (s *JSONLSink) Append(_ context.Context, rec domain.AuditRecord) error {
	line, err := marshalLine(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit.JSONLSink.Append: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
