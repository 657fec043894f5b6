package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/audit"
	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

type recordingSink struct {
	records []domain.AuditRecord
	fail    bool
	closed  bool
}

func (r *recordingSink) Append(_ context.Context, rec domain.AuditRecord) error {
	if r.fail {
		return errors.New("sink down")
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	fan := audit.NewFanout(a, b, nil)

	rec := sampleSnapshot(time.Now().UTC())
	require.NoError(t, fan.Append(context.Background(), rec))

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

func TestFanout_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	fan := audit.NewFanout(broken, healthy)

	err := fan.Append(context.Background(), sampleSnapshot(time.Now().UTC()))

	assert.NoError(t, err)
	assert.Len(t, healthy.records, 1)
}

func TestFanout_CloseClosesAll(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	fan := audit.NewFanout(a, b)

	require.NoError(t, fan.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
