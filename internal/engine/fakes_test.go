package engine_test

import (
	"context"
	"sync"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// fakeDiscovery serves a fixed contract list, mutable between ticks.
type fakeDiscovery struct {
	mu        sync.Mutex
	contracts []domain.Contract
	err       error
	calls     int
}

func (f *fakeDiscovery) FetchSeriesContracts(_ context.Context, _ domain.SeriesSpec) ([]domain.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Contract(nil), f.contracts...), nil
}

func (f *fakeDiscovery) set(contracts []domain.Contract, err error) {
	f.mu.Lock()
	f.contracts = contracts
	f.err = err
	f.mu.Unlock()
}

// fakeStream implements ports.PriceStream with a settable quote per series.
type fakeStream struct {
	mu         sync.Mutex
	quotes     map[domain.Series]domain.Quote
	errs       map[domain.Series]error
	subscribed map[domain.Series][]string
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		quotes:     make(map[domain.Series]domain.Quote),
		errs:       make(map[domain.Series]error),
		subscribed: make(map[domain.Series][]string),
	}
}

func (f *fakeStream) Run(ctx context.Context) { <-ctx.Done() }

func (f *fakeStream) Subscribe(series domain.Series, tokenID string) {
	f.mu.Lock()
	f.subscribed[series] = append(f.subscribed[series], tokenID)
	f.mu.Unlock()
}

func (f *fakeStream) Latest(series domain.Series) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[series]; err != nil {
		return domain.Quote{}, err
	}
	q, ok := f.quotes[series]
	if !ok {
		return domain.Quote{}, domain.ErrDisconnected
	}
	return q, nil
}

func (f *fakeStream) setQuote(series domain.Series, value float64, at time.Time) {
	f.mu.Lock()
	f.quotes[series] = domain.Quote{Source: domain.SourceContract, Value: value, ObservedAt: at}
	f.errs[series] = nil
	f.mu.Unlock()
}

func (f *fakeStream) setErr(series domain.Series, err error) {
	f.mu.Lock()
	f.errs[series] = err
	f.mu.Unlock()
}

func (f *fakeStream) subscriptions(series domain.Series) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed[series]...)
}

// fakeSpot implements ports.ReferenceSource.
type fakeSpot struct {
	mu    sync.Mutex
	value float64
	err   error
}

func (f *fakeSpot) FetchSpot(context.Context) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return domain.Quote{Source: domain.SourceReference, Value: f.value, ObservedAt: time.Now()}, nil
}

// memorySink captures every audit record in order.
type memorySink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (s *memorySink) Append(_ context.Context, rec domain.AuditRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) byKind(kind domain.AuditKind) []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditRecord
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// fixedEstimator returns the same probability for every input.
type fixedEstimator struct{ prob float64 }

func (f fixedEstimator) Estimate(_, _ float64, _ time.Duration) float64 { return f.prob }
