package intake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
)

// MockLeadLookup is a mock implementation of LeadLookup
type MockLeadLookup struct {
	mock.Mock
}

func (m *MockLeadLookup) LookupLead(ctx context.Context, phone values.PhoneNumber) (*domain.Lead, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lead), args.Error(1)
}

// MockRecordPersister is a mock implementation of RecordPersister
type MockRecordPersister struct {
	mock.Mock
}

func (m *MockRecordPersister) Finalize(ctx context.Context, state *domain.State, end *callrecord.CallEnd) (*call.Record, error) {
	args := m.Called(ctx, state, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*call.Record), args.Error(1)
}

func (m *MockRecordPersister) RecordCallEnd(ctx context.Context, recordID uuid.UUID, callID string, end callrecord.CallEnd) error {
	args := m.Called(ctx, recordID, callID, end)
	return args.Error(0)
}

// MockMetricsCollector is a mock implementation of MetricsCollector
type MockMetricsCollector struct {
	mock.Mock
}

func (m *MockMetricsCollector) RecordTurn(ctx context.Context, step domain.Step, directive Directive, latency time.Duration) {
	m.Called(ctx, step, directive, latency)
}

func (m *MockMetricsCollector) RecordOptOut(ctx context.Context, step domain.Step) {
	m.Called(ctx, step)
}

func (m *MockMetricsCollector) RecordTransfer(ctx context.Context, tier domain.Tier, hasDestination bool) {
	m.Called(ctx, tier, hasDestination)
}

// memoryArena is an in-process SessionArena
type memoryArena struct {
	mu     sync.Mutex
	states map[string]*domain.State
}

// cloneState deep-copies through the session encoding
func cloneState(s *domain.State) *domain.State {
	payload, err := domain.EncodeSession(s)
	if err != nil {
		panic(err)
	}
	c, err := domain.DecodeSession(payload)
	if err != nil {
		panic(err)
	}
	return c
}

func newMemoryArena() *memoryArena {
	return &memoryArena{states: make(map[string]*domain.State)}
}

func (a *memoryArena) Get(_ context.Context, callID string) (*domain.State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.states[callID]; ok {
		return cloneState(s), nil
	}
	return nil, nil
}

func (a *memoryArena) Put(_ context.Context, state *domain.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[state.CallID] = cloneState(state)
	return nil
}

func (a *memoryArena) Remove(_ context.Context, callID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, callID)
	return nil
}

func (a *memoryArena) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.states)
}

// memoryStore backs the real call record persister in end-to-end tests
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*call.Record
	dnc     []*dnc.Entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]*call.Record)}
}

func (s *memoryStore) Insert(_ context.Context, r *call.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.records[r.ID] = &c
	return nil
}

func (s *memoryStore) UpdateRecording(_ context.Context, id uuid.UUID, url string, duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.RecordingURL = &url
		r.RecordingDuration = &duration
		r.Duration = duration
	}
	return nil
}

func (s *memoryStore) UpdateCallEnd(_ context.Context, id uuid.UUID, duration *float64, status call.Status, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		if duration != nil {
			r.Duration = *duration
		}
		r.Status = status
		r.EndedAt = &endedAt
	}
	return nil
}

func (s *memoryStore) only() *call.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		return r
	}
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStore) dncEntries() []*dnc.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*dnc.Entry(nil), s.dnc...)
}

// dncRepo adapts memoryStore to callrecord.DNCRepository
type dncRepo struct{ store *memoryStore }

func (d dncRepo) Insert(_ context.Context, e *dnc.Entry) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.dnc = append(d.store.dnc, e)
	return nil
}
