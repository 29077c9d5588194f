package callrecord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
)

var errNoRow = errors.New("no such record")

// memoryRecords is an in-memory CallRecordRepository
type memoryRecords struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]call.Record
	insertErr error
	updates   int
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{rows: make(map[uuid.UUID]call.Record)}
}

func (m *memoryRecords) Insert(_ context.Context, r *call.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memoryRecords) UpdateRecording(_ context.Context, id uuid.UUID, url string, duration float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return errNoRow
	}
	r.RecordingURL = &url
	r.RecordingDuration = &duration
	r.Duration = duration
	m.rows[id] = r
	m.updates++
	return nil
}

func (m *memoryRecords) UpdateCallEnd(_ context.Context, id uuid.UUID, duration *float64, status call.Status, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return errNoRow
	}
	if duration != nil {
		r.Duration = *duration
	}
	r.Status = status
	r.EndedAt = &endedAt
	m.rows[id] = r
	return nil
}

func (m *memoryRecords) get(id uuid.UUID) (call.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func (m *memoryRecords) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// MockDNCRepository mock for tests
type MockDNCRepository struct {
	mock.Mock
}

func (m *MockDNCRepository) Insert(ctx context.Context, entry *dnc.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockRecordingSource mock for tests
type MockRecordingSource struct {
	mock.Mock
}

func (m *MockRecordingSource) GetRecording(ctx context.Context, callID string) (*Recording, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Recording), args.Error(1)
}

// MockEventPublisher mock for tests
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, data any) error {
	args := m.Called(ctx, eventType, data)
	return args.Error(0)
}

// MockCRMUpdater mock for tests
type MockCRMUpdater struct {
	mock.Mock
}

func (m *MockCRMUpdater) PushIntake(ctx context.Context, record *call.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
