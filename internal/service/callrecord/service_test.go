package callrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

func testConfig() Config {
	return Config{
		WriteTimeout:      time.Second,
		BackgroundTimeout: time.Second,
	}
}

func waitDrained(t *testing.T, svc Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

func optedOutState() *intake.State {
	s := intake.NewState("CA-optout", "+15551234567", time.Now().Add(-time.Minute))
	tenant := uuid.New()
	s.TenantID = &tenant
	s.CompletedSteps = []intake.Step{intake.StepGreeting, intake.StepIntroduction, intake.StepLoanAmount, intake.StepFundsPurpose}
	s.Step = intake.StepOptOut
	s.OptedOut = true
	s.OptOutPhrase = "take me off your list"
	return s
}

func TestService_Finalize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		state      func() *intake.State
		insertErr  error
		setupMocks func(*MockDNCRepository, *MockRecordingSource, *MockEventPublisher)
		wantErr    bool
		validate   func(*testing.T, *call.Record, *memoryRecords, *MockDNCRepository)
	}{
		{
			name:  "opt-out creates dnc entry referencing the record",
			state: optedOutState,
			setupMocks: func(d *MockDNCRepository, r *MockRecordingSource, e *MockEventPublisher) {
				d.On("Insert", mock.Anything, mock.AnythingOfType("*dnc.Entry")).Return(nil)
				r.On("GetRecording", mock.Anything, "CA-optout").Return(nil, nil)
				e.On("Publish", mock.Anything, EventRecordCreated, mock.AnythingOfType("callrecord.CreatedEvent")).Return(nil)
			},
			validate: func(t *testing.T, rec *call.Record, repo *memoryRecords, d *MockDNCRepository) {
				assert.Equal(t, call.ReasonDNCDetected, rec.DisconnectionReason)
				assert.Equal(t, 1, repo.count())

				require.Len(t, d.Calls, 1)
				entry := d.Calls[0].Arguments.Get(1).(*dnc.Entry)
				assert.Equal(t, rec.ID, *entry.CallRecordID)
				assert.Equal(t, rec.TenantID, entry.TenantID)
				assert.Equal(t, "+15551234567", entry.PhoneNumber.String())
				assert.Equal(t, "take me off your list", entry.DetectedPhrase)
				assert.Equal(t, dnc.DetectionAuto, entry.DetectionMethod)
				assert.Equal(t, dnc.AutoDetectedReason, entry.Reason)
			},
		},
		{
			name: "dnc failure does not undo the record",
			state: optedOutState,
			setupMocks: func(d *MockDNCRepository, r *MockRecordingSource, e *MockEventPublisher) {
				d.On("Insert", mock.Anything, mock.Anything).Return(errors.New("unique violation"))
				r.On("GetRecording", mock.Anything, "CA-optout").Return(nil, errors.New("timeout"))
				e.On("Publish", mock.Anything, EventRecordCreated, mock.Anything).Return(errors.New("broker down"))
			},
			validate: func(t *testing.T, rec *call.Record, repo *memoryRecords, d *MockDNCRepository) {
				_, ok := repo.get(rec.ID)
				assert.True(t, ok)
			},
		},
		{
			name: "transfer without opt-out writes no dnc entry",
			state: func() *intake.State {
				s := intake.NewState("CA-transfer", "+15551234567", time.Now())
				s.Step = intake.StepTransfer
				s.TransferInitiated = true
				s.RoutingComputed = true
				s.Tier = intake.TierHigh
				s.Destination = "+15559990000"
				return s
			},
			setupMocks: func(d *MockDNCRepository, r *MockRecordingSource, e *MockEventPublisher) {
				r.On("GetRecording", mock.Anything, "CA-transfer").Return(&Recording{SID: "RE1", URL: "https://rec.example/RE1.mp3", Duration: 240}, nil)
				e.On("Publish", mock.Anything, EventRecordCreated, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, rec *call.Record, repo *memoryRecords, d *MockDNCRepository) {
				assert.Equal(t, call.ReasonTransferred, rec.DisconnectionReason)
				d.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)

				stored, ok := repo.get(rec.ID)
				require.True(t, ok)
				require.NotNil(t, stored.RecordingURL)
				assert.Equal(t, "https://rec.example/RE1.mp3", *stored.RecordingURL)
				assert.Equal(t, 240.0, stored.Duration)
			},
		},
		{
			name:       "insert failure is surfaced as no record",
			state:      optedOutState,
			insertErr:  errors.New("connection reset"),
			setupMocks: func(d *MockDNCRepository, r *MockRecordingSource, e *MockEventPublisher) {},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRecords()
			repo.insertErr = tt.insertErr
			dncRepo := new(MockDNCRepository)
			recordings := new(MockRecordingSource)
			events := new(MockEventPublisher)
			tt.setupMocks(dncRepo, recordings, events)

			svc := NewService(Deps{
				Records:    repo,
				DNC:        dncRepo,
				Recordings: recordings,
				Events:     events,
				Logger:     zaptest.NewLogger(t),
			}, testConfig())

			rec, err := svc.Finalize(ctx, tt.state(), nil)
			waitDrained(t, svc)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, rec)
				assert.Zero(t, repo.count())
				dncRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
				recordings.AssertNotCalled(t, "GetRecording", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, rec)
			tt.validate(t, rec, repo, dncRepo)
			dncRepo.AssertExpectations(t)
			recordings.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestService_FinalizeListsUnnormalizedCallers(t *testing.T) {
	tests := []struct {
		name   string
		caller string
	}{
		{name: "international digits without plus", caller: "447700900123"},
		{name: "short code", caller: "5551234"},
		{name: "anonymous", caller: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := optedOutState()
			state.CallerAddress = tt.caller

			repo := newMemoryRecords()
			dncRepo := new(MockDNCRepository)
			dncRepo.On("Insert", mock.Anything, mock.AnythingOfType("*dnc.Entry")).Return(nil)

			svc := NewService(Deps{Records: repo, DNC: dncRepo, Logger: zaptest.NewLogger(t)}, testConfig())
			rec, err := svc.Finalize(context.Background(), state, nil)
			waitDrained(t, svc)

			require.NoError(t, err)
			assert.Equal(t, call.ReasonDNCDetected, rec.DisconnectionReason)
			require.Len(t, dncRepo.Calls, 1)
			entry := dncRepo.Calls[0].Arguments.Get(1).(*dnc.Entry)
			assert.Equal(t, tt.caller, entry.PhoneNumber.String())
			assert.Equal(t, rec.ID, *entry.CallRecordID)
		})
	}
}

func TestService_FinalizeAppliesCallEnd(t *testing.T) {
	repo := newMemoryRecords()
	svc := NewService(Deps{Records: repo, Logger: zaptest.NewLogger(t)}, testConfig())

	duration := 312.0
	ended := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rec, err := svc.Finalize(context.Background(), intake.NewState("CA-end", "+15551234567", ended.Add(-5*time.Minute)), &CallEnd{
		Duration: &duration,
		Status:   call.StatusCompleted,
		EndedAt:  ended,
	})
	require.NoError(t, err)

	assert.Equal(t, 312.0, rec.Duration)
	assert.Equal(t, ended, *rec.EndedAt)
	assert.Equal(t, call.ReasonAgentHangup, rec.DisconnectionReason)
}

func TestService_FinalizePushesIntakeToCRM(t *testing.T) {
	repo := newMemoryRecords()
	crm := new(MockCRMUpdater)
	crm.On("PushIntake", mock.Anything, mock.AnythingOfType("*call.Record")).Return(nil)

	svc := NewService(Deps{Records: repo, CRM: crm, Logger: zaptest.NewLogger(t)}, testConfig())

	s := intake.NewState("CA-crm", "+15551234567", time.Now())
	amount := 25000.0
	s.Answers.LoanAmount = &amount

	_, err := svc.Finalize(context.Background(), s, nil)
	require.NoError(t, err)
	waitDrained(t, svc)

	crm.AssertExpectations(t)

	// nothing collected, nothing pushed
	_, err = svc.Finalize(context.Background(), intake.NewState("CA-empty", "+15551234567", time.Now()), nil)
	require.NoError(t, err)
	waitDrained(t, svc)
	crm.AssertNumberOfCalls(t, "PushIntake", 1)
}

func TestService_RefreshRecordingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRecords()
	recordings := new(MockRecordingSource)
	recordings.On("GetRecording", ctx, "CA-rec").Return(&Recording{SID: "RE9", URL: "https://rec.example/RE9.mp3", Duration: 95.5}, nil)

	svc := NewService(Deps{Records: repo, Recordings: recordings, Logger: zaptest.NewLogger(t)}, testConfig())

	record := &call.Record{ID: uuid.New(), CallID: "CA-rec", Duration: 3}
	require.NoError(t, repo.Insert(ctx, record))

	require.NoError(t, svc.RefreshRecording(ctx, record.ID, "CA-rec"))
	first, _ := repo.get(record.ID)

	require.NoError(t, svc.RefreshRecording(ctx, record.ID, "CA-rec"))
	second, _ := repo.get(record.ID)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 2, repo.updates)
	assert.Equal(t, "https://rec.example/RE9.mp3", *second.RecordingURL)
	assert.Equal(t, 95.5, *second.RecordingDuration)
	assert.Equal(t, 95.5, second.Duration)
}

func TestService_RefreshRecordingFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "not found leaves record untouched"},
		{name: "lookup error is returned", err: errors.New("deadline exceeded"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRecords()
			recordings := new(MockRecordingSource)
			recordings.On("GetRecording", ctx, "CA-x").Return(nil, tt.err)

			svc := NewService(Deps{Records: repo, Recordings: recordings, Logger: zaptest.NewLogger(t)}, testConfig())

			record := &call.Record{ID: uuid.New(), CallID: "CA-x", Duration: 42}
			require.NoError(t, repo.Insert(ctx, record))

			err := svc.RefreshRecording(ctx, record.ID, "CA-x")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			stored, _ := repo.get(record.ID)
			assert.Nil(t, stored.RecordingURL)
			assert.Equal(t, 42.0, stored.Duration)
			assert.Zero(t, repo.updates)
		})
	}
}

func TestService_RecordCallEnd(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRecords()
	recordings := new(MockRecordingSource)
	recordings.On("GetRecording", mock.Anything, "CA-end").Return(&Recording{URL: "https://rec.example/a.mp3", Duration: 200}, nil)

	svc := NewService(Deps{Records: repo, Recordings: recordings, Logger: zaptest.NewLogger(t)}, testConfig())

	record := &call.Record{ID: uuid.New(), CallID: "CA-end", Status: call.StatusInProgress}
	require.NoError(t, repo.Insert(ctx, record))

	duration := 180.0
	require.NoError(t, svc.RecordCallEnd(ctx, record.ID, "CA-end", CallEnd{Duration: &duration, Status: call.StatusCompleted}))
	waitDrained(t, svc)

	stored, _ := repo.get(record.ID)
	assert.Equal(t, call.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.EndedAt)
	require.NotNil(t, stored.RecordingURL)
	assert.Equal(t, 200.0, stored.Duration)

	assert.Error(t, svc.RecordCallEnd(ctx, uuid.New(), "CA-missing", CallEnd{}))
}

func TestService_WaitHonoursContext(t *testing.T) {
	repo := newMemoryRecords()
	block := make(chan struct{})
	recordings := new(MockRecordingSource)
	recordings.On("GetRecording", mock.Anything, "CA-slow").Run(func(mock.Arguments) { <-block }).Return(nil, nil)

	svc := NewService(Deps{Records: repo, Recordings: recordings, Logger: zaptest.NewLogger(t)}, testConfig())
	_, err := svc.Finalize(context.Background(), intake.NewState("CA-slow", "+15551234567", time.Now()), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)

	close(block)
	waitDrained(t, svc)
}

func TestService_JobsAfterDrainRunInline(t *testing.T) {
	repo := newMemoryRecords()
	dncRepo := new(MockDNCRepository)
	dncRepo.On("Insert", mock.Anything, mock.AnythingOfType("*dnc.Entry")).Return(nil)

	svc := NewService(Deps{Records: repo, DNC: dncRepo, Logger: zaptest.NewLogger(t)}, testConfig())
	waitDrained(t, svc)

	rec, err := svc.Finalize(context.Background(), optedOutState(), nil)
	require.NoError(t, err)

	// no second Wait: the entry must already be written
	dncRepo.AssertNumberOfCalls(t, "Insert", 1)
	entry := dncRepo.Calls[0].Arguments.Get(1).(*dnc.Entry)
	assert.Equal(t, rec.ID, *entry.CallRecordID)
}
