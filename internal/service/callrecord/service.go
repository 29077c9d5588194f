package callrecord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

// Config bounds the persister's I/O
type Config struct {
	WriteTimeout      time.Duration
	BackgroundTimeout time.Duration
	// RecordingDelay is waited before the first recording lookup so the
	// provider has time to close the file.
	RecordingDelay time.Duration
}

// DefaultConfig returns production timeouts
func DefaultConfig() Config {
	return Config{
		WriteTimeout:      5 * time.Second,
		BackgroundTimeout: 30 * time.Second,
		RecordingDelay:    10 * time.Second,
	}
}

// Deps groups the persister's collaborators. Recordings, Events, CRM and
// Metrics may be nil.
type Deps struct {
	Records    CallRecordRepository
	DNC        DNCRepository
	Recordings RecordingSource
	Events     EventPublisher
	CRM        CRMUpdater
	Metrics    MetricsCollector
	Logger     *zap.Logger
}

// service implements the Service interface
type service struct {
	records    CallRecordRepository
	dnc        DNCRepository
	recordings RecordingSource
	events     EventPublisher
	crm        CRMUpdater
	metrics    MetricsCollector
	logger     *zap.Logger
	cfg        Config

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// NewService creates a new call record persister
func NewService(deps Deps, cfg Config) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		records:    deps.Records,
		dnc:        deps.DNC,
		recordings: deps.Recordings,
		events:     deps.Events,
		crm:        deps.CRM,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

func (s *service) Finalize(ctx context.Context, state *intake.State, end *CallEnd) (*call.Record, error) {
	record, err := call.NewRecordFromState(state)
	if err != nil {
		s.recordPersistence(ctx, OutcomeFailed)
		return nil, fmt.Errorf("failed to build call record: %w", err)
	}
	if end != nil {
		applyCallEnd(record, *end)
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if err := s.records.Insert(writeCtx, record); err != nil {
		s.logger.Error("failed to insert call record, outcome will be missing from reporting",
			zap.String("call_id", record.CallID),
			zap.Error(err),
		)
		s.recordPersistence(ctx, OutcomeFailed)
		return nil, fmt.Errorf("failed to insert call record: %w", err)
	}
	s.recordPersistence(ctx, OutcomeSuccess)

	s.logger.Info("call record created",
		zap.String("call_id", record.CallID),
		zap.String("record_id", record.ID.String()),
		zap.String("disconnection_reason", string(record.DisconnectionReason)),
		zap.String("tier", record.TransferTier.String()),
	)

	if record.DNCFlagged {
		s.background(ctx, "dnc_entry", s.cfg.BackgroundTimeout, func(ctx context.Context) error {
			return s.createDNCEntry(ctx, record)
		})
	}
	if s.recordings != nil {
		s.scheduleRecordingRefresh(ctx, record.ID, record.CallID)
	}
	if s.events != nil {
		event := newCreatedEvent(record)
		s.background(ctx, "publish_event", s.cfg.BackgroundTimeout, func(ctx context.Context) error {
			return s.events.Publish(ctx, EventRecordCreated, event)
		})
	}
	if s.crm != nil && hasIntakeAnswers(record) {
		s.background(ctx, "crm_push", s.cfg.BackgroundTimeout, func(ctx context.Context) error {
			return s.crm.PushIntake(ctx, record)
		})
	}

	return record, nil
}

func (s *service) RefreshRecording(ctx context.Context, recordID uuid.UUID, callID string) error {
	if s.recordings == nil {
		return nil
	}

	rec, err := s.recordings.GetRecording(ctx, callID)
	if err != nil {
		s.recordLookup(ctx, OutcomeFailed)
		return fmt.Errorf("failed to fetch recording for %s: %w", callID, err)
	}
	if rec == nil {
		s.recordLookup(ctx, OutcomeNotFound)
		s.logger.Debug("no recording available yet", zap.String("call_id", callID))
		return nil
	}

	if err := s.records.UpdateRecording(ctx, recordID, rec.URL, rec.Duration); err != nil {
		s.recordLookup(ctx, OutcomeFailed)
		return fmt.Errorf("failed to store recording for %s: %w", callID, err)
	}
	s.recordLookup(ctx, OutcomeSuccess)

	s.logger.Info("recording attached to call record",
		zap.String("call_id", callID),
		zap.String("record_id", recordID.String()),
		zap.Float64("duration", rec.Duration),
	)
	return nil
}

func (s *service) RecordCallEnd(ctx context.Context, recordID uuid.UUID, callID string, end CallEnd) error {
	if end.EndedAt.IsZero() {
		end.EndedAt = call.Now()
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if err := s.records.UpdateCallEnd(writeCtx, recordID, end.Duration, end.Status, end.EndedAt); err != nil {
		s.logger.Warn("failed to update call end",
			zap.String("call_id", callID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update call end: %w", err)
	}

	if s.recordings != nil {
		s.scheduleRecordingRefresh(ctx, recordID, callID)
	}
	return nil
}

func (s *service) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) scheduleRecordingRefresh(ctx context.Context, recordID uuid.UUID, callID string) {
	delay := s.cfg.RecordingDelay
	s.background(ctx, "recording_lookup", delay+s.cfg.BackgroundTimeout, func(ctx context.Context) error {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return s.RefreshRecording(ctx, recordID, callID)
	})
}

// background runs fn detached from the caller's cancellation with its own
// deadline. Failures are logged and dropped. Once Wait has started, jobs run
// on the caller's goroutine so none escape the drain.
func (s *service) background(ctx context.Context, job string, timeout time.Duration, fn func(context.Context) error) {
	run := func() {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := fn(bctx); err != nil {
			s.logger.Warn("background call record job failed",
				zap.String("job", job),
				zap.Error(err),
			)
		}
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		run()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		run()
	}()
}

func (s *service) createDNCEntry(ctx context.Context, record *call.Record) error {
	entry, err := dnc.NewAutoEntry(record.TenantID, record.FromNumber, record.ID, record.DNCPhrase, call.Now())
	if err != nil {
		s.recordDNC(ctx, OutcomeFailed)
		return fmt.Errorf("failed to build dnc entry: %w", err)
	}
	if err := s.dnc.Insert(ctx, entry); err != nil {
		s.recordDNC(ctx, OutcomeFailed)
		return fmt.Errorf("failed to insert dnc entry: %w", err)
	}
	s.recordDNC(ctx, OutcomeSuccess)

	s.logger.Info("caller added to do-not-call list",
		zap.String("call_id", record.CallID),
		zap.String("phone", entry.PhoneNumber.String()),
		zap.String("phrase", entry.DetectedPhrase),
	)
	return nil
}

func (s *service) recordPersistence(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPersistence(ctx, outcome)
	}
}

func (s *service) recordLookup(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRecordingLookup(ctx, outcome)
	}
}

func (s *service) recordDNC(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDNCEntry(ctx, outcome)
	}
}

func applyCallEnd(r *call.Record, end CallEnd) {
	if end.Duration != nil {
		r.Duration = *end.Duration
	}
	r.Status = end.Status
	if !end.EndedAt.IsZero() {
		at := end.EndedAt
		r.EndedAt = &at
	}
}

func newCreatedEvent(r *call.Record) CreatedEvent {
	return CreatedEvent{
		RecordID:            r.ID,
		CallID:              r.CallID,
		TenantID:            r.TenantID,
		AgentID:             r.AgentID,
		DisconnectionReason: r.DisconnectionReason,
		TransferTier:        r.TransferTier,
		TotalDebt:           r.TotalDebt,
		DNCFlagged:          r.DNCFlagged,
		CreatedAt:           r.CreatedAt,
	}
}

func hasIntakeAnswers(r *call.Record) bool {
	a := r.Answers
	return a.LoanAmount != nil || a.FundsPurpose != nil || a.Employment != nil ||
		a.CreditCardDebt != nil || a.PersonalLoanDebt != nil || a.OtherDebt != nil ||
		a.MonthlyIncome != nil || a.SSNLastFour != nil
}
