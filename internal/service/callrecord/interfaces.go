package callrecord

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

// Service writes call records and runs their follow-up work
type Service interface {
	// Finalize inserts the record for a finished intake and schedules the
	// DNC entry, recording lookup, event and CRM push in the background.
	Finalize(ctx context.Context, state *intake.State, end *CallEnd) (*call.Record, error)
	// RefreshRecording looks the recording up again and stores it if found.
	// Repeating it with the same result leaves the record unchanged.
	RefreshRecording(ctx context.Context, recordID uuid.UUID, callID string) error
	// RecordCallEnd updates duration and status on an existing record and
	// schedules a recording refresh.
	RecordCallEnd(ctx context.Context, recordID uuid.UUID, callID string, end CallEnd) error
	// Wait blocks until scheduled background work has drained. Work scheduled
	// after Wait has started runs synchronously in the scheduling call.
	Wait(ctx context.Context) error
}

// CallRecordRepository defines the interface for call record storage
type CallRecordRepository interface {
	Insert(ctx context.Context, record *call.Record) error
	UpdateRecording(ctx context.Context, recordID uuid.UUID, url string, duration float64) error
	UpdateCallEnd(ctx context.Context, recordID uuid.UUID, duration *float64, status call.Status, endedAt time.Time) error
}

// DNCRepository defines the interface for do-not-call list storage
type DNCRepository interface {
	Insert(ctx context.Context, entry *dnc.Entry) error
}

// RecordingSource fetches a call's recording. A nil recording with a nil
// error means the call has none yet.
type RecordingSource interface {
	GetRecording(ctx context.Context, callID string) (*Recording, error)
}

// EventPublisher announces persisted records to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// CRMUpdater pushes collected intake answers back to the lead's CRM entry
type CRMUpdater interface {
	PushIntake(ctx context.Context, record *call.Record) error
}

// MetricsCollector defines the interface for collecting persistence metrics
type MetricsCollector interface {
	RecordPersistence(ctx context.Context, outcome string)
	RecordRecordingLookup(ctx context.Context, outcome string)
	RecordDNCEntry(ctx context.Context, outcome string)
}

// Recording is a resolved call recording
type Recording struct {
	SID      string
	URL      string
	Duration float64
}

// CallEnd is what the runtime reports when the caller leaves
type CallEnd struct {
	Duration *float64
	Status   call.Status
	EndedAt  time.Time
}

// CreatedEvent is published after a record is inserted
type CreatedEvent struct {
	RecordID            uuid.UUID                `json:"record_id"`
	CallID              string                   `json:"call_id"`
	TenantID            *uuid.UUID               `json:"tenant_id,omitempty"`
	AgentID             *uuid.UUID               `json:"agent_id,omitempty"`
	DisconnectionReason call.DisconnectionReason `json:"disconnection_reason"`
	TransferTier        intake.Tier              `json:"transfer_tier"`
	TotalDebt           float64                  `json:"total_debt"`
	DNCFlagged          bool                     `json:"dnc_flagged"`
	CreatedAt           time.Time                `json:"created_at"`
}

const (
	EventRecordCreated = "call_record.created.v1"

	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
)
