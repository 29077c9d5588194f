package call

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

// Record is the durable outcome of one intake call
type Record struct {
	ID       uuid.UUID  `json:"id"`
	CallID   string     `json:"call_id"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	AgentID  *uuid.UUID `json:"agent_id,omitempty"`

	FromNumber string    `json:"from_number"`
	ToNumber   string    `json:"to_number"`
	Direction  Direction `json:"direction"`
	Status     Status    `json:"status"`
	Duration   float64   `json:"duration"` // seconds

	DisconnectionReason DisconnectionReason `json:"disconnection_reason"`

	TransferTier         intake.Tier `json:"transfer_tier"`
	TransferDestination  string      `json:"transfer_destination,omitempty"`
	TransferSuccess      bool        `json:"transfer_success"`
	TransferAnswered     bool        `json:"transfer_answered"`
	TransferAttemptTime  *time.Time  `json:"transfer_attempt_time,omitempty"`
	TransferWaitDuration float64     `json:"transfer_wait_duration"`

	DNCFlagged  bool   `json:"dnc_flagged"`
	DNCPhrase   string `json:"dnc_phrase,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`

	Answers        intake.Answers  `json:"answers"`
	TotalDebt      float64         `json:"total_debt"`
	StepsCompleted []intake.Step   `json:"steps_completed"`
	IntakeData     json.RawMessage `json:"intake_data,omitempty"`

	RecordingURL      *string  `json:"recording_url,omitempty"`
	RecordingDuration *float64 `json:"recording_duration,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DisconnectionReason explains why a call ended
type DisconnectionReason string

const (
	ReasonTransferred  DisconnectionReason = "transferred"
	ReasonCallerHangup DisconnectionReason = "caller_hangup"
	ReasonAgentHangup  DisconnectionReason = "agent_hangup"
	ReasonDNCDetected  DisconnectionReason = "dnc_detected"
	ReasonError        DisconnectionReason = "error"
	ReasonTimeout      DisconnectionReason = "timeout"
	ReasonNoAnswer     DisconnectionReason = "no_answer"
	ReasonUnknown      DisconnectionReason = "unknown"
)

// DeriveDisconnectionReason applies the fixed priority: opt-out, then a
// transfer attempt, then an observed error, then agent hangup.
func DeriveDisconnectionReason(optedOut, transferAttempted bool, errDetail string) DisconnectionReason {
	switch {
	case optedOut:
		return ReasonDNCDetected
	case transferAttempted:
		return ReasonTransferred
	case errDetail != "":
		return ReasonError
	default:
		return ReasonAgentHangup
	}
}

type Status int

const (
	StatusInProgress Status = iota
	StatusCompleted
	StatusFailed
	StatusCanceled
	StatusNoAnswer
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	case StatusNoAnswer:
		return "no_answer"
	case StatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ParseStatus maps a runtime call status onto Status. Runtimes spell these
// differently, so "in-progress" and "in_progress" are both accepted.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "in_progress", "in-progress", "answered":
		return StatusInProgress, nil
	case "completed", "ended", "":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "canceled", "cancelled":
		return StatusCanceled, nil
	case "no_answer", "no-answer":
		return StatusNoAnswer, nil
	case "busy":
		return StatusBusy, nil
	default:
		return StatusCompleted, fmt.Errorf("unknown call status %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Direction int

const (
	DirectionInbound Direction = iota
	DirectionOutbound
)

func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "inbound", "":
		*d = DirectionInbound
	case "outbound":
		*d = DirectionOutbound
	default:
		return fmt.Errorf("unknown call direction %q", string(text))
	}
	return nil
}

// NewRecordFromState maps a finished intake state onto a call record. The
// raw state is kept as a JSON backup alongside the typed columns.
func NewRecordFromState(s *intake.State) (*Record, error) {
	if s == nil || s.CallID == "" {
		return nil, fmt.Errorf("intake state has no call id")
	}

	backup, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intake backup: %w", err)
	}

	now := clock.Now()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}

	tier := s.Tier
	destination := s.Destination
	if s.TransferInitiated && !s.RoutingComputed {
		tier, destination = intake.TierLow, ""
	}

	steps := make([]intake.Step, len(s.CompletedSteps))
	copy(steps, s.CompletedSteps)

	r := &Record{
		ID:                  uuid.New(),
		CallID:              s.CallID,
		TenantID:            s.TenantID,
		AgentID:             s.AgentID,
		FromNumber:          s.CallerAddress,
		ToNumber:            s.CalledAddress,
		Direction:           DirectionInbound,
		Status:              StatusCompleted,
		Duration:            now.Sub(started).Seconds(),
		DisconnectionReason: DeriveDisconnectionReason(s.OptedOut, s.TransferInitiated, s.Error),
		TransferTier:        tier,
		TransferDestination: destination,
		TransferSuccess:     s.TransferInitiated && destination != "",
		TransferAttemptTime: s.TransferAttemptAt,
		DNCFlagged:          s.OptedOut,
		DNCPhrase:           s.OptOutPhrase,
		ErrorDetail:         s.Error,
		Answers:             s.Answers,
		TotalDebt:           s.TotalDebt,
		StepsCompleted:      steps,
		IntakeData:          backup,
		StartedAt:           started,
		EndedAt:             &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if r.Answers.Name == nil && s.Lead != nil && s.Lead.Name != "" {
		name := s.Lead.Name
		r.Answers.Name = &name
	}
	return r, nil
}

// IsLostTransfer reports a call that qualified for a tier but was never
// picked up by a closer.
func (r *Record) IsLostTransfer() bool {
	if r.TransferTier == intake.TierNone || r.TransferAnswered {
		return false
	}
	switch r.DisconnectionReason {
	case ReasonNoAnswer, ReasonTimeout, ReasonCallerHangup:
		return true
	default:
		return false
	}
}

// FormatDuration renders seconds as M:SS, or H:MM:SS from one hour up.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total <= 0 {
		return "0:00"
	}
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
