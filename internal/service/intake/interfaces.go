package intake

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
)

// Service drives one conversation turn at a time for the voice runtime
type Service interface {
	// HandleTurn applies one caller utterance. It only fails on a request
	// without a call id; every other problem degrades to missing data.
	HandleTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error)
	// EndCall is sent by the runtime once the caller is off the line
	EndCall(ctx context.Context, req *EndCallRequest) (*EndCallResponse, error)
}

// LeadLookup finds what the CRM knows about a caller. A nil lead with a nil
// error means not found.
type LeadLookup interface {
	LookupLead(ctx context.Context, phone values.PhoneNumber) (*domain.Lead, error)
}

// RecordPersister writes the durable call record
type RecordPersister interface {
	Finalize(ctx context.Context, state *domain.State, end *callrecord.CallEnd) (*call.Record, error)
	RecordCallEnd(ctx context.Context, recordID uuid.UUID, callID string, end callrecord.CallEnd) error
}

// SessionArena is an optional cache of in-flight states keyed by call id.
// Get returns nil, nil for an unknown call.
type SessionArena interface {
	Get(ctx context.Context, callID string) (*domain.State, error)
	Put(ctx context.Context, state *domain.State) error
	Remove(ctx context.Context, callID string) error
}

// MetricsCollector defines the interface for collecting intake metrics
type MetricsCollector interface {
	RecordTurn(ctx context.Context, step domain.Step, directive Directive, latency time.Duration)
	RecordOptOut(ctx context.Context, step domain.Step)
	RecordTransfer(ctx context.Context, tier domain.Tier, hasDestination bool)
}

// Directive tells the runtime what to do after speaking the response
type Directive int

const (
	DirectiveContinue Directive = iota
	DirectiveReask
	DirectiveTransfer
	DirectiveHangup
)

func (d Directive) String() string {
	switch d {
	case DirectiveContinue:
		return "continue"
	case DirectiveReask:
		return "reask"
	case DirectiveTransfer:
		return "transfer"
	case DirectiveHangup:
		return "hangup"
	default:
		return "unknown"
	}
}

func (d Directive) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// TurnRequest is one caller turn as reported by the voice runtime
type TurnRequest struct {
	CallID        string
	CallerAddress string
	CalledAddress string
	TenantID      *uuid.UUID
	AgentID       *uuid.UUID
	// Session is the payload returned by the previous turn, empty on the first
	Session   string
	Utterance string
	// Args carries answers the runtime already extracted, keyed by step argument
	Args map[string]string
	// Skip asks the engine to mark the current answer unclear and move on
	Skip bool
}

// TurnResponse is spoken by the runtime and echoed back on the next turn
type TurnResponse struct {
	Text      string          `json:"text"`
	Session   string          `json:"session"`
	Step      domain.Step     `json:"step"`
	Directive Directive       `json:"directive"`
	Transfer  *TransferTarget `json:"transfer,omitempty"`
}

// TransferTarget carries the parameters for the runtime's SIP transfer
type TransferTarget struct {
	Destination string      `json:"destination"`
	Tier        domain.Tier `json:"tier"`
	Trunk       string      `json:"trunk,omitempty"`
	Method      string      `json:"method"`
}

// EndCallRequest reports the end of a call
type EndCallRequest struct {
	CallID   string
	Session  string
	Duration *float64
	Status   call.Status
}

// EndCallResponse reports what the call end did
type EndCallResponse struct {
	RecordID *uuid.UUID `json:"record_id,omitempty"`
	Created  bool       `json:"created"`
}
