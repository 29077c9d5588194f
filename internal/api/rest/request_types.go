package rest

import (
	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

// TurnRequest is the body of POST /v1/calls/turn
type TurnRequest struct {
	CallID    string            `json:"call_id" validate:"required,max=128"`
	Caller    string            `json:"caller" validate:"max=256"`
	Called    string            `json:"called" validate:"max=256"`
	TenantID  *uuid.UUID        `json:"tenant_id,omitempty"`
	AgentID   *uuid.UUID        `json:"agent_id,omitempty"`
	Session   string            `json:"session" validate:"max=65536"`
	Utterance string            `json:"utterance" validate:"max=4096"`
	Args      map[string]string `json:"args,omitempty" validate:"max=16,dive,keys,max=64,endkeys,max=1024"`
	Skip      bool              `json:"skip"`
}

func (r *TurnRequest) toService() *intake.TurnRequest {
	return &intake.TurnRequest{
		CallID:        r.CallID,
		CallerAddress: r.Caller,
		CalledAddress: r.Called,
		TenantID:      r.TenantID,
		AgentID:       r.AgentID,
		Session:       r.Session,
		Utterance:     r.Utterance,
		Args:          r.Args,
		Skip:          r.Skip,
	}
}

// EndCallRequest is the body of POST /v1/calls/end
type EndCallRequest struct {
	CallID   string   `json:"call_id" validate:"required,max=128"`
	Session  string   `json:"session" validate:"max=65536"`
	Duration *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Status   string   `json:"status" validate:"max=32"`
}

func (r *EndCallRequest) toService() (*intake.EndCallRequest, error) {
	status, err := call.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &intake.EndCallRequest{
		CallID:   r.CallID,
		Session:  r.Session,
		Duration: r.Duration,
		Status:   status,
	}, nil
}

// ErrorResponse is the error envelope for every non-2xx reply
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failed request
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}
