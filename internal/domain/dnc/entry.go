package dnc

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
)

// AutoDetectedReason is recorded on entries created from an in-call phrase match
const AutoDetectedReason = "DNC phrase detected during call"

// DetectionMethod records how a number landed on the list
type DetectionMethod int

const (
	DetectionAuto DetectionMethod = iota
	DetectionManual
	DetectionImport
)

func (m DetectionMethod) String() string {
	switch m {
	case DetectionAuto:
		return "auto"
	case DetectionManual:
		return "manual"
	case DetectionImport:
		return "import"
	default:
		return "unknown"
	}
}

// ParseDetectionMethod resolves a stored method name
func ParseDetectionMethod(s string) (DetectionMethod, error) {
	switch s {
	case "auto":
		return DetectionAuto, nil
	case "manual":
		return DetectionManual, nil
	case "import":
		return DetectionImport, nil
	default:
		return DetectionAuto, fmt.Errorf("unknown detection method %q", s)
	}
}

// Entry is a phone number on a tenant's do-not-call list
type Entry struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        *uuid.UUID         `json:"tenant_id,omitempty"`
	PhoneNumber     values.PhoneNumber `json:"phone_number"`
	CallRecordID    *uuid.UUID         `json:"call_record_id,omitempty"`
	Reason          string             `json:"reason"`
	DetectionMethod DetectionMethod    `json:"detection_method"`
	DetectedPhrase  string             `json:"detected_phrase,omitempty"`
	FlaggedAt       time.Time          `json:"flagged_at"`
}

// NewAutoEntry builds the entry created when a caller opts out mid-call.
// Addresses that do not normalize to E.164 are listed as reported.
func NewAutoEntry(tenantID *uuid.UUID, phone string, callRecordID uuid.UUID, phrase string, at time.Time) (*Entry, error) {
	number, err := values.ParseCallerAddress(phone)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_PHONE_NUMBER", "caller address is empty").WithCause(err)
	}
	if callRecordID == uuid.Nil {
		return nil, errors.NewValidationError("INVALID_CALL_RECORD", "call record id cannot be empty")
	}

	return &Entry{
		ID:              uuid.New(),
		TenantID:        tenantID,
		PhoneNumber:     number,
		CallRecordID:    &callRecordID,
		Reason:          AutoDetectedReason,
		DetectionMethod: DetectionAuto,
		DetectedPhrase:  phrase,
		FlaggedAt:       at.UTC(),
	}, nil
}
