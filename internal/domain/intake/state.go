package intake

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEmptySession is returned when decoding an empty session payload
var ErrEmptySession = errors.New("empty session payload")

// Answers holds the caller's collected answers. Nil means not yet collected.
type Answers struct {
	Name             *string     `json:"name,omitempty"`
	LoanAmount       *float64    `json:"loan_amount,omitempty"`
	FundsPurpose     *string     `json:"funds_purpose,omitempty"`
	Employment       *Employment `json:"employment_status,omitempty"`
	CreditCardDebt   *float64    `json:"credit_card_debt,omitempty"`
	PersonalLoanDebt *float64    `json:"personal_loan_debt,omitempty"`
	OtherDebt        *float64    `json:"other_debt,omitempty"`
	MonthlyIncome    *float64    `json:"monthly_income,omitempty"`
	SSNLastFour      *string     `json:"ssn_last_four,omitempty"`
}

// Lead is what the CRM knew about the caller before the call
type Lead struct {
	Name       string   `json:"name,omitempty"`
	LoanAmount *float64 `json:"loan_amount,omitempty"`
}

// State is the per-call intake state. It is round-tripped through the voice
// runtime as an opaque session payload between turns.
type State struct {
	CallID        string     `json:"call_id"`
	CallerAddress string     `json:"caller_address"`
	CalledAddress string     `json:"called_address,omitempty"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	AgentID       *uuid.UUID `json:"agent_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`

	Step           Step    `json:"step"`
	Answers        Answers `json:"answers"`
	TotalDebt      float64 `json:"total_debt"`
	CompletedSteps []Step  `json:"completed_steps,omitempty"`
	UnclearSteps   []Step  `json:"unclear_steps,omitempty"`

	Tier            Tier   `json:"tier"`
	Destination     string `json:"destination,omitempty"`
	RoutingComputed bool   `json:"routing_computed,omitempty"`

	OptedOut     bool   `json:"opted_out,omitempty"`
	OptOutPhrase string `json:"opt_out_phrase,omitempty"`

	TransferInitiated bool       `json:"transfer_initiated,omitempty"`
	TransferAttemptAt *time.Time `json:"transfer_attempt_at,omitempty"`

	Lead *Lead `json:"lead,omitempty"`

	// Error holds the last unhandled error observed during the call
	Error string `json:"error,omitempty"`

	Recorded bool       `json:"recorded,omitempty"`
	RecordID *uuid.UUID `json:"record_id,omitempty"`
}

// NewState creates the default state for the first turn of a call
func NewState(callID, callerAddress string, startedAt time.Time) *State {
	return &State{
		CallID:        callID,
		CallerAddress: callerAddress,
		StartedAt:     startedAt,
		Step:          StepGreeting,
		Tier:          TierNone,
	}
}

// Terminal reports whether the conversation has ended
func (s *State) Terminal() bool {
	d, ok := Describe(s.Step)
	return ok && d.Terminal
}

// SetDebt stores one debt component and recomputes the total
func (s *State) SetDebt(component DebtComponent, amount float64) error {
	switch component {
	case DebtCreditCard:
		s.Answers.CreditCardDebt = &amount
	case DebtPersonalLoan:
		s.Answers.PersonalLoanDebt = &amount
	case DebtOther:
		s.Answers.OtherDebt = &amount
	default:
		return fmt.Errorf("unknown debt component %d", int(component))
	}
	s.recomputeTotal()
	return nil
}

// DebtComplete reports whether all three debt components are collected
func (s *State) DebtComplete() bool {
	a := s.Answers
	return a.CreditCardDebt != nil && a.PersonalLoanDebt != nil && a.OtherDebt != nil
}

func (s *State) recomputeTotal() {
	var total float64
	for _, v := range []*float64{s.Answers.CreditCardDebt, s.Answers.PersonalLoanDebt, s.Answers.OtherDebt} {
		if v != nil {
			total += *v
		}
	}
	s.TotalDebt = total
}

// Completed reports whether step appears in the completed list
func (s *State) Completed(step Step) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// CallerName is the collected name, falling back to the CRM lead name
func (s *State) CallerName() string {
	if s.Answers.Name != nil && *s.Answers.Name != "" {
		return *s.Answers.Name
	}
	if s.Lead != nil {
		return s.Lead.Name
	}
	return ""
}

// EncodeSession serializes the state into the opaque session payload
func EncodeSession(s *State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal intake state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeSession restores a state from a session payload
func DecodeSession(payload string) (*State, error) {
	if payload == "" {
		return nil, ErrEmptySession
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session payload: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intake state: %w", err)
	}
	if s.CallID == "" {
		return nil, fmt.Errorf("session payload has no call id")
	}

	// Payloads are not trusted to carry a consistent total
	s.recomputeTotal()
	return &s, nil
}
