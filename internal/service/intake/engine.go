package intake

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

var (
	// ErrTerminal is returned when a transition is attempted after the call ended
	ErrTerminal = errors.New("intake already reached a terminal step")
	// ErrStepMismatch is returned when a completion names a step other than the current one
	ErrStepMismatch = errors.New("completed step is not the current step")
)

// OptOutDetector finds do-not-call phrases in an utterance
type OptOutDetector interface {
	Detect(utterance string) (string, bool)
}

// Engine interprets the static step table. It holds no per-call state; every
// method works on the state it is handed.
type Engine struct {
	detector OptOutDetector
}

// NewEngine creates an engine that interrupts on the detector's phrases
func NewEngine(detector OptOutDetector) *Engine {
	return &Engine{detector: detector}
}

// Interrupt moves a non-terminal state straight to opt_out when the
// utterance contains an opt-out phrase. It reports whether it fired.
func (e *Engine) Interrupt(s *domain.State, utterance string) bool {
	if s.Terminal() {
		return false
	}
	phrase, ok := e.detector.Detect(utterance)
	if !ok {
		return false
	}
	s.OptedOut = true
	s.OptOutPhrase = phrase
	s.Step = domain.StepOptOut
	return true
}

// Complete records a successful collection for step and moves to its
// successor. The step must be the current one.
func (e *Engine) Complete(s *domain.State, step domain.Step) error {
	if s.Terminal() {
		return ErrTerminal
	}
	if s.Step != step {
		return fmt.Errorf("%w: current %s, got %s", ErrStepMismatch, s.Step, step)
	}

	d, ok := domain.Describe(step)
	if !ok {
		return fmt.Errorf("unknown step %d", int(step))
	}

	if !s.Completed(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
	s.Step = d.Next
	return nil
}

// Skip marks the current answer unclear and advances anyway. Drivers use
// this after their own re-ask budget is spent.
func (e *Engine) Skip(s *domain.State) error {
	if s.Terminal() {
		return ErrTerminal
	}
	d, _ := domain.Describe(s.Step)
	s.UnclearSteps = append(s.UnclearSteps, s.Step)
	s.Step = d.Next
	return nil
}

// BeginTransfer freezes the routing outcome when the state enters the
// transfer step. A state that never computed routing transfers as LOW with
// no destination.
func (e *Engine) BeginTransfer(s *domain.State, at time.Time) {
	if s.Step != domain.StepTransfer || s.TransferInitiated {
		return
	}
	if !s.RoutingComputed {
		s.Tier = domain.TierLow
		s.Destination = ""
	}
	s.TransferInitiated = true
	s.TransferAttemptAt = &at
}
