package intake

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrouting"
)

// TransferMethod is the only transfer mechanism the runtime supports
const TransferMethod = "SIP"

// Config holds the turn handler's settings
type Config struct {
	Script          Script
	Trunk           string
	LookupTimeout   time.Duration
	FinalizeTimeout time.Duration
}

// DefaultConfig returns production settings
func DefaultConfig() Config {
	return Config{
		Script:          DefaultScript(),
		LookupTimeout:   3 * time.Second,
		FinalizeTimeout: 5 * time.Second,
	}
}

// Deps groups the turn handler's collaborators. Leads, Arena and Metrics
// may be nil.
type Deps struct {
	Detector  OptOutDetector
	Router    callrouting.Service
	Persister RecordPersister
	Leads     LeadLookup
	Arena     SessionArena
	Metrics   MetricsCollector
	Logger    *zap.Logger
}

// service implements the Service interface
type service struct {
	engine    *Engine
	router    callrouting.Service
	persister RecordPersister
	leads     LeadLookup
	arena     SessionArena
	metrics   MetricsCollector
	logger    *zap.Logger
	cfg       Config
}

// NewService creates a new intake turn handler
func NewService(deps Deps, cfg Config) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		engine:    NewEngine(deps.Detector),
		router:    deps.Router,
		persister: deps.Persister,
		leads:     deps.Leads,
		arena:     deps.Arena,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *service) HandleTurn(ctx context.Context, req *TurnRequest) (resp *TurnResponse, err error) {
	if req == nil || req.CallID == "" {
		return nil, errors.NewValidationError("MISSING_CALL_ID", "call id is required")
	}

	start := time.Now()
	logger := s.logger.With(zap.String("call_id", req.CallID))

	// A failure inside a turn must never drop the caller; echo the session
	// back and ask again.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("intake turn panicked", zap.Any("panic", r))
			resp = &TurnResponse{
				Text:      reaskPrefix + "Could you say that one more time?",
				Session:   req.Session,
				Directive: DirectiveReask,
			}
			err = nil
		}
	}()

	state, fresh := s.loadState(ctx, req, logger)
	prior := state.Step

	switch {
	case state.Terminal():
		resp = s.respond(state, s.terminalText(state), terminalDirective(state), logger)

	case s.engine.Interrupt(state, req.Utterance):
		resp = s.optOut(ctx, state, prior, logger)

	case fresh:
		s.lookupLead(ctx, state, logger)
		resp = s.respond(state, s.cfg.Script.Greeting(state.Lead), DirectiveContinue, logger)

	default:
		resp = s.advance(ctx, state, req, logger)
	}

	if !state.Terminal() {
		s.remember(ctx, state, logger)
	}
	if s.metrics != nil {
		s.metrics.RecordTurn(ctx, resp.Step, resp.Directive, time.Since(start))
	}
	return resp, nil
}

// advance runs the current step's action and moves on when it succeeds
func (s *service) advance(ctx context.Context, state *domain.State, req *TurnRequest, logger *zap.Logger) *TurnResponse {
	d, _ := domain.Describe(state.Step)

	switch {
	case req.Skip:
		logger.Info("answer marked unclear", zap.String("step", state.Step.String()))
		if err := s.engine.Skip(state); err != nil {
			return s.respond(state, s.cfg.Script.Reask(state), DirectiveReask, logger)
		}
	case d.Narration():
		narrate(state, d, req.Utterance, req.Args)
		if err := s.engine.Complete(state, d.Step); err != nil {
			return s.respond(state, s.cfg.Script.Reask(state), DirectiveReask, logger)
		}
	default:
		if !collect(state, d, req.Utterance, req.Args) {
			logger.Debug("answer not usable, asking again",
				zap.String("step", state.Step.String()),
				zap.String("action", d.Action.String()),
			)
			return s.respond(state, s.cfg.Script.Reask(state), DirectiveReask, logger)
		}
		if err := s.engine.Complete(state, d.Step); err != nil {
			return s.respond(state, s.cfg.Script.Reask(state), DirectiveReask, logger)
		}
	}

	if state.DebtComplete() && !state.RoutingComputed {
		s.route(ctx, state, logger)
	}

	if state.Step == domain.StepTransfer {
		return s.transfer(ctx, state, logger)
	}
	return s.respond(state, s.cfg.Script.Prompt(state), DirectiveContinue, logger)
}

func (s *service) route(ctx context.Context, state *domain.State, logger *zap.Logger) {
	decision := s.router.Route(ctx, callrouting.Scope{TenantID: state.TenantID, AgentID: state.AgentID}, state.TotalDebt)

	state.Tier = decision.Tier
	state.Destination = decision.Destination
	state.RoutingComputed = true

	logger.Info("intake routed",
		zap.Float64("total_debt", state.TotalDebt),
		zap.String("tier", decision.Tier.String()),
		zap.String("destination", decision.Destination),
		zap.String("source", decision.Source),
	)
}

func (s *service) transfer(ctx context.Context, state *domain.State, logger *zap.Logger) *TurnResponse {
	s.engine.BeginTransfer(state, call.Now())
	if s.metrics != nil {
		s.metrics.RecordTransfer(ctx, state.Tier, state.Destination != "")
	}
	if state.Destination == "" {
		logger.Warn("transferring without a destination", zap.String("tier", state.Tier.String()))
	}

	s.finalize(ctx, state, logger)
	return s.respond(state, s.terminalText(state), DirectiveTransfer, logger)
}

func (s *service) optOut(ctx context.Context, state *domain.State, during domain.Step, logger *zap.Logger) *TurnResponse {
	logger.Info("caller opted out",
		zap.String("phrase", state.OptOutPhrase),
		zap.String("step", during.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordOptOut(ctx, during)
	}

	s.finalize(ctx, state, logger)
	return s.respond(state, s.terminalText(state), DirectiveHangup, logger)
}

// finalize writes the call record at a terminal transition. Failure leaves
// the state unrecorded so the call-end report can try again.
func (s *service) finalize(ctx context.Context, state *domain.State, logger *zap.Logger) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FinalizeTimeout)
	defer cancel()

	record, err := s.persister.Finalize(fctx, state, nil)
	if err != nil {
		logger.Error("call record not created", zap.Error(err))
	} else {
		state.Recorded = true
		state.RecordID = &record.ID
	}

	s.forget(ctx, state.CallID, logger)
}

func (s *service) EndCall(ctx context.Context, req *EndCallRequest) (*EndCallResponse, error) {
	if req == nil || req.CallID == "" {
		return nil, errors.NewValidationError("MISSING_CALL_ID", "call id is required")
	}
	logger := s.logger.With(zap.String("call_id", req.CallID))

	state := s.recoverState(ctx, req.CallID, req.Session, logger)
	defer s.forget(ctx, req.CallID, logger)

	// a call that has ended cannot still be in progress
	status := req.Status
	if status == call.StatusInProgress {
		status = call.StatusCompleted
	}
	end := callrecord.CallEnd{Duration: req.Duration, Status: status, EndedAt: call.Now()}

	if state == nil {
		logger.Warn("call ended without any intake state")
		return &EndCallResponse{}, nil
	}

	if state.Recorded && state.RecordID != nil {
		if err := s.persister.RecordCallEnd(ctx, *state.RecordID, state.CallID, end); err != nil {
			logger.Warn("call end not recorded", zap.Error(err))
		}
		return &EndCallResponse{RecordID: state.RecordID}, nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FinalizeTimeout)
	defer cancel()

	record, err := s.persister.Finalize(fctx, state, &end)
	if err != nil {
		logger.Error("call record not created at call end", zap.Error(err))
		return &EndCallResponse{}, nil
	}
	return &EndCallResponse{RecordID: &record.ID, Created: true}, nil
}

// loadState restores the turn's state from the payload, then the arena, and
// otherwise starts a new call. fresh reports a new call.
func (s *service) loadState(ctx context.Context, req *TurnRequest, logger *zap.Logger) (state *domain.State, fresh bool) {
	if req.Session != "" {
		decoded, err := domain.DecodeSession(req.Session)
		if err == nil && decoded.CallID == req.CallID {
			return decoded, false
		}
		if err == nil {
			err = fmt.Errorf("session belongs to call %s", decoded.CallID)
		}
		logger.Warn("session payload unusable", zap.Error(err))

		if cached := s.cached(ctx, req.CallID, logger); cached != nil {
			return cached, false
		}

		state = s.newState(req)
		state.Error = "session payload unreadable: " + err.Error()
		return state, true
	}

	if cached := s.cached(ctx, req.CallID, logger); cached != nil {
		return cached, false
	}
	return s.newState(req), true
}

// recoverState is loadState for the call-end path, which never starts a call
func (s *service) recoverState(ctx context.Context, callID, session string, logger *zap.Logger) *domain.State {
	if session != "" {
		decoded, err := domain.DecodeSession(session)
		if err == nil && decoded.CallID == callID {
			return decoded
		}
		if err == nil {
			err = fmt.Errorf("session belongs to call %s", decoded.CallID)
		}
		logger.Warn("session payload unusable at call end", zap.Error(err))
	}
	return s.cached(ctx, callID, logger)
}

func (s *service) newState(req *TurnRequest) *domain.State {
	state := domain.NewState(req.CallID, req.CallerAddress, call.Now())
	state.CalledAddress = req.CalledAddress
	state.TenantID = req.TenantID
	state.AgentID = req.AgentID
	return state
}

func (s *service) lookupLead(ctx context.Context, state *domain.State, logger *zap.Logger) {
	if s.leads == nil {
		return
	}
	phone, err := values.NewPhoneNumber(state.CallerAddress)
	if err != nil {
		logger.Debug("caller address is not a phone number, skipping CRM lookup", zap.Error(err))
		return
	}

	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	lead, err := s.leads.LookupLead(lctx, phone)
	if err != nil {
		logger.Warn("CRM lookup failed, using generic greeting", zap.Error(err))
		return
	}
	state.Lead = lead
}

func (s *service) cached(ctx context.Context, callID string, logger *zap.Logger) *domain.State {
	if s.arena == nil {
		return nil
	}
	state, err := s.arena.Get(ctx, callID)
	if err != nil {
		logger.Warn("session arena read failed", zap.Error(err))
		return nil
	}
	return state
}

func (s *service) remember(ctx context.Context, state *domain.State, logger *zap.Logger) {
	if s.arena == nil {
		return
	}
	if err := s.arena.Put(ctx, state); err != nil {
		logger.Warn("session arena write failed", zap.Error(err))
	}
}

func (s *service) forget(ctx context.Context, callID string, logger *zap.Logger) {
	if s.arena == nil {
		return
	}
	if err := s.arena.Remove(ctx, callID); err != nil {
		logger.Warn("session arena remove failed", zap.Error(err))
	}
}

func (s *service) respond(state *domain.State, text string, directive Directive, logger *zap.Logger) *TurnResponse {
	resp := &TurnResponse{
		Text:      text,
		Step:      state.Step,
		Directive: directive,
	}

	session, err := domain.EncodeSession(state)
	if err != nil {
		logger.Error("failed to encode session", zap.Error(err))
	}
	resp.Session = session

	if directive == DirectiveTransfer {
		resp.Transfer = &TransferTarget{
			Destination: state.Destination,
			Tier:        state.Tier,
			Trunk:       s.cfg.Trunk,
			Method:      TransferMethod,
		}
	}
	return resp
}

func (s *service) terminalText(state *domain.State) string {
	return s.cfg.Script.Prompt(state)
}

func terminalDirective(state *domain.State) Directive {
	if state.Step == domain.StepTransfer {
		return DirectiveTransfer
	}
	return DirectiveHangup
}
