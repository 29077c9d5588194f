package instrumentation

import (
	"context"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/telemetry"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

// IntakeTracedService wraps the intake turn handler with a span per request
type IntakeTracedService struct {
	service intake.Service
	tracer  telemetry.TracerInterface
}

// NewIntakeTracedService creates a new instrumented intake service
func NewIntakeTracedService(service intake.Service, tracer telemetry.TracerInterface) *IntakeTracedService {
	return &IntakeTracedService{service: service, tracer: tracer}
}

// HandleTurn instruments one conversation turn
func (s *IntakeTracedService) HandleTurn(ctx context.Context, req *intake.TurnRequest) (*intake.TurnResponse, error) {
	attrs := map[string]interface{}{
		"span.kind": "server",
		"component": "intake",
		"turn.skip": req != nil && req.Skip,
	}
	if req != nil {
		attrs["call.id"] = req.CallID
		attrs["turn.resumed"] = req.Session != ""
	}
	ctx, span := s.tracer.StartSpanWithAttributes(ctx, "intake.HandleTurn", attrs)
	defer span.End()

	resp, err := s.service.HandleTurn(ctx, req)
	if err != nil {
		s.tracer.RecordError(span, err, "Intake turn rejected")
		return nil, err
	}

	s.tracer.SetAttributes(span, map[string]interface{}{
		"intake.step":      resp.Step.String(),
		"intake.directive": resp.Directive.String(),
	})

	switch resp.Directive {
	case intake.DirectiveTransfer:
		if resp.Transfer != nil {
			s.tracer.AddEvent(span, "transfer_requested", map[string]interface{}{
				"transfer.tier":            resp.Transfer.Tier.String(),
				"transfer.has_destination": resp.Transfer.Destination != "",
			})
		}
	case intake.DirectiveHangup:
		s.tracer.AddEvent(span, "call_ending", map[string]interface{}{
			"intake.step": resp.Step.String(),
		})
	}

	return resp, nil
}

// EndCall instruments the call-end report
func (s *IntakeTracedService) EndCall(ctx context.Context, req *intake.EndCallRequest) (*intake.EndCallResponse, error) {
	attrs := map[string]interface{}{
		"span.kind": "server",
		"component": "intake",
	}
	if req != nil {
		attrs["call.id"] = req.CallID
		attrs["call.status"] = req.Status.String()
	}
	ctx, span := s.tracer.StartSpanWithAttributes(ctx, "intake.EndCall", attrs)
	defer span.End()

	resp, err := s.service.EndCall(ctx, req)
	if err != nil {
		s.tracer.RecordError(span, err, "Call end rejected")
		return nil, err
	}

	s.tracer.SetAttributes(span, map[string]interface{}{
		"record.created": resp.Created,
	})
	if resp.RecordID != nil {
		s.tracer.SetAttributes(span, map[string]interface{}{
			"record.id": resp.RecordID.String(),
		})
	}
	return resp, nil
}

var _ intake.Service = (*IntakeTracedService)(nil)
