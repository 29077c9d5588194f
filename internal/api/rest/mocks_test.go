package rest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) HandleTurn(ctx context.Context, req *intake.TurnRequest) (*intake.TurnResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*intake.TurnResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIntakeService) EndCall(ctx context.Context, req *intake.EndCallRequest) (*intake.EndCallResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*intake.EndCallResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockHTTPMetrics struct {
	mock.Mock
}

func (m *MockHTTPMetrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.Called(method, route, status, elapsed)
}
