package callrouting

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTierConfigRepository mock for tests
type MockTierConfigRepository struct {
	mock.Mock
}

func (m *MockTierConfigRepository) TenantTierConfig(ctx context.Context, tenantID uuid.UUID) (*TierConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TierConfig), args.Error(1)
}

func (m *MockTierConfigRepository) AgentTierConfig(ctx context.Context, agentID uuid.UUID) (*TierConfig, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TierConfig), args.Error(1)
}

// MockMetricsCollector mock for tests
type MockMetricsCollector struct {
	mock.Mock
}

func (m *MockMetricsCollector) RecordRoutingDecision(ctx context.Context, decision *Decision) {
	m.Called(ctx, decision)
}
