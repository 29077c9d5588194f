package callrouting

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

func TestService_Route(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	agentID := uuid.New()
	scope := Scope{TenantID: &tenantID, AgentID: &agentID}

	env := EnvDestinations{Mid: "+15553000000", QueueA: "+15553000001", QueueB: "+15553000002"}

	tests := []struct {
		name       string
		scope      Scope
		total      float64
		setupMocks func(*MockTierConfigRepository)
		validate   func(*testing.T, *Decision)
	}{
		{
			name:  "tenant destination for mid tier",
			scope: scope,
			total: 30000,
			setupMocks: func(repo *MockTierConfigRepository) {
				repo.On("TenantTierConfig", ctx, tenantID).Return(&TierConfig{MidDestination: "+15551000000"}, nil)
				repo.On("AgentTierConfig", ctx, agentID).Return(&TierConfig{MidDestination: "+15552000000"}, nil)
			},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, intake.TierMid, d.Tier)
				assert.Equal(t, "+15551000000", d.Destination)
				assert.Equal(t, "tenant", d.Source)
			},
		},
		{
			name:  "agent destination when tenant has none",
			scope: scope,
			total: 30000,
			setupMocks: func(repo *MockTierConfigRepository) {
				repo.On("TenantTierConfig", ctx, tenantID).Return(nil, nil)
				repo.On("AgentTierConfig", ctx, agentID).Return(&TierConfig{MidDestination: "+15552000000"}, nil)
			},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, "+15552000000", d.Destination)
				assert.Equal(t, "agent", d.Source)
			},
		},
		{
			name:  "environment when tenant lookup fails",
			scope: scope,
			total: 30000,
			setupMocks: func(repo *MockTierConfigRepository) {
				repo.On("TenantTierConfig", ctx, tenantID).Return(nil, errors.New("connection refused"))
				repo.On("AgentTierConfig", ctx, agentID).Return(&TierConfig{}, nil)
			},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, "+15553000000", d.Destination)
				assert.Equal(t, "environment", d.Source)
			},
		},
		{
			name:       "legacy queue a backs high tier",
			scope:      Scope{},
			total:      80000,
			setupMocks: func(repo *MockTierConfigRepository) {},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, intake.TierHigh, d.Tier)
				assert.Equal(t, "+15553000001", d.Destination)
			},
		},
		{
			name:       "legacy queue b backs low tier",
			scope:      Scope{},
			total:      500,
			setupMocks: func(repo *MockTierConfigRepository) {},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, intake.TierLow, d.Tier)
				assert.Equal(t, "+15553000002", d.Destination)
			},
		},
		{
			name:  "tenant thresholds move the boundary",
			scope: Scope{TenantID: &tenantID},
			total: 30000,
			setupMocks: func(repo *MockTierConfigRepository) {
				high := 25000.0
				repo.On("TenantTierConfig", ctx, tenantID).Return(&TierConfig{HighThreshold: &high}, nil)
			},
			validate: func(t *testing.T, d *Decision) {
				assert.Equal(t, intake.TierHigh, d.Tier)
				assert.Equal(t, Thresholds{High: 25000, Mid: DefaultMidThreshold}, d.Thresholds)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockTierConfigRepository)
			metrics := new(MockMetricsCollector)
			tt.setupMocks(repo)
			metrics.On("RecordRoutingDecision", ctx, mock.AnythingOfType("*callrouting.Decision")).Return()

			svc := NewService(zaptest.NewLogger(t), metrics,
				NewTenantProvider(repo),
				NewAgentProvider(repo),
				NewEnvProvider(env),
			)

			decision := svc.Route(ctx, tt.scope, tt.total)
			tt.validate(t, decision)
			assert.Equal(t, tt.total, decision.TotalDebt)

			repo.AssertExpectations(t)
			metrics.AssertExpectations(t)
		})
	}
}

func TestService_RouteWithoutAnyDestination(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), nil, NewEnvProvider(EnvDestinations{}))

	decision := svc.Route(context.Background(), Scope{}, 12000)
	assert.Equal(t, intake.TierMid, decision.Tier)
	assert.Empty(t, decision.Destination)
	assert.Empty(t, decision.Source)
}
