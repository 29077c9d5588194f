package callrouting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

// Service classifies collected debt and resolves the transfer destination
type Service interface {
	// Route classifies the total debt for the scope and resolves a destination.
	// Provider failures fall through the cascade, so Route always decides.
	Route(ctx context.Context, scope Scope, totalDebt float64) *Decision
}

// Provider is one level of the configuration cascade
type Provider interface {
	// Name identifies the level in logs and decisions
	Name() string
	// TierConfig returns the level's overrides, or nil when it has none
	TierConfig(ctx context.Context, scope Scope) (*TierConfig, error)
}

// TierConfigRepository reads the JSON override blocks stored per tenant and agent
type TierConfigRepository interface {
	TenantTierConfig(ctx context.Context, tenantID uuid.UUID) (*TierConfig, error)
	AgentTierConfig(ctx context.Context, agentID uuid.UUID) (*TierConfig, error)
}

// MetricsCollector defines the interface for collecting routing metrics
type MetricsCollector interface {
	RecordRoutingDecision(ctx context.Context, decision *Decision)
}

// Scope identifies whose configuration applies to a call
type Scope struct {
	TenantID *uuid.UUID
	AgentID  *uuid.UUID
}

// Decision is the outcome of routing one call
type Decision struct {
	Tier        intake.Tier
	Destination string
	// Source names the provider that supplied the destination, empty when none did
	Source     string
	Thresholds Thresholds
	TotalDebt  float64
	Latency    time.Duration
}
