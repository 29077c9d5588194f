package callrouting

import (
	"context"
)

type tenantProvider struct {
	repo TierConfigRepository
}

// NewTenantProvider reads overrides stored on the call's tenant
func NewTenantProvider(repo TierConfigRepository) Provider {
	return &tenantProvider{repo: repo}
}

func (p *tenantProvider) Name() string { return "tenant" }

func (p *tenantProvider) TierConfig(ctx context.Context, scope Scope) (*TierConfig, error) {
	if scope.TenantID == nil {
		return nil, nil
	}
	return p.repo.TenantTierConfig(ctx, *scope.TenantID)
}

type agentProvider struct {
	repo TierConfigRepository
}

// NewAgentProvider reads overrides stored on the answering agent
func NewAgentProvider(repo TierConfigRepository) Provider {
	return &agentProvider{repo: repo}
}

func (p *agentProvider) Name() string { return "agent" }

func (p *agentProvider) TierConfig(ctx context.Context, scope Scope) (*TierConfig, error) {
	if scope.AgentID == nil {
		return nil, nil
	}
	return p.repo.AgentTierConfig(ctx, *scope.AgentID)
}

// EnvDestinations are the process-wide fallback addresses. The queue
// addresses are the older names still set on some deployments: queue A
// backs HIGH, queue B backs MID and LOW.
type EnvDestinations struct {
	High   string
	Mid    string
	Low    string
	QueueA string
	QueueB string

	HighThreshold *float64
	MidThreshold  *float64
}

type envProvider struct {
	config *TierConfig
}

// NewEnvProvider is the last level of the cascade
func NewEnvProvider(d EnvDestinations) Provider {
	return &envProvider{config: &TierConfig{
		HighThreshold:   d.HighThreshold,
		MidThreshold:    d.MidThreshold,
		HighDestination: firstNonEmpty(d.High, d.QueueA),
		MidDestination:  firstNonEmpty(d.Mid, d.QueueB),
		LowDestination:  firstNonEmpty(d.Low, d.QueueB),
	}}
}

func (p *envProvider) Name() string { return "environment" }

func (p *envProvider) TierConfig(context.Context, Scope) (*TierConfig, error) {
	return p.config, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
