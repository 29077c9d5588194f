package callrouting

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	providers []Provider
	metrics   MetricsCollector
	logger    *zap.Logger
}

// NewService creates a router over providers given in precedence order,
// normally tenant, agent, then environment.
func NewService(logger *zap.Logger, metrics MetricsCollector, providers ...Provider) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		providers: providers,
		metrics:   metrics,
		logger:    logger,
	}
}

// Route queries every provider once, then classifies and resolves against
// the collected configs.
func (s *service) Route(ctx context.Context, scope Scope, totalDebt float64) *Decision {
	start := time.Now()

	configs := make([]*TierConfig, len(s.providers))
	for i, p := range s.providers {
		cfg, err := p.TierConfig(ctx, scope)
		if err != nil {
			s.logger.Warn("tier config provider failed, falling through",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		configs[i] = cfg
	}

	thresholds := ResolveThresholds(configs...)
	tier := Classify(totalDebt, thresholds)

	decision := &Decision{
		Tier:       tier,
		Thresholds: thresholds,
		TotalDebt:  totalDebt,
	}
	for i, cfg := range configs {
		if d := cfg.Destination(tier); d != "" {
			decision.Destination = d
			decision.Source = s.providers[i].Name()
			break
		}
	}
	decision.Latency = time.Since(start)

	if decision.Destination == "" {
		s.logger.Warn("no transfer destination configured for tier",
			zap.String("tier", tier.String()),
			zap.Float64("total_debt", totalDebt),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordRoutingDecision(ctx, decision)
	}

	return decision
}
