package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrouting"
)

// TierConfigRepository reads per-tenant and per-agent routing overrides
// from the tier_config JSONB columns.
type TierConfigRepository struct {
	db DB
}

// NewTierConfigRepository creates a new tier configuration repository
func NewTierConfigRepository(db DB) *TierConfigRepository {
	return &TierConfigRepository{db: db}
}

// TenantTierConfig returns the tenant's overrides, or nil when the tenant is
// unknown or has none.
func (r *TierConfigRepository) TenantTierConfig(ctx context.Context, tenantID uuid.UUID) (*callrouting.TierConfig, error) {
	return r.load(ctx, `SELECT tier_config FROM tenants WHERE id = $1`, tenantID)
}

// AgentTierConfig returns the agent's overrides, or nil when the agent is
// unknown or has none.
func (r *TierConfigRepository) AgentTierConfig(ctx context.Context, agentID uuid.UUID) (*callrouting.TierConfig, error) {
	return r.load(ctx, `SELECT tier_config FROM agents WHERE id = $1`, agentID)
}

func (r *TierConfigRepository) load(ctx context.Context, query string, id uuid.UUID) (*callrouting.TierConfig, error) {
	var raw []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, WrapRepositoryError(err, "load tier config")
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var cfg callrouting.TierConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decoding tier config for %s: %w", id, err)
	}
	return &cfg, nil
}
