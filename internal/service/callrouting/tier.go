package callrouting

import (
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

const (
	DefaultHighThreshold = 35000.0
	DefaultMidThreshold  = 10000.0
)

// Thresholds are the inclusive lower bounds of the HIGH and MID tiers
type Thresholds struct {
	High float64
	Mid  float64
}

// DefaultThresholds returns the standard 35000/10000 split
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Mid: DefaultMidThreshold}
}

// Classify buckets a total debt: HIGH at or above the high threshold, MID at
// or above the mid threshold, LOW otherwise.
func Classify(totalDebt float64, t Thresholds) intake.Tier {
	switch {
	case totalDebt >= t.High:
		return intake.TierHigh
	case totalDebt >= t.Mid:
		return intake.TierMid
	default:
		return intake.TierLow
	}
}

// TierConfig is a per-tenant or per-agent override block. Any field may be
// absent, in which case the next level of the cascade is consulted.
type TierConfig struct {
	HighThreshold   *float64 `json:"high_threshold,omitempty" koanf:"high_threshold"`
	MidThreshold    *float64 `json:"mid_threshold,omitempty" koanf:"mid_threshold"`
	HighDestination string   `json:"high_did,omitempty" koanf:"high_did"`
	MidDestination  string   `json:"mid_did,omitempty" koanf:"mid_did"`
	LowDestination  string   `json:"low_did,omitempty" koanf:"low_did"`
}

// Destination returns the address configured for a tier
func (c *TierConfig) Destination(tier intake.Tier) string {
	if c == nil {
		return ""
	}
	switch tier {
	case intake.TierHigh:
		return c.HighDestination
	case intake.TierMid:
		return c.MidDestination
	case intake.TierLow:
		return c.LowDestination
	default:
		return ""
	}
}

// ResolveDestination returns the first non-empty address for the tier across
// configs, which are given in precedence order (tenant, agent, environment).
// It returns "" when no level configures the tier.
func ResolveDestination(tier intake.Tier, configs ...*TierConfig) string {
	for _, c := range configs {
		if d := c.Destination(tier); d != "" {
			return d
		}
	}
	return ""
}

// ResolveThresholds applies the same precedence to each threshold
// independently, falling back to the defaults.
func ResolveThresholds(configs ...*TierConfig) Thresholds {
	t := DefaultThresholds()
	highSet, midSet := false, false
	for _, c := range configs {
		if c == nil {
			continue
		}
		if !highSet && c.HighThreshold != nil {
			t.High, highSet = *c.HighThreshold, true
		}
		if !midSet && c.MidThreshold != nil {
			t.Mid, midSet = *c.MidThreshold, true
		}
	}
	return t
}
