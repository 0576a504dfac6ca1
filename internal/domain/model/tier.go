package model

import "fmt"

// Tier classifies how long an author has been waiting since their last comment.
type Tier string

const (
	TierFresh          Tier = "fresh"
	TierNeedsAttention Tier = "needs-attention"
	TierStale          Tier = "stale"
	TierDire           Tier = "dire"
)

// Label returns the status label name for the tier.
func (t Tier) Label() string {
	return StatusPrefix + string(t)
}

// Tiers lists every tier from least to most urgent.
func Tiers() []Tier {
	return []Tier{TierFresh, TierNeedsAttention, TierStale, TierDire}
}

// TierThresholds holds the minimum age in days for each escalated tier.
// Anything younger than NeedsAttentionDays is fresh.
type TierThresholds struct {
	NeedsAttentionDays float64
	StaleDays          float64
	DireDays           float64
}

// DefaultTierThresholds returns the 1/15/90 day thresholds.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		NeedsAttentionDays: 1,
		StaleDays:          15,
		DireDays:           90,
	}
}

// Validate checks that thresholds are non-negative and strictly ascending.
func (t TierThresholds) Validate() error {
	if t.NeedsAttentionDays < 0 {
		return fmt.Errorf("needs-attention threshold must not be negative, got %v", t.NeedsAttentionDays)
	}
	if t.StaleDays <= t.NeedsAttentionDays {
		return fmt.Errorf("stale threshold (%v) must be greater than needs-attention threshold (%v)", t.StaleDays, t.NeedsAttentionDays)
	}
	if t.DireDays <= t.StaleDays {
		return fmt.Errorf("dire threshold (%v) must be greater than stale threshold (%v)", t.DireDays, t.StaleDays)
	}
	return nil
}
