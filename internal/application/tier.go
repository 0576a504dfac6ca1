package application

import (
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// secondsPerDay converts elapsed seconds to days.
const secondsPerDay = 86400

// ageInDays returns the elapsed time between lastComment and now in
// fractional days. A comment timestamp in the future yields zero.
func ageInDays(lastComment, now time.Time) float64 {
	elapsed := now.Sub(lastComment).Seconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed / secondsPerDay
}

// ClassifyTier maps an age in days to a tier. Thresholds are checked from the
// most urgent down and the first match wins, so an age exactly on a boundary
// lands in the more urgent tier.
func ClassifyTier(ageDays float64, th model.TierThresholds) model.Tier {
	switch {
	case ageDays >= th.DireDays:
		return model.TierDire
	case ageDays >= th.StaleDays:
		return model.TierStale
	case ageDays >= th.NeedsAttentionDays:
		return model.TierNeedsAttention
	default:
		return model.TierFresh
	}
}
