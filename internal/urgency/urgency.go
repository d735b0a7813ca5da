// Package urgency buckets listings by deadline proximity. The bucket is
// a function of the current time, so it is recomputed on every serve
// rather than persisted with the listing.
package urgency

import (
	"time"

	"tender_watch/internal/domain"
)

const (
	criticalDays = 2
	urgentDays   = 7
)

// Classify returns the urgency bucket for a deadline at the given
// instant. A nil deadline is normal, not an error.
func Classify(deadline *time.Time, now time.Time) domain.Urgency {
	if deadline == nil {
		return domain.UrgencyNormal
	}
	days := daysUntil(*deadline, now)
	switch {
	case days <= criticalDays:
		return domain.UrgencyCritical
	case days <= urgentDays:
		return domain.UrgencyUrgent
	default:
		return domain.UrgencyNormal
	}
}

// DaysUntil returns whole days remaining before the deadline, negative
// once it has passed.
func DaysUntil(deadline time.Time, now time.Time) int {
	return daysUntil(deadline, now)
}

func daysUntil(deadline, now time.Time) int {
	return int(deadline.Sub(now).Hours() / 24)
}
