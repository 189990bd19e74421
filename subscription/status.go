package subscription

import "time"

// StatusInfo is the real-time view of a Subscription at a given instant.
// It is computed on every read and never persisted as-is; committing
// RealTimeStatus back to the stored Status is the reconciler's job.
type StatusInfo struct {
	RealTimeStatus    Status `json:"realTimeStatus"`
	IsActive          bool   `json:"isActive"`
	IsExpiringSoon    bool   `json:"isExpiringSoon"`
	DaysRemaining     int    `json:"daysRemaining"`
	NeedsStatusUpdate bool   `json:"needsStatusUpdate"`
}

// ComputeStatus derives the real-time status of a Subscription at now.
// It is a pure function: sub is never mutated, so it is safe to call from
// any number of concurrent readers.
//
// Subscriptions whose payment is not completed are not time-governed at
// all: the stored status is reported verbatim and they are never active.
// For paid subscriptions, a missing EndDate is treated as already expired
// rather than active.
func ComputeStatus(sub *Subscription, now time.Time) StatusInfo {
	if sub.PaymentStatus != PaymentCompleted {
		return StatusInfo{
			RealTimeStatus: sub.Status,
		}
	}

	info := StatusInfo{}
	remaining := sub.EndDate.Sub(now)
	if sub.EndDate.IsZero() || remaining <= 0 {
		info.RealTimeStatus = StatusExpired
	} else {
		info.DaysRemaining = daysCeil(remaining)
		if !sub.EndDate.After(ExpireSoonBoundary(now)) {
			info.RealTimeStatus = StatusExpireSoon
			info.IsExpiringSoon = true
		} else {
			info.RealTimeStatus = StatusActive
			info.IsActive = true
		}
	}

	info.NeedsStatusUpdate = info.RealTimeStatus != sub.Status
	return info
}

// ExpireSoonBoundary returns the last instant an end date still counts as
// expiring soon at now. ComputeStatus and the reconciler's drift query
// both derive their window from it so the two classifiers cannot diverge.
func ExpireSoonBoundary(now time.Time) time.Time {
	return now.Add(ExpireSoonThresholdDays * 24 * time.Hour)
}

// daysCeil rounds a positive duration up to whole days
func daysCeil(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
