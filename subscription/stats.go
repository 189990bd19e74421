package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats is the per-user rollup over a user's whole subscription history
type Stats struct {
	Total             int             `json:"total"`
	Active            int             `json:"active"`
	Expired           int             `json:"expired"`
	ExpireSoon        int             `json:"expiresoon"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	PendingPayments   int             `json:"pendingPayments"`
	FailedPayments    int             `json:"failedPayments"`
	RefundedPayments  int             `json:"refundedPayments"`
	NeedsStatusUpdate int             `json:"needsStatusUpdate"`
}

// ComputeStats classifies every subscription with ComputeStatus, so the
// rollup can never disagree with what each record displays on its own.
// Only completed payments are counted into the three status buckets and
// into revenue; the rest are reported by their payment state.
func ComputeStats(subs []Subscription, now time.Time) Stats {
	stats := Stats{
		Total:        len(subs),
		TotalRevenue: decimal.Zero,
	}

	for i := range subs {
		sub := &subs[i]
		info := ComputeStatus(sub, now)
		if info.NeedsStatusUpdate {
			stats.NeedsStatusUpdate++
		}

		switch sub.PaymentStatus {
		case PaymentCompleted:
			stats.TotalRevenue = stats.TotalRevenue.Add(sub.Variant.Price)
			switch info.RealTimeStatus {
			case StatusActive:
				stats.Active++
			case StatusExpireSoon:
				stats.ExpireSoon++
			case StatusExpired:
				stats.Expired++
			}
		case PaymentPending:
			stats.PendingPayments++
		case PaymentFailed:
			stats.FailedPayments++
		case PaymentRefunded:
			stats.RefundedPayments++
		}
	}

	return stats
}
