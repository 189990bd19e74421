package subscription_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/BharatRVala/rupie-times-sub001/subscription"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	price := func(n int64) subscription.Variant {
		return subscription.Variant{
			DurationLabel: "1 Month",
			DurationValue: 1,
			DurationUnit:  subscription.UnitMonths,
			Price:         decimal.NewFromInt(n),
		}
	}

	subs := []subscription.Subscription{
		// active, paid
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -1, 0), now.AddDate(0, 1, 0))
			s.Variant = price(999)
			return s
		}(),
		// expiring soon, paid, stored status stale
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -1, 0), now.Add(5*24*time.Hour))
			s.Variant = price(999)
			return s
		}(),
		// expired, paid, stored status stale
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0))
			s.Variant = price(499)
			return s
		}(),
		// pending payment, end date in the past but not time-governed
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -1, 0), now.AddDate(0, -1, 14))
			s.PaymentStatus = subscription.PaymentPending
			s.Variant = price(999)
			return s
		}(),
		// failed payment
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -1, 0), now.AddDate(0, 1, 0))
			s.PaymentStatus = subscription.PaymentFailed
			s.Variant = price(999)
			return s
		}(),
		// refunded payment
		func() subscription.Subscription {
			s := paidSubscription(now.AddDate(0, -1, 0), now.AddDate(0, 1, 0))
			s.PaymentStatus = subscription.PaymentRefunded
			s.Variant = price(1999)
			return s
		}(),
	}

	stats := subscription.ComputeStats(subs, now)

	t.Run("buckets", func(t *testing.T) {
		assert.Equal(t, 6, stats.Total)
		assert.Equal(t, 1, stats.Active)
		assert.Equal(t, 1, stats.ExpireSoon)
		assert.Equal(t, 1, stats.Expired)
		assert.Equal(t, 1, stats.PendingPayments)
		assert.Equal(t, 1, stats.FailedPayments)
		assert.Equal(t, 1, stats.RefundedPayments)
	})

	t.Run("revenue only counts completed payments", func(t *testing.T) {
		assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(2497)), "got %s", stats.TotalRevenue)
	})

	t.Run("status buckets agree with per-record classification", func(t *testing.T) {
		completed := 0
		active, expireSoon, expired, drift := 0, 0, 0, 0
		for i := range subs {
			info := subscription.ComputeStatus(&subs[i], now)
			if info.NeedsStatusUpdate {
				drift++
			}
			if subs[i].PaymentStatus != subscription.PaymentCompleted {
				continue
			}
			completed++
			switch info.RealTimeStatus {
			case subscription.StatusActive:
				active++
			case subscription.StatusExpireSoon:
				expireSoon++
			case subscription.StatusExpired:
				expired++
			}
		}
		assert.Equal(t, completed, stats.Active+stats.ExpireSoon+stats.Expired)
		assert.Equal(t, active, stats.Active)
		assert.Equal(t, expireSoon, stats.ExpireSoon)
		assert.Equal(t, expired, stats.Expired)
		assert.Equal(t, drift, stats.NeedsStatusUpdate)
	})

	t.Run("drift counts stale stored statuses", func(t *testing.T) {
		// the expiring-soon and expired records still carry "active"
		assert.Equal(t, 2, stats.NeedsStatusUpdate)
	})

	t.Run("empty history", func(t *testing.T) {
		empty := subscription.ComputeStats(nil, now)
		assert.Equal(t, 0, empty.Total)
		assert.True(t, empty.TotalRevenue.Equal(decimal.Zero))
	})
}
