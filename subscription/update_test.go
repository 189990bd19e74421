package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BharatRVala/rupie-times-sub001/subscription"
)

func statusPtr(s subscription.Status) *subscription.Status { return &s }

func unitPtr(u subscription.DurationUnit) *subscription.DurationUnit { return &u }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestApplyUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)

	fixture := func() subscription.Subscription {
		return paidSubscription(
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		)
	}

	t.Run("one audit entry per patched field", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		entries, notes, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Status:                 statusPtr(subscription.StatusExpired),
			IsLatest:               boolPtr(false),
			HistoricalArticleLimit: intPtr(25),
			Version:                1,
		}, "ops@example.com", now)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Empty(t, notes)

		fields := make(map[string]subscription.ChangeEntry)
		for _, e := range entries {
			fields[e.Field] = e
			assert.Equal(t, "ops@example.com", e.ChangedBy)
			assert.Equal(t, now, e.ChangedAt)
			assert.Equal(t, sub.ID, e.SubscriptionID)
		}
		assert.Equal(t, "active", fields["status"].From)
		assert.Equal(t, "expired", fields["status"].To)
		assert.Equal(t, "true", fields["isLatest"].From)
		assert.Equal(t, "0", fields["historicalArticleLimit"].From)
		assert.Equal(t, "25", fields["historicalArticleLimit"].To)

		assert.Equal(t, subscription.StatusExpired, sub.Status)
		assert.False(t, sub.IsLatest)
		assert.Equal(t, 25, sub.HistoricalArticleLimit)
		assert.Equal(t, uint(2), sub.Version)
		assert.Equal(t, now, sub.UpdatedAt)
	})

	t.Run("extension adds to stored end date", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		sub.EndDate = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

		entries, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(2),
			ExtendUnit:     unitPtr(subscription.UnitMonths),
			Version:        1,
		}, "ops", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), sub.EndDate)
		require.Len(t, entries, 1)
		assert.Equal(t, "endDate", entries[0].Field)
	})

	t.Run("extension wins over explicit end date in the same patch", func(t *testing.T) {
		t.Parallel()
		sub := fixture()

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			EndDate:        timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
			ExtendDuration: intPtr(1),
			ExtendUnit:     unitPtr(subscription.UnitMonths),
			Version:        1,
		}, "ops", now)
		require.NoError(t, err)
		// computed from the stored end date before the patch, not from
		// the explicit endDate and not from now
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), sub.EndDate)
	})

	t.Run("extending an expired subscription resumes from its lapsed end", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		sub.EndDate = now.AddDate(0, 0, -5)
		sub.Status = subscription.StatusExpired

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(30),
			ExtendUnit:     unitPtr(subscription.UnitDays),
			Version:        1,
		}, "ops", now)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 0, 25), sub.EndDate)

		info := subscription.ComputeStatus(&sub, now)
		assert.Equal(t, subscription.StatusActive, info.RealTimeStatus)
	})

	t.Run("a short extension can leave it expired", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		sub.EndDate = now.AddDate(0, 0, -5)
		sub.Status = subscription.StatusExpired

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(3),
			ExtendUnit:     unitPtr(subscription.UnitDays),
			Version:        1,
		}, "ops", now)
		require.NoError(t, err)
		assert.True(t, sub.EndDate.Before(now))

		info := subscription.ComputeStatus(&sub, now)
		assert.Equal(t, subscription.StatusExpired, info.RealTimeStatus)
		assert.False(t, info.NeedsStatusUpdate)
	})

	t.Run("stored status is operator authoritative", func(t *testing.T) {
		t.Parallel()
		// forcing expired with 7 days left sticks, and the real-time
		// status legitimately diverges until reconciliation
		sub := fixture()
		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Status:  statusPtr(subscription.StatusExpired),
			Version: 1,
		}, "ops", now)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, sub.Status)

		info := subscription.ComputeStatus(&sub, now)
		assert.Equal(t, subscription.StatusExpireSoon, info.RealTimeStatus)
		assert.True(t, info.NeedsStatusUpdate)
	})

	t.Run("extension alone never rewrites the stored status", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		sub.Status = subscription.StatusExpired

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(6),
			ExtendUnit:     unitPtr(subscription.UnitMonths),
			Version:        1,
		}, "ops", now)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, sub.Status)
	})

	t.Run("note is appended without an audit entry", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		entries, notes, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Note:    strPtr("customer called about renewal"),
			Version: 1,
		}, "ops", now)
		require.NoError(t, err)
		assert.Empty(t, entries)
		require.Len(t, notes, 1)
		assert.Equal(t, "customer called about renewal", notes[0].Note)
		assert.Equal(t, "ops", notes[0].AddedBy)
		assert.Equal(t, now, notes[0].AddedAt)
	})

	t.Run("invalid status is rejected without mutation", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		before := sub

		entries, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Status:  statusPtr(subscription.Status("cancelled")),
			Version: 1,
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Empty(t, entries)
		assert.Equal(t, before, sub)
	})

	t.Run("unrecognized extend unit is rejected", func(t *testing.T) {
		t.Parallel()
		sub := fixture()

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(1),
			ExtendUnit:     unitPtr(subscription.DurationUnit("decades")),
			Version:        1,
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("extend duration without unit is rejected", func(t *testing.T) {
		t.Parallel()
		sub := fixture()

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			ExtendDuration: intPtr(1),
			Version:        1,
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("stale version is rejected with conflict", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		sub.Version = 4

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Status:  statusPtr(subscription.StatusExpired),
			Version: 3,
		}, "ops", now)
		var conflict *subscription.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, uint(3), conflict.Expected)
		assert.Equal(t, uint(4), conflict.Actual)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("missing version is rejected", func(t *testing.T) {
		t.Parallel()
		sub := fixture()

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			Status: statusPtr(subscription.StatusExpired),
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("end date before start date is rejected without mutation", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		before := sub

		entries, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			EndDate: timePtr(sub.StartDate.Add(-time.Hour)),
			Version: 1,
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Empty(t, entries)
		assert.Equal(t, before, sub)
	})

	t.Run("invariant is checked against the moved start date", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		before := sub

		_, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
			StartDate: timePtr(sub.EndDate.Add(time.Hour)),
			Version:   1,
		}, "ops", now)
		var invalid *subscription.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, before, sub)
	})

	t.Run("repeated updates only ever append to the ledger", func(t *testing.T) {
		t.Parallel()
		sub := fixture()
		ledger := make([]subscription.ChangeEntry, 0, 4)

		for i, status := range []subscription.Status{
			subscription.StatusExpired,
			subscription.StatusActive,
			subscription.StatusExpireSoon,
		} {
			entries, _, err := subscription.ApplyUpdate(&sub, subscription.UpdatePatch{
				Status:  statusPtr(status),
				Version: uint(i + 1),
			}, "ops", now.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
			prior := make([]subscription.ChangeEntry, len(ledger))
			copy(prior, ledger)
			ledger = append(ledger, entries...)
			// earlier entries are untouched by later updates
			assert.Equal(t, prior, ledger[:len(prior)])
		}
		assert.Len(t, ledger, 3)
	})
}
