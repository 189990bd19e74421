package subscription

import (
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v3"
)

// UpdatePatch carries an operator-initiated mutation. Nil fields are left
// untouched. ExtendDuration and ExtendUnit must be supplied together.
type UpdatePatch struct {
	Status                 *Status
	PaymentStatus          *PaymentStatus
	StartDate              *time.Time
	EndDate                *time.Time
	IsLatest               *bool
	HistoricalArticleLimit *int
	Note                   *string
	ExtendDuration         *int
	ExtendUnit             *DurationUnit

	// Version is the Subscription.Version the caller read before editing.
	// A stale version is rejected with ConflictError instead of silently
	// overwriting a concurrent edit.
	Version uint
}

// Validate rejects malformed patches before any mutation happens
func (p *UpdatePatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be one of active, expiresoon, expired"}
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return &ValidationError{Field: "paymentStatus", Reason: "must be one of pending, completed, failed, refunded"}
	}
	if (p.ExtendDuration == nil) != (p.ExtendUnit == nil) {
		return &ValidationError{Field: "extendDuration", Reason: "extendDuration and extendUnit must be supplied together"}
	}
	if p.ExtendUnit != nil && !p.ExtendUnit.Valid() {
		return &ValidationError{Field: "extendUnit", Reason: "unrecognized unit " + string(*p.ExtendUnit)}
	}
	if p.ExtendDuration != nil && *p.ExtendDuration < 0 {
		return &ValidationError{Field: "extendDuration", Reason: "must not be negative"}
	}
	if p.HistoricalArticleLimit != nil && *p.HistoricalArticleLimit < 0 {
		return &ValidationError{Field: "historicalArticleLimit", Reason: "must not be negative"}
	}
	if p.Version == 0 {
		return &ValidationError{Field: "version", Reason: "version of the record being edited is required"}
	}
	return nil
}

// ApplyUpdate mutates sub in place according to patch, acting as actor at
// now, and returns one audit entry per changed field plus any note added.
// A rejected patch returns a typed error with sub left unchanged.
//
// Field order is deterministic: startDate and endDate first, then the
// extension, which is computed from the stored EndDate as it was before
// this patch and therefore wins over an explicit endDate in the same call.
// Extending an expired subscription resumes from its lapsed end date, not
// from now, so a short extension can leave it expired.
//
// The stored Status is only rewritten when the patch names it; the
// real-time status may legitimately diverge until an operator or the
// reconciler commits it.
func ApplyUpdate(sub *Subscription, patch UpdatePatch, actor string, now time.Time) ([]ChangeEntry, []Note, error) {
	if err := patch.Validate(); err != nil {
		return nil, nil, err
	}
	if patch.Version != sub.Version {
		return nil, nil, &ConflictError{
			SubscriptionID: sub.ID,
			Expected:       patch.Version,
			Actual:         sub.Version,
		}
	}

	entries := make([]ChangeEntry, 0, 4)
	record := func(field, from, to string) {
		entries = append(entries, ChangeEntry{
			ID:             shortuuid.New(),
			SubscriptionID: sub.ID,
			Field:          field,
			From:           from,
			To:             to,
			ChangedAt:      now,
			ChangedBy:      actor,
		})
	}

	// Resolve the dates the patch would produce before writing anything,
	// so a rejected patch leaves sub untouched.
	prospectiveStart := sub.StartDate
	if patch.StartDate != nil {
		prospectiveStart = *patch.StartDate
	}
	prospectiveEnd := sub.EndDate
	if patch.EndDate != nil {
		prospectiveEnd = *patch.EndDate
	}
	var extendedEnd time.Time
	if patch.ExtendDuration != nil {
		extended, err := AddDuration(sub.EndDate, *patch.ExtendDuration, *patch.ExtendUnit)
		if err != nil {
			return nil, nil, err
		}
		extendedEnd = extended
		prospectiveEnd = extended
	}
	if !prospectiveEnd.After(prospectiveStart) {
		return nil, nil, &ValidationError{Field: "endDate", Reason: "must be after startDate"}
	}

	if patch.StartDate != nil {
		record("startDate", formatTime(sub.StartDate), formatTime(*patch.StartDate))
		sub.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		record("endDate", formatTime(sub.EndDate), formatTime(*patch.EndDate))
		sub.EndDate = *patch.EndDate
	}
	if patch.ExtendDuration != nil {
		record("endDate", formatTime(sub.EndDate), formatTime(extendedEnd))
		sub.EndDate = extendedEnd
	}
	if patch.Status != nil {
		record("status", string(sub.Status), string(*patch.Status))
		sub.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		record("paymentStatus", string(sub.PaymentStatus), string(*patch.PaymentStatus))
		sub.PaymentStatus = *patch.PaymentStatus
	}
	if patch.IsLatest != nil {
		record("isLatest", strconv.FormatBool(sub.IsLatest), strconv.FormatBool(*patch.IsLatest))
		sub.IsLatest = *patch.IsLatest
	}
	if patch.HistoricalArticleLimit != nil {
		record("historicalArticleLimit", strconv.Itoa(sub.HistoricalArticleLimit), strconv.Itoa(*patch.HistoricalArticleLimit))
		sub.HistoricalArticleLimit = *patch.HistoricalArticleLimit
	}

	var notes []Note
	if patch.Note != nil && len(*patch.Note) > 0 {
		notes = append(notes, Note{
			ID:             shortuuid.New(),
			SubscriptionID: sub.ID,
			Note:           *patch.Note,
			AddedAt:        now,
			AddedBy:        actor,
		})
	}

	sub.Version++
	sub.UpdatedAt = now

	return entries, notes, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
