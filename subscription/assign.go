package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

// AssignOption describes a new subscription to be created, either from a
// completed checkout or from a manual operator assignment
type AssignOption struct {
	UserID        string
	ProductID     string
	Variant       Variant
	Start         time.Time
	PaymentStatus PaymentStatus
	PaymentID     string
	TransactionID string
	Actor         string
}

func (o *AssignOption) Validate() error {
	if len(o.UserID) == 0 {
		return &ValidationError{Field: "userId", Reason: "is required"}
	}
	if len(o.ProductID) == 0 {
		return &ValidationError{Field: "productId", Reason: "is required"}
	}
	if o.Variant.DurationValue < 0 {
		return &ValidationError{Field: "variant.durationValue", Reason: "must not be negative"}
	}
	if !o.Variant.DurationUnit.Valid() {
		return &ValidationError{Field: "variant.durationUnit", Reason: "unrecognized unit " + string(o.Variant.DurationUnit)}
	}
	if o.Variant.Price.IsNegative() {
		return &ValidationError{Field: "variant.price", Reason: "must not be negative"}
	}
	if len(o.PaymentStatus) > 0 && !o.PaymentStatus.Valid() {
		return &ValidationError{Field: "paymentStatus", Reason: "must be one of pending, completed, failed, refunded"}
	}
	return nil
}

// NewFromVariant builds a Subscription from a purchased variant. The end
// date is the start plus the variant's duration, using the same calendar
// arithmetic as extensions. Manual operator assignments leave
// PaymentStatus empty and get "completed".
//
// New subscriptions always start as StatusActive; a variant short enough
// to begin inside the expire-soon window will be caught by the first
// reconciliation sweep.
func NewFromVariant(opt AssignOption, now time.Time) (*Subscription, ChangeEntry, error) {
	if err := opt.Validate(); err != nil {
		return nil, ChangeEntry{}, err
	}

	start := opt.Start
	if start.IsZero() {
		start = now
	}
	end, err := AddDuration(start, opt.Variant.DurationValue, opt.Variant.DurationUnit)
	if err != nil {
		return nil, ChangeEntry{}, err
	}
	if !end.After(start) {
		return nil, ChangeEntry{}, &ValidationError{Field: "variant.durationValue", Reason: "duration must produce endDate after startDate"}
	}

	paymentStatus := opt.PaymentStatus
	if len(paymentStatus) == 0 {
		paymentStatus = PaymentCompleted
	}

	sub := &Subscription{
		ID:            uuid.New().String(),
		UserID:        opt.UserID,
		ProductID:     opt.ProductID,
		Variant:       opt.Variant,
		StartDate:     start,
		EndDate:       end,
		Status:        StatusActive,
		PaymentStatus: paymentStatus,
		PaymentID:     opt.PaymentID,
		TransactionID: opt.TransactionID,
		IsLatest:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created := ChangeEntry{
		ID:             shortuuid.New(),
		SubscriptionID: sub.ID,
		Field:          "subscription",
		From:           "",
		To:             "created",
		ChangedAt:      now,
		ChangedBy:      opt.Actor,
	}

	return sub, created, nil
}
