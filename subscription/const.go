package subscription

// Status is the custom type to define the persisted status of a subscription
type Status string

// Defining the valid Statuses for a Subscription.
// The stored value is operator-authoritative; the real-time value is
// derived from EndDate on every read (see status.go)
const (
	StatusActive     Status = "active"
	StatusExpireSoon Status = "expiresoon"
	StatusExpired    Status = "expired"
)

// PaymentStatus is the custom type to define the payment state of a subscription
type PaymentStatus string

// Defining the valid PaymentStatuses for a Subscription
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// DurationUnit is the custom type to define how a Variant's duration is measured
type DurationUnit string

// Defining the recognized DurationUnits
const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
	UnitWeeks   DurationUnit = "weeks"
	UnitMonths  DurationUnit = "months"
	UnitYears   DurationUnit = "years"
)

// ExpireSoonThresholdDays defines the window (in days before EndDate) during
// which a paid subscription is reported as StatusExpireSoon instead of StatusActive
const ExpireSoonThresholdDays = 10

// ReconcilerActor is recorded as ChangedBy on audit entries written by the
// background reconciliation sweep
const ReconcilerActor = "reconciler"

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpireSoon, StatusExpired:
		return true
	}
	return false
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (u DurationUnit) Valid() bool {
	switch u {
	case UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}
