package subscription

import "fmt"

// NotFoundError is returned when the referenced subscription does not exist
type NotFoundError struct {
	SubscriptionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subscription %s not found", e.SubscriptionID)
}

// ValidationError is returned when an input patch or assignment option is
// malformed. No mutation is applied and no audit entry is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError is returned when the version supplied with an update does
// not match the stored version, meaning another writer got there first
type ConflictError struct {
	SubscriptionID string
	Expected       uint
	Actual         uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("subscription %s version mismatch: have %d, want %d", e.SubscriptionID, e.Expected, e.Actual)
}
