package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant is the immutable snapshot of the product plan that was purchased.
// It is copied from the catalog onto the Subscription at assignment time and
// is not affected by later catalog edits.
type Variant struct {
	DurationLabel string          `json:"durationLabel"`
	DurationValue int             `json:"durationValue"`
	DurationUnit  DurationUnit    `json:"durationUnit"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric"`
}

// Subscription describes a single purchase/assignment of a product variant to a user
type Subscription struct {
	ID                     string        `json:"id" gorm:"primaryKey"`
	UserID                 string        `json:"userId" gorm:"index"`
	ProductID              string        `json:"productId" gorm:"index"`
	Variant                Variant       `json:"variant" gorm:"embedded;embeddedPrefix:variant_"`
	StartDate              time.Time     `json:"startDate"`
	EndDate                time.Time     `json:"endDate"`
	Status                 Status        `json:"status" gorm:"index"`
	PaymentStatus          PaymentStatus `json:"paymentStatus" gorm:"index"`
	PaymentID              string        `json:"paymentId"`
	TransactionID          string        `json:"transactionId"`
	IsLatest               bool          `json:"isLatest"` // true for the current subscription in a renewal chain
	ReplacedSubscriptionID *string       `json:"replacedSubscription,omitempty"`
	HistoricalArticleLimit int           `json:"historicalArticleLimit"`
	Version                uint          `json:"version"` // incremented on every mutation, checked on update
	ChangeEntries          []ChangeEntry `json:"metadata"`
	Notes                  []Note        `json:"notes"`
	CreatedAt              time.Time     `json:"createdAt"`
	UpdatedAt              time.Time     `json:"updatedAt"`
}

// ChangeEntry is a single record in the append-only audit ledger of a
// Subscription. Entries are only ever inserted, in the same transaction as
// the mutation they describe.
type ChangeEntry struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	SubscriptionID string    `json:"subscriptionId" gorm:"index"`
	Field          string    `json:"field"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ChangedAt      time.Time `json:"changedAt"`
	ChangedBy      string    `json:"changedBy"`
}

// Note is a free-text operator note attached to a Subscription
type Note struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	SubscriptionID string    `json:"subscriptionId" gorm:"index"`
	Note           string    `json:"note"`
	AddedAt        time.Time `json:"addedAt"`
	AddedBy        string    `json:"addedBy"`
}
