package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager handles the database operations relating to Subscriptions
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for subscriptions
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Subscription{}, &ChangeEntry{}, &Note{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Assign creates a new Subscription from a purchased or manually assigned
// variant. If the user already holds the latest subscription for the same
// product, that record is superseded in the same transaction: its IsLatest
// flips to false and the new record points back at it.
func (m *Manager) Assign(ctx context.Context, opt AssignOption) (*Subscription, error) {
	now := time.Now()
	sub, created, err := NewFromVariant(opt, now)
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior Subscription
		lookupRes := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", opt.UserID).
			Where("product_id = ?", opt.ProductID).
			Where("is_latest = ?", true).
			First(&prior)
		if lookupRes.Error == nil {
			prior.IsLatest = false
			prior.Version++
			prior.UpdatedAt = now
			if saveRes := tx.Save(&prior); saveRes.Error != nil {
				return saveRes.Error
			}
			superseded := ChangeEntry{
				ID:             shortuuid.New(),
				SubscriptionID: prior.ID,
				Field:          "isLatest",
				From:           "true",
				To:             "false",
				ChangedAt:      now,
				ChangedBy:      opt.Actor,
			}
			if auditRes := tx.Create(&superseded); auditRes.Error != nil {
				return auditRes.Error
			}
			sub.ReplacedSubscriptionID = &prior.ID
		} else if !errors.Is(lookupRes.Error, gorm.ErrRecordNotFound) {
			return lookupRes.Error
		}

		if createRes := tx.Create(sub); createRes.Error != nil {
			return createRes.Error
		}
		if auditRes := tx.Create(&created); auditRes.Error != nil {
			return auditRes.Error
		}
		return nil
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})

	if err != nil {
		m.logger.Error("Unable to create new subscription in database",
			zap.Error(err),
		)
		return nil, extErrors.Wrap(err, "Cannot create subscription")
	}
	return sub, nil
}

// GetByID will try to return the subscription with its audit ledger
func (m *Manager) GetByID(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	result := m.db.WithContext(ctx).
		Preload("ChangeEntries").
		Preload("Notes").
		First(&sub, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription by id")
	}
	return &sub, nil
}

// ListOption filters and pages the subscription listing
type ListOption struct {
	UserID        string
	ProductID     string
	Status        Status
	PaymentStatus PaymentStatus
	Before        time.Time
	Limit         int
}

// List returns the subscriptions for a user, newest first
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	if len(opt.UserID) == 0 {
		return nil, &ValidationError{Field: "userId", Reason: "is required"}
	}
	baseQuery := m.db.WithContext(ctx).
		Order("created_at desc").
		Where("user_id = ?", opt.UserID)
	if len(opt.ProductID) > 0 {
		baseQuery = baseQuery.Where("product_id = ?", opt.ProductID)
	}
	if len(opt.Status) > 0 {
		baseQuery = baseQuery.Where("status = ?", opt.Status)
	}
	if len(opt.PaymentStatus) > 0 {
		baseQuery = baseQuery.Where("payment_status = ?", opt.PaymentStatus)
	}
	if !opt.Before.IsZero() {
		baseQuery = baseQuery.Where("created_at < ?", opt.Before)
	}
	if opt.Limit > 0 {
		baseQuery = baseQuery.Limit(opt.Limit)
	}

	results := make([]Subscription, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Update applies an operator patch to the subscription identified by id.
// The row is locked FOR UPDATE for the duration of the transaction so the
// field changes, the version bump and the audit entries land atomically;
// a mutation can never be observed without its ledger entries.
func (m *Manager) Update(ctx context.Context, id string, patch UpdatePatch, actor string) (*Subscription, error) {
	now := time.Now()
	var desired Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current Subscription
		lookupRes := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", id)
		if errors.Is(lookupRes.Error, gorm.ErrRecordNotFound) {
			return &NotFoundError{SubscriptionID: id}
		}
		if lookupRes.Error != nil {
			return lookupRes.Error
		}

		desired = current
		entries, notes, err := ApplyUpdate(&desired, patch, actor, now)
		if err != nil {
			return err
		}

		if saveRes := tx.Save(&desired); saveRes.Error != nil {
			return saveRes.Error
		}
		if len(entries) > 0 {
			if auditRes := tx.Create(&entries); auditRes.Error != nil {
				return auditRes.Error
			}
		}
		if len(notes) > 0 {
			if noteRes := tx.Create(&notes); noteRes.Error != nil {
				return noteRes.Error
			}
		}
		desired.ChangeEntries = append(desired.ChangeEntries, entries...)
		desired.Notes = append(desired.Notes, notes...)
		return nil
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})

	if err != nil {
		var notFound *NotFoundError
		var invalid *ValidationError
		var conflict *ConflictError
		if errors.As(err, &notFound) || errors.As(err, &invalid) || errors.As(err, &conflict) {
			return nil, err
		}
		m.logger.Error("Unable to update subscription",
			zap.String("SubscriptionID", id),
			zap.Error(err),
		)
		return nil, extErrors.Wrap(err, "Cannot update subscription")
	}
	return &desired, nil
}

// StatsFor computes the per-user rollup at now
func (m *Manager) StatsFor(ctx context.Context, userID string, now time.Time) (Stats, error) {
	if len(userID) == 0 {
		return Stats{}, &ValidationError{Field: "userId", Reason: "is required"}
	}
	subs := make([]Subscription, 0, 1)
	result := m.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return Stats{}, extErrors.Wrap(result.Error, "Cannot compute subscription stats")
	}
	return ComputeStats(subs, now), nil
}

// driftQuery selects paid subscriptions whose stored status cannot match
// what ComputeStatus would report at now
func (m *Manager) driftQuery(ctx context.Context, now time.Time) *gorm.DB {
	threshold := ExpireSoonBoundary(now)
	return m.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("payment_status = ?", PaymentCompleted).
		Where(
			m.db.Where("end_date <= ? AND status <> ?", now, StatusExpired).
				Or("end_date > ? AND end_date <= ? AND status <> ?", now, threshold, StatusExpireSoon).
				Or("end_date > ? AND status <> ?", threshold, StatusActive),
		)
}

// CountDrift reports how many subscriptions currently need reconciliation
func (m *Manager) CountDrift(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	if result := m.driftQuery(ctx, now).Count(&count); result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return 0, extErrors.Wrap(result.Error, "Cannot count drifted subscriptions")
	}
	return count, nil
}

// ReconcileBatch finds paid subscriptions whose stored status has drifted
// from the real-time status and commits the computed value, appending an
// audit entry attributed to the reconciler. Each record is re-checked and
// written under its own row lock so the sweep never clobbers a concurrent
// operator edit with stale data. Returns the number of records aligned.
func (m *Manager) ReconcileBatch(ctx context.Context, now time.Time, limit int) (int, error) {
	candidates := make([]Subscription, 0, 1)
	baseQuery := m.driftQuery(ctx, now)
	if limit > 0 {
		baseQuery = baseQuery.Limit(limit)
	}
	if result := baseQuery.Find(&candidates); result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return 0, extErrors.Wrap(result.Error, "Cannot query drifted subscriptions")
	}

	reconciled := 0
	for i := range candidates {
		id := candidates[i].ID
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var current Subscription
			lookupRes := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&current, "id = ?", id)
			if errors.Is(lookupRes.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			if lookupRes.Error != nil {
				return lookupRes.Error
			}

			info := ComputeStatus(&current, now)
			if !info.NeedsStatusUpdate {
				// an operator got here first
				return nil
			}

			entry := ChangeEntry{
				ID:             shortuuid.New(),
				SubscriptionID: current.ID,
				Field:          "status",
				From:           string(current.Status),
				To:             string(info.RealTimeStatus),
				ChangedAt:      now,
				ChangedBy:      ReconcilerActor,
			}
			current.Status = info.RealTimeStatus
			current.Version++
			current.UpdatedAt = now
			if saveRes := tx.Save(&current); saveRes.Error != nil {
				return saveRes.Error
			}
			if auditRes := tx.Create(&entry); auditRes.Error != nil {
				return auditRes.Error
			}
			reconciled++
			return nil
		}, &sql.TxOptions{
			Isolation: sql.LevelSerializable,
		})
		if err != nil {
			m.logger.Error("Unable to reconcile subscription status",
				zap.String("SubscriptionID", id),
				zap.Error(err),
			)
			return reconciled, extErrors.Wrap(err, "Cannot reconcile subscription")
		}
	}
	return reconciled, nil
}
