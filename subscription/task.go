package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/BharatRVala/rupie-times-sub001/metrics"

	"go.uber.org/zap"
)

// TaskOptions contains the configuration for the reconciliation sweep
type TaskOptions struct {
	SubscriptionManager *Manager
	Metrics             *metrics.Metrics
	Logger              *zap.Logger
	Interval            time.Duration
	BatchSize           int
}

// Task periodically aligns stored statuses with the computed real-time
// status. Operator edits always win: each record is re-checked under its
// row lock right before writing.
type Task struct {
	TaskOptions
}

// NewTask returns the background reconciliation task
func NewTask(option TaskOptions) (*Task, error) {
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Interval <= 0 {
		option.Interval = time.Minute * 5
	}
	if option.BatchSize <= 0 {
		option.BatchSize = 500
	}
	return &Task{
		TaskOptions: option,
	}, nil
}

// Run blocks until ctx is cancelled, sweeping once per Interval
func (t *Task) Run(ctx context.Context) {
	t.Logger.Info("Starting reconciliation sweep",
		zap.Duration("Interval", t.Interval),
		zap.Int("BatchSize", t.BatchSize),
	)
	tick := time.NewTicker(t.Interval)
	defer tick.Stop()

	// sweep once on start so a backlog isn't left waiting a full interval
	t.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			t.Logger.Info("Stopping reconciliation sweep")
			return
		case <-tick.C:
			t.sweep(ctx)
		}
	}
}

func (t *Task) sweep(ctx context.Context) {
	now := time.Now()

	drift, err := t.SubscriptionManager.CountDrift(ctx, now)
	if err != nil {
		t.Logger.Error("Unable to count drifted subscriptions",
			zap.Error(err),
		)
		return
	}
	if t.Metrics != nil {
		t.Metrics.SetStatusDrift(int(drift))
	}
	if drift == 0 {
		return
	}

	reconciled, err := t.SubscriptionManager.ReconcileBatch(ctx, now, t.BatchSize)
	if err != nil {
		t.Logger.Error("Reconciliation sweep failed",
			zap.Int("Reconciled", reconciled),
			zap.Error(err),
		)
	}
	if t.Metrics != nil {
		t.Metrics.AddReconciled(reconciled)
	}
	t.Logger.Info("Reconciliation sweep finished",
		zap.Int64("Drifted", drift),
		zap.Int("Reconciled", reconciled),
	)
}
