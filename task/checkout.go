package task

import (
	"context"
	"fmt"

	"github.com/BharatRVala/rupie-times-sub001/broker"
	"github.com/BharatRVala/rupie-times-sub001/metrics"
	"github.com/BharatRVala/rupie-times-sub001/subscription"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// CheckoutOptions contains the configuration for the checkout event handler
type CheckoutOptions struct {
	SubscriptionManager *subscription.Manager
	Consumer            broker.Consumer
	Metrics             *metrics.Metrics
	Logger              *zap.Logger
}

// CheckoutTask turns finished checkouts into subscription records
type CheckoutTask struct {
	CheckoutOptions
}

// NewCheckoutTask returns the checkout event handler
func NewCheckoutTask(option CheckoutOptions) (*CheckoutTask, error) {
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Consumer == nil {
		return nil, fmt.Errorf("nil Consumer is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &CheckoutTask{
		CheckoutOptions: option,
	}, nil
}

// HandleEvents consumes checkout events until ctx is cancelled
func (t *CheckoutTask) HandleEvents(ctx context.Context) error {
	eChan, err := t.Consumer.ReceiveCheckoutCompleted(ctx)
	if err != nil {
		return extErrors.Wrap(err, "Cannot get checkout event channel")
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-eChan:
				t.handleEvent(ctx, evt)
			}
		}
	}()
	return nil
}

func (t *CheckoutTask) handleEvent(ctx context.Context, evt *broker.CheckoutCompletedEvent) {
	logger := t.Logger.With(
		zap.String("EventID", evt.EventID),
		zap.String("UserID", evt.UserID),
		zap.String("ProductID", evt.ProductID),
	)

	sub, err := t.SubscriptionManager.Assign(ctx, subscription.AssignOption{
		UserID:        evt.UserID,
		ProductID:     evt.ProductID,
		Variant:       evt.Variant,
		Start:         evt.CompletedAt,
		PaymentStatus: evt.PaymentStatus,
		PaymentID:     evt.PaymentID,
		TransactionID: evt.TransactionID,
		Actor:         "checkout",
	})
	if err != nil {
		logger.Error("Unable to create subscription from checkout",
			zap.Error(err),
		)
		// fail through: the event is already consumed, manual mediation
		// via the admin assignment flow is possible
		return
	}

	if t.Metrics != nil {
		t.Metrics.IncSubscriptionCreated(string(sub.PaymentStatus))
	}
	logger.Info("Subscription created from checkout",
		zap.String("SubscriptionID", sub.ID),
	)
}
