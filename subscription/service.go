package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BharatRVala/rupie-times-sub001/auth"
	"github.com/BharatRVala/rupie-times-sub001/metrics"
	resp "github.com/BharatRVala/rupie-times-sub001/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// VariantResolver resolves a purchasable variant from the catalog.
// Satisfied by product.Manager.
type VariantResolver interface {
	GetVariant(productID, durationLabel string) (Variant, bool)
}

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	SubscriptionManager *Manager
	Variants            VariantResolver
	Metrics             *metrics.Metrics
	Logger              *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Variants == nil {
		return nil, fmt.Errorf("nil Variants is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// View is a Subscription with its real-time status attached. Reads never
// write the computed status back; they only report it.
type View struct {
	Subscription
	StatusInfo
}

// NewView attaches the computed status at now to a subscription
func NewView(sub Subscription, now time.Time) View {
	return View{
		Subscription: sub,
		StatusInfo:   ComputeStatus(&sub, now),
	}
}

func views(subs []Subscription, now time.Time) []View {
	result := make([]View, 0, len(subs))
	for _, sub := range subs {
		result = append(result, NewView(sub, now))
	}
	return result
}

// writeEngineError maps the engine error taxonomy onto the response envelope
func (s *Service) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *NotFoundError
	var invalid *ValidationError
	var conflict *ConflictError
	switch {
	case errors.As(err, &notFound):
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
	case errors.As(err, &invalid):
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(invalid.Error()))
	case errors.As(err, &conflict):
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Subscription was modified by someone else, reload and retry"))
	default:
		s.Logger.Error("Unexpected engine error",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
	}
}

func (s *Service) listOwnSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	subs, err := s.SubscriptionManager.List(ctx, ListOption{
		UserID: claims.ID,
	})
	if err != nil {
		s.Logger.Error("Unable to list subscriptions by user id",
			zap.String("UserID", claims.ID),
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of subscriptions"))
		return
	}

	resp.WriteResponse(w, r, views(subs, time.Now()))
}

func (s *Service) getOwnSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	subscriptionID := chi.URLParam(r, "id")

	sub, err := s.SubscriptionManager.GetByID(ctx, subscriptionID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the subscription"))
		return
	}
	if sub == nil || sub.UserID != claims.ID {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		return
	}

	resp.WriteResponse(w, r, NewView(*sub, time.Now()))
}

func (s *Service) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opt := ListOption{
		UserID:        r.URL.Query().Get("userId"),
		ProductID:     r.URL.Query().Get("productId"),
		Status:        Status(r.URL.Query().Get("status")),
		PaymentStatus: PaymentStatus(r.URL.Query().Get("paymentStatus")),
	}
	if before := r.URL.Query().Get("before"); before != "" {
		parsedTime, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid before param"))
			return
		}
		opt.Before = parsedTime
	}
	if len(opt.Status) > 0 && !opt.Status.Valid() {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid status param"))
		return
	}
	if len(opt.PaymentStatus) > 0 && !opt.PaymentStatus.Valid() {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid paymentStatus param"))
		return
	}

	subs, err := s.SubscriptionManager.List(ctx, opt)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	resp.WriteResponse(w, r, views(subs, time.Now()))
}

func (s *Service) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")

	sub, err := s.SubscriptionManager.GetByID(ctx, subscriptionID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the subscription"))
		return
	}
	if sub == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		return
	}

	resp.WriteResponse(w, r, NewView(*sub, time.Now()))
}

// AssignRequest is the model of an operator assigning a variant to a user
type AssignRequest struct {
	UserID        string     `json:"userId" validate:"required"`
	ProductID     string     `json:"productId" validate:"required"`
	DurationLabel string     `json:"durationLabel" validate:"required"`
	StartDate     *time.Time `json:"startDate"`
	PaymentStatus string     `json:"paymentStatus" validate:"omitempty,oneof=pending completed failed refunded"`
	PaymentID     string     `json:"paymentId"`
	TransactionID string     `json:"transactionId"`
}

func (s *Service) assignSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	variant, ok := s.Variants.GetVariant(req.ProductID, req.DurationLabel)
	if !ok {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find variant for specific product"))
		return
	}

	opt := AssignOption{
		UserID:        req.UserID,
		ProductID:     req.ProductID,
		Variant:       variant,
		PaymentStatus: PaymentStatus(req.PaymentStatus),
		PaymentID:     req.PaymentID,
		TransactionID: req.TransactionID,
		Actor:         claims.Email,
	}
	if req.StartDate != nil {
		opt.Start = *req.StartDate
	}

	sub, err := s.SubscriptionManager.Assign(ctx, opt)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.IncSubscriptionCreated(string(sub.PaymentStatus))
	}

	resp.WriteResponse(w, r, NewView(*sub, time.Now()))
}

// UpdateRequest is the model of an operator patch. Nil fields are untouched.
type UpdateRequest struct {
	Status                 *string    `json:"status" validate:"omitempty,oneof=active expiresoon expired"`
	PaymentStatus          *string    `json:"paymentStatus" validate:"omitempty,oneof=pending completed failed refunded"`
	StartDate              *time.Time `json:"startDate"`
	EndDate                *time.Time `json:"endDate"`
	IsLatest               *bool      `json:"isLatest"`
	HistoricalArticleLimit *int       `json:"historicalArticleLimit" validate:"omitempty,min=0"`
	Note                   *string    `json:"notes"`
	ExtendDuration         *int       `json:"extendDuration" validate:"omitempty,min=0"`
	ExtendUnit             *string    `json:"extendUnit" validate:"omitempty,oneof=minutes hours days weeks months years"`
	Version                uint       `json:"version" validate:"required"`
}

func (r *UpdateRequest) toPatch() UpdatePatch {
	patch := UpdatePatch{
		StartDate:              r.StartDate,
		EndDate:                r.EndDate,
		IsLatest:               r.IsLatest,
		HistoricalArticleLimit: r.HistoricalArticleLimit,
		Note:                   r.Note,
		ExtendDuration:         r.ExtendDuration,
		Version:                r.Version,
	}
	if r.Status != nil {
		status := Status(*r.Status)
		patch.Status = &status
	}
	if r.PaymentStatus != nil {
		paymentStatus := PaymentStatus(*r.PaymentStatus)
		patch.PaymentStatus = &paymentStatus
	}
	if r.ExtendUnit != nil {
		unit := DurationUnit(*r.ExtendUnit)
		patch.ExtendUnit = &unit
	}
	return patch
}

func (s *Service) updateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	subscriptionID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("UserID", claims.ID),
		zap.String("SubscriptionID", subscriptionID),
	)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	patch := req.toPatch()
	sub, err := s.SubscriptionManager.Update(ctx, subscriptionID, patch, claims.Email)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	if s.Metrics != nil {
		for _, entry := range sub.ChangeEntries {
			s.Metrics.IncSubscriptionUpdate(entry.Field)
		}
	}

	logger.Info("Subscription updated",
		zap.Uint("Version", sub.Version),
	)

	resp.WriteResponse(w, r, NewView(*sub, time.Now()))
}

func (s *Service) userStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("userId")

	stats, err := s.SubscriptionManager.StatsFor(ctx, userID, time.Now())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	resp.WriteResponse(w, r, stats)
}

// Router will return the reader-facing routes (own subscriptions only)
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listOwnSubscriptions)
	r.Get("/{id}", s.getOwnSubscription)

	return r
}

// AdminRouter will return the operator routes. Mount behind AdminCheck.
func (s *Service) AdminRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listSubscriptions)
	r.Post("/", s.assignSubscription)
	r.Get("/stats", s.userStats)
	r.Get("/{id}", s.getSubscription)
	r.Patch("/{id}", s.updateSubscription)

	return r
}
