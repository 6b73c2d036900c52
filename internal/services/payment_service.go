// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/cache"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

type OutcomeKind string

const (
	OutcomeSucceeded  OutcomeKind = "succeeded"
	OutcomeFailed     OutcomeKind = "failed"
	OutcomeProcessing OutcomeKind = "processing"
	OutcomeNone       OutcomeKind = "none"
)

// IntentOutcome is what the processor says happened to an intent, from
// either the client return path or a webhook.
type IntentOutcome struct {
	OrderID  uuid.UUID
	IntentID string
	Kind     OutcomeKind
	Amount   int64
	Source   string
}

type ReconcileResult struct {
	Order   *models.Order
	Changed bool
}

type PaymentService struct {
	store       repository.Store
	processor   PaymentProcessor
	idempotency cache.IdempotencyStore
	notifier    Notifier
	events      *OrderEventHub
	config      config.PaymentConfig
	now         func() time.Time
}

type CreatePaymentIntentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PublishableKey  string `json:"publishable_key,omitempty"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func NewPaymentService(
	store repository.Store,
	processor PaymentProcessor,
	idempotency cache.IdempotencyStore,
	notifier Notifier,
	events *OrderEventHub,
	cfg config.PaymentConfig,
) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PaymentService{
		store:       store,
		processor:   processor,
		idempotency: idempotency,
		notifier:    notifier,
		events:      events,
		config:      cfg,
		now:         time.Now,
	}
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResponse, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Ownership is settled before the processor hears about the order.
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	if order.IsPaid() {
		return nil, apperrors.Conflict("order has already been paid")
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperrors.Conflict("order has been cancelled")
	}

	amount := order.AmountInCents()
	previous := order.PaymentIntentID()

	if previous != "" {
		existing, err := s.getIntent(ctx, previous)
		if err != nil {
			return nil, err
		}

		switch {
		case existing.Status == stripe.PaymentIntentStatusSucceeded:
			if _, err := s.Reconcile(ctx, outcomeFromIntent(order.ID, existing, "intent_reuse")); err != nil {
				return nil, err
			}
			return nil, apperrors.Conflict("order has already been paid")
		case existing.Reusable() && existing.Amount == amount:
			if err := s.attachIntent(ctx, order.ID, existing.ID); err != nil {
				return nil, err
			}
			return s.intentResponse(existing), nil
		}
	}

	pi, err := s.createIntent(ctx, order, amount, previous)
	if err != nil {
		return nil, err
	}
	if err := s.attachIntent(ctx, order.ID, pi.ID); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":          order.ID,
		"payment_intent_id": pi.ID,
		"amount":            amount,
		"replaced":          previous,
	}).Info("Payment intent created")

	return s.intentResponse(pi), nil
}

func (s *PaymentService) createIntent(ctx context.Context, order *models.Order, amount int64, previous string) (*PaymentIntent, error) {
	callCtx, cancel := s.processorContext(ctx)
	defer cancel()

	if previous == "" {
		previous = "none"
	}
	pi, err := s.processor.CreateIntent(callCtx, CreateIntentParams{
		AmountCents: amount,
		Currency:    s.config.Currency,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"user_id":      order.UserID.String(),
		},
		// A retried request after a timeout gets the same intent back.
		IdempotencyKey: fmt.Sprintf("order-%s-%d-%s", order.ID, amount, previous),
	})
	if err != nil {
		return nil, apperrors.ExternalProcessor(err)
	}
	return pi, nil
}

func (s *PaymentService) getIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	callCtx, cancel := s.processorContext(ctx)
	defer cancel()

	pi, err := s.processor.GetIntent(callCtx, intentID)
	if err != nil {
		return nil, apperrors.ExternalProcessor(err)
	}
	return pi, nil
}

func (s *PaymentService) attachIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	ok, err := s.store.SetPaymentIntent(ctx, orderID, intentID)
	if err != nil {
		return fmt.Errorf("failed to store payment intent: %w", err)
	}
	if !ok {
		return apperrors.Conflict("order payment has already settled")
	}
	return nil
}

func (s *PaymentService) processorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.TimeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout())
}

func (s *PaymentService) intentResponse(pi *PaymentIntent) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Status:          string(pi.Status),
		Amount:          pi.Amount,
		Currency:        pi.Currency,
		PublishableKey:  s.config.StripePublishableKey,
	}
}

// ConfirmPayment is the client return path: the browser comes back from
// the processor and asks us to look at the intent.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	intentID := order.PaymentIntentID()
	if intentID == "" {
		return nil, apperrors.Validation("no payment has been started for this order")
	}

	pi, err := s.getIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	result, err := s.Reconcile(ctx, outcomeFromIntent(order.ID, pi, "client"))
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

// HandleWebhook verifies and applies a processor event. Replays of an
// event id are acknowledged without work.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		logrus.WithError(err).Warn("Rejected webhook")
		return apperrors.Validation("invalid webhook signature")
	}

	kind := webhookOutcome(event.Type)
	if event.Intent == nil || kind == OutcomeNone {
		logrus.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type}).Debug("Ignoring webhook event")
		return nil
	}

	key := "stripe-event:" + event.ID
	claimed, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		// The conditional updates still protect us.
		logrus.WithError(err).WithField("event_id", event.ID).Warn("Idempotency store unavailable")
		claimed = true
	}
	if !claimed {
		logrus.WithField("event_id", event.ID).Info("Duplicate webhook event ignored")
		return nil
	}

	outcome := IntentOutcome{
		IntentID: event.Intent.ID,
		Kind:     kind,
		Amount:   event.Intent.Amount,
		Source:   "webhook",
	}
	if id, err := uuid.Parse(event.Intent.Metadata["order_id"]); err == nil {
		outcome.OrderID = id
	}

	if _, err := s.Reconcile(ctx, outcome); err != nil {
		// Redelivery cannot fix these; acknowledge them.
		if apperrors.IsKind(err, apperrors.KindNotFound) || apperrors.IsKind(err, apperrors.KindConflict) {
			logrus.WithError(err).WithFields(logrus.Fields{"event_id": event.ID, "payment_intent_id": outcome.IntentID}).Warn("Webhook could not be applied")
			return nil
		}
		// Let the processor redeliver.
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			logrus.WithError(releaseErr).Warn("Failed to release webhook event claim")
		}
		return err
	}
	return nil
}

// Reconcile applies an outcome to its order. Every transition is a
// conditional update, so repeated or out-of-order outcomes are no-ops.
func (s *PaymentService) Reconcile(ctx context.Context, outcome IntentOutcome) (*ReconcileResult, error) {
	var (
		order *models.Order
		err   error
	)
	if outcome.OrderID != uuid.Nil {
		order, err = s.store.GetOrder(ctx, outcome.OrderID)
	} else {
		order, err = s.store.GetOrderByPaymentIntent(ctx, outcome.IntentID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"order_id":          order.ID,
		"payment_intent_id": outcome.IntentID,
		"outcome":           outcome.Kind,
		"source":            outcome.Source,
	})

	switch outcome.Kind {
	case OutcomeSucceeded:
		return s.applySuccess(ctx, order, outcome, log)
	case OutcomeFailed:
		return s.applyFailure(ctx, order, outcome, log)
	case OutcomeProcessing:
		changed, err := s.store.TransitionPaymentStatus(ctx, order.ID,
			[]models.PaymentStatus{models.PaymentStatusPending}, models.PaymentStatusProcessing, repository.PaymentChanges{})
		if err != nil {
			return nil, fmt.Errorf("failed to update payment status: %w", err)
		}
		return s.reloaded(ctx, order, changed)
	default:
		return &ReconcileResult{Order: order}, nil
	}
}

func (s *PaymentService) applySuccess(ctx context.Context, order *models.Order, outcome IntentOutcome, log *logrus.Entry) (*ReconcileResult, error) {
	if outcome.Amount != order.AmountInCents() {
		log.WithFields(logrus.Fields{"expected": order.AmountInCents(), "received": outcome.Amount}).Error("Payment amount mismatch")
		s.notifyAdmins(ctx, orderNotification(models.NotificationPaymentMismatch, "Payment amount mismatch",
			fmt.Sprintf("Order %s received %d cents, expected %d", order.OrderNumber, outcome.Amount, order.AmountInCents()),
			models.NotificationPriorityHigh, order.ID))
		return nil, apperrors.Conflict("payment amount does not match order total")
	}

	now := s.now()
	reference := outcome.IntentID
	changed := false
	var oversold []string

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.TransitionPaymentStatus(ctx, order.ID, models.PaymentSettleableStates, models.PaymentStatusCompleted,
			repository.PaymentChanges{Reference: &reference, PaidAt: &now})
		if err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		if !ok {
			return nil
		}
		changed = true

		if _, err := tx.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusProcessing); err != nil {
			return fmt.Errorf("failed to advance order status: %w", err)
		}

		committed, err := tx.MarkStockCommitted(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to mark stock committed: %w", err)
		}
		if !committed {
			return nil
		}
		for _, item := range order.Items {
			short, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, repository.ErrNotFound) {
				// Product removed from the catalog after the order was placed.
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			if short {
				oversold = append(oversold, item.ProductName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		log.Debug("Payment already reconciled")
		return &ReconcileResult{Order: order}, nil
	}

	result, err := s.reloaded(ctx, order, true)
	if err != nil {
		return nil, err
	}
	log.WithField("order_number", result.Order.OrderNumber).Info("Payment completed")

	if len(oversold) > 0 {
		log.WithField("products", oversold).Warn("Order oversold, stock clamped at zero")
		s.notifyAdmins(ctx, orderNotification(models.NotificationOversell, "Order oversold",
			fmt.Sprintf("Order %s was paid but stock ran out for: %v", result.Order.OrderNumber, oversold),
			models.NotificationPriorityHigh, order.ID))
	}
	if result.Order.Status == models.OrderStatusCancelled {
		s.notifyAdmins(ctx, orderNotification(models.NotificationRefundRequired, "Cancelled order was paid",
			fmt.Sprintf("Order %s was cancelled before payment completed and needs a refund", result.Order.OrderNumber),
			models.NotificationPriorityHigh, order.ID))
	}

	s.sendConfirmation(ctx, result.Order)
	if s.events != nil {
		s.events.Publish(OrderEventPaid, result.Order)
	}
	return result, nil
}

func (s *PaymentService) applyFailure(ctx context.Context, order *models.Order, outcome IntentOutcome, log *logrus.Entry) (*ReconcileResult, error) {
	// A failure for an intent that has since been replaced says nothing
	// about the current attempt.
	if current := order.PaymentIntentID(); current != "" && current != outcome.IntentID {
		log.WithField("current_intent", current).Info("Ignoring failure for superseded intent")
		return &ReconcileResult{Order: order}, nil
	}

	reference := outcome.IntentID
	changed, err := s.store.TransitionPaymentStatus(ctx, order.ID, models.PaymentFailableStates, models.PaymentStatusFailed,
		repository.PaymentChanges{Reference: &reference})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment failure: %w", err)
	}

	result, err := s.reloaded(ctx, order, changed)
	if err != nil {
		return nil, err
	}
	if changed {
		log.Info("Payment failed")
		if s.events != nil {
			s.events.Publish(OrderEventPaymentFailed, result.Order)
		}
	}
	return result, nil
}

// Refund returns a completed payment through the processor and marks the
// order refunded. Unshipped orders are cancelled along the way.
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusCompleted {
		return nil, apperrors.Conflict("only completed payments can be refunded")
	}

	intentID := order.PaymentIntentID()
	if order.PaymentReference != nil && *order.PaymentReference != "" {
		intentID = *order.PaymentReference
	}

	// A retry after a failed status update gets the original refund back
	// from the processor rather than a second one.
	callCtx, cancel := s.processorContext(ctx)
	refundID, err := s.processor.Refund(callCtx, RefundParams{
		IntentID:       intentID,
		OrderID:        order.ID.String(),
		IdempotencyKey: refundIdempotencyKey(order.ID),
	})
	cancel()
	if err != nil {
		return nil, apperrors.ExternalProcessor(err)
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.TransitionPaymentStatus(ctx, order.ID, []models.PaymentStatus{models.PaymentStatusCompleted},
			models.PaymentStatusRefunded, repository.PaymentChanges{RefundedAt: &now, RefundReason: reason})
		if err != nil {
			return fmt.Errorf("failed to mark order refunded: %w", err)
		}
		if !ok {
			return apperrors.Conflict("order payment changed while refunding")
		}

		for _, from := range []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing} {
			if _, err := tx.TransitionOrderStatus(ctx, order.ID, from, models.OrderStatusCancelled); err != nil {
				return fmt.Errorf("failed to cancel refunded order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.reloaded(ctx, order, true)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"refund_id": refundID,
		"reason":    reason,
	}).Info("Order refunded")

	if user, err := s.store.GetUserByID(ctx, order.UserID); err == nil {
		if err := s.notifier.SendRefundNotification(ctx, user, result.Order); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to send refund email")
		}
	}
	if s.events != nil {
		s.events.Publish(OrderEventRefunded, result.Order)
	}
	return result.Order, nil
}

func (s *PaymentService) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (s *PaymentService) reloaded(ctx context.Context, order *models.Order, changed bool) (*ReconcileResult, error) {
	if !changed {
		return &ReconcileResult{Order: order}, nil
	}
	fresh, err := s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return &ReconcileResult{Order: fresh, Changed: true}, nil
}

func (s *PaymentService) sendConfirmation(ctx context.Context, order *models.Order) {
	user, err := s.store.GetUserByID(ctx, order.UserID)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to load customer for confirmation email")
		return
	}
	if err := s.notifier.SendOrderConfirmation(ctx, user, order); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to send order confirmation")
	}
}

func (s *PaymentService) notifyAdmins(ctx context.Context, notification *models.AdminNotification) {
	if err := s.notifier.NotifyAdmins(ctx, notification); err != nil {
		logrus.WithError(err).Error("Failed to notify admins")
	}
}

func outcomeFromIntent(orderID uuid.UUID, pi *PaymentIntent, source string) IntentOutcome {
	kind := OutcomeNone
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		kind = OutcomeSucceeded
	case stripe.PaymentIntentStatusProcessing:
		kind = OutcomeProcessing
	case stripe.PaymentIntentStatusCanceled:
		kind = OutcomeFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentFailed {
			kind = OutcomeFailed
		}
	}
	return IntentOutcome{
		OrderID:  orderID,
		IntentID: pi.ID,
		Kind:     kind,
		Amount:   pi.Amount,
		Source:   source,
	}
}

func webhookOutcome(eventType string) OutcomeKind {
	switch eventType {
	case "payment_intent.succeeded":
		return OutcomeSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return OutcomeFailed
	case "payment_intent.processing":
		return OutcomeProcessing
	}
	return OutcomeNone
}

func refundIdempotencyKey(orderID uuid.UUID) string {
	return "refund-" + orderID.String()
}
