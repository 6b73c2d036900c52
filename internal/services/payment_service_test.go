package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

func TestCreatePaymentIntentForeignOrder(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 3)
	stranger, _ := env.newCustomer(t, "mallory@example.com")

	_, err := env.payments.CreatePaymentIntent(env.ctx, stranger.ID, order.ID)
	requireKind(t, err, apperrors.KindForbidden)
	assert.Zero(t, env.processor.callCount())
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 3)

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), resp.Amount)
	assert.Equal(t, "usd", resp.Currency)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.Equal(t, "pk_test", resp.PublishableKey)

	stored := env.reload(t, order.ID)
	assert.Equal(t, resp.PaymentIntentID, stored.PaymentIntentID())
	assert.Equal(t, models.PaymentStatusProcessing, stored.PaymentStatus)

	again, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentIntentID, again.PaymentIntentID, "open intent should be reused")
}

func TestCreatePaymentIntentProcessorTimeout(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)
	env.processor.block = true

	started := time.Now()
	_, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	requireKind(t, err, apperrors.KindExternalProcessor)
	assert.Less(t, time.Since(started), 5*time.Second)

	appErr, _ := apperrors.As(err)
	assert.Equal(t, 502, appErr.Status())
	assert.True(t, appErr.Retryable())

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentIntentID())
}

func TestCreatePaymentIntentAlreadySucceeded(t *testing.T) {
	env := newTestEnv(t)
	product := env.newProduct(t, "Serum", "15.00", 10)
	order := env.placeOrder(t, product, 1)

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	env.processor.setStatus(resp.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)

	_, err = env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	requireKind(t, err, apperrors.KindConflict)

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Equal(t, 9, env.stock(t, product.ID))
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	product := env.newProduct(t, "Serum", "15.00", 10)
	order := env.placeOrder(t, product, 3)
	events, unsubscribe := env.events.Subscribe(8)
	defer unsubscribe()

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	env.processor.setStatus(resp.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)

	paid, err := env.payments.ConfirmPayment(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, paid.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// The client path and the webhook both report the same success.
	_, err = env.payments.ConfirmPayment(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	body := webhookBody(t, "evt_1", "payment_intent.succeeded", resp.PaymentIntentID, 4500, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, body, fakeSignature))

	assert.Equal(t, 7, env.stock(t, product.ID))
	assert.Len(t, env.notifier.confirmations, 1)

	paidEvents := 0
	for len(events) > 0 {
		if (<-events).Type == OrderEventPaid {
			paidEvents++
		}
	}
	assert.Equal(t, 1, paidEvents)
}

func TestPaymentFailureDoesNotRegressCompleted(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	success := webhookBody(t, "evt_ok", "payment_intent.succeeded", resp.PaymentIntentID, 1500, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, success, fakeSignature))

	failure := webhookBody(t, "evt_late", "payment_intent.payment_failed", resp.PaymentIntentID, 1500, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, failure, fakeSignature))

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
}

func TestPaymentFailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 2)

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	failure := webhookBody(t, "evt_fail", "payment_intent.payment_failed", resp.PaymentIntentID, 3000, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, failure, fakeSignature))

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	retry, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentIntentID, retry.PaymentIntentID)
	assert.Equal(t, models.PaymentStatusProcessing, env.reload(t, order.ID).PaymentStatus)
}

func TestSupersededIntentFailureIgnored(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)

	_, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	result, err := env.payments.Reconcile(env.ctx, IntentOutcome{
		OrderID:  order.ID,
		IntentID: "pi_old",
		Kind:     OutcomeFailed,
		Source:   "test",
	})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, models.PaymentStatusProcessing, env.reload(t, order.ID).PaymentStatus)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)
	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "evt_dup", "payment_intent.succeeded", resp.PaymentIntentID, 1500, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, body, fakeSignature))
	require.NoError(t, env.payments.HandleWebhook(env.ctx, body, fakeSignature))

	claimed, err := env.idempotency.Claim(env.ctx, "stripe-event:evt_dup")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Len(t, env.notifier.confirmations, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)

	body := webhookBody(t, "evt_forged", "payment_intent.succeeded", "pi_x", 1500, order.ID)
	err := env.payments.HandleWebhook(env.ctx, body, "t=1,v1=forged")
	requireKind(t, err, apperrors.KindValidation)
	assert.Equal(t, models.PaymentStatusPending, env.reload(t, order.ID).PaymentStatus)
}

func TestWebhookAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)
	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "evt_short", "payment_intent.succeeded", resp.PaymentIntentID, 100, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, body, fakeSignature))

	assert.Equal(t, models.PaymentStatusProcessing, env.reload(t, order.ID).PaymentStatus)
	assert.Contains(t, env.notifier.adminKinds(), models.NotificationPaymentMismatch)
	assert.Empty(t, env.notifier.confirmations)
}

func TestPaymentOversellNotifiesAdmins(t *testing.T) {
	env := newTestEnv(t)
	product := env.newProduct(t, "Limited", "20.00", 2)

	first := env.placeOrder(t, product, 2)
	second := env.placeOrder(t, product, 2)

	for i, order := range []*models.Order{first, second} {
		resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
		require.NoError(t, err)
		_, err = env.payments.Reconcile(env.ctx, IntentOutcome{
			OrderID:  order.ID,
			IntentID: resp.PaymentIntentID,
			Kind:     OutcomeSucceeded,
			Amount:   4000,
			Source:   "test",
		})
		require.NoError(t, err, "order %d", i)
	}

	assert.Equal(t, 0, env.stock(t, product.ID))
	assert.Contains(t, env.notifier.adminKinds(), models.NotificationOversell)
	assert.Equal(t, models.PaymentStatusCompleted, env.reload(t, second.ID).PaymentStatus)
}

func TestPaymentForCancelledOrderNeedsRefund(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)
	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	_, err = env.store.TransitionOrderStatus(env.ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled)
	require.NoError(t, err)

	body := webhookBody(t, "evt_late_pay", "payment_intent.succeeded", resp.PaymentIntentID, 1500, order.ID)
	require.NoError(t, env.payments.HandleWebhook(env.ctx, body, fakeSignature))

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Contains(t, env.notifier.adminKinds(), models.NotificationRefundRequired)
}

func TestRefund(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)

	_, err := env.payments.Refund(env.ctx, order.ID, "changed mind")
	requireKind(t, err, apperrors.KindConflict)

	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	env.processor.setStatus(resp.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)
	_, err = env.payments.ConfirmPayment(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	refunded, err := env.payments.Refund(env.ctx, order.ID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, refunded.Status)
	assert.Equal(t, "changed mind", refunded.RefundReason)
	assert.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, []string{resp.PaymentIntentID}, env.processor.refunds)
	assert.Len(t, env.notifier.refunds, 1)

	_, err = env.payments.Refund(env.ctx, order.ID, "again")
	requireKind(t, err, apperrors.KindConflict)
}

func TestRefundRetryAfterStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t, env.newProduct(t, "Serum", "15.00", 10), 1)
	resp, err := env.payments.CreatePaymentIntent(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)
	env.processor.setStatus(resp.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)
	_, err = env.payments.ConfirmPayment(env.ctx, env.user.ID, order.ID)
	require.NoError(t, err)

	failures := &atomic.Int32{}
	failures.Store(1)
	payments := NewPaymentService(flakyRefundStore{Store: env.store, failures: failures}, env.processor,
		env.idempotency, env.notifier, env.events, config.PaymentConfig{Currency: "usd", TimeoutSeconds: 1})

	_, err = payments.Refund(env.ctx, order.ID, "damaged")
	require.Error(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, env.reload(t, order.ID).PaymentStatus)

	refunded, err := payments.Refund(env.ctx, order.ID, "damaged")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)

	assert.Equal(t, []string{resp.PaymentIntentID}, env.processor.refunds, "retry reuses the first refund")
	assert.Contains(t, env.processor.refundIDs, "refund-"+order.ID.String())
	assert.Len(t, env.notifier.refunds, 1)
}

func TestOutcomeFromIntent(t *testing.T) {
	cases := []struct {
		status stripe.PaymentIntentStatus
		failed bool
		want   OutcomeKind
	}{
		{stripe.PaymentIntentStatusSucceeded, false, OutcomeSucceeded},
		{stripe.PaymentIntentStatusProcessing, false, OutcomeProcessing},
		{stripe.PaymentIntentStatusCanceled, false, OutcomeFailed},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, true, OutcomeFailed},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, false, OutcomeNone},
		{stripe.PaymentIntentStatusRequiresAction, false, OutcomeNone},
	}
	for _, tc := range cases {
		pi := &PaymentIntent{ID: "pi_1", Status: tc.status, LastPaymentFailed: tc.failed}
		assert.Equal(t, tc.want, outcomeFromIntent(uuid.Nil, pi, "test").Kind, string(tc.status))
	}
}
