package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/cache"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

const fakeSignature = "t=1,v1=valid"

// fakeProcessor keeps intents in memory. With block set, calls wait for
// the context to end.
type fakeProcessor struct {
	mu        sync.Mutex
	intents   map[string]*PaymentIntent
	byKey     map[string]string
	calls     int
	refunds   []string
	refundIDs map[string]string
	block     bool
	createErr error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		intents:   make(map[string]*PaymentIntent),
		byKey:     make(map[string]string),
		refundIDs: make(map[string]string),
	}
}

func (p *fakeProcessor) CreateIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	if err := p.enter(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return nil, p.createErr
	}
	if id, ok := p.byKey[params.IdempotencyKey]; ok {
		return p.copyOf(id), nil
	}

	id := fmt.Sprintf("pi_test_%d", len(p.intents)+1)
	p.intents[id] = &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       params.AmountCents,
		Currency:     params.Currency,
		Metadata:     params.Metadata,
	}
	p.byKey[params.IdempotencyKey] = id
	return p.copyOf(id), nil
}

func (p *fakeProcessor) GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	if err := p.enter(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.intents[intentID]; !ok {
		return nil, errors.New("no such payment_intent")
	}
	return p.copyOf(intentID), nil
}

// Refund records one refund per idempotency key, the way the processor
// deduplicates retried requests.
func (p *fakeProcessor) Refund(ctx context.Context, params RefundParams) (string, error) {
	if err := p.enter(ctx); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.refundIDs[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		return id, nil
	}
	p.refunds = append(p.refunds, params.IntentID)
	id := fmt.Sprintf("re_test_%d", len(p.refunds))
	p.refundIDs[params.IdempotencyKey] = id
	return id, nil
}

type fakeWebhookPayload struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	OrderID  string `json:"order_id"`
}

func (p *fakeProcessor) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != fakeSignature {
		return nil, errors.New("signature mismatch")
	}
	var body fakeWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	return &WebhookEvent{
		ID:   body.ID,
		Type: body.Type,
		Intent: &PaymentIntent{
			ID:       body.IntentID,
			Amount:   body.Amount,
			Metadata: map[string]string{"order_id": body.OrderID},
		},
	}, nil
}

func (p *fakeProcessor) enter(ctx context.Context) error {
	p.mu.Lock()
	p.calls++
	block := p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakeProcessor) copyOf(id string) *PaymentIntent {
	pi := *p.intents[id]
	return &pi
}

func (p *fakeProcessor) setStatus(id string, status stripe.PaymentIntentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id].Status = status
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []string
	refunds       []string
	admin         []*models.AdminNotification
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, order.OrderNumber)
	return nil
}

func (n *recordingNotifier) SendRefundNotification(ctx context.Context, user *models.User, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, order.OrderNumber)
	return nil
}

func (n *recordingNotifier) NotifyAdmins(ctx context.Context, notification *models.AdminNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, notification)
	return nil
}

func (n *recordingNotifier) adminKinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]models.NotificationKind, 0, len(n.admin))
	for _, a := range n.admin {
		kinds = append(kinds, a.Type)
	}
	return kinds
}

// failingItemsStore fails order item inserts, including inside
// transactions.
type failingItemsStore struct {
	repository.Store
}

func (s failingItemsStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(failingItemsStore{tx})
	})
}

func (failingItemsStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return errors.New("insert failed")
}

// flakyRefundStore fails the next failures transitions to refunded.
type flakyRefundStore struct {
	repository.Store
	failures *atomic.Int32
}

func (s flakyRefundStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(flakyRefundStore{Store: tx, failures: s.failures})
	})
}

func (s flakyRefundStore) TransitionPaymentStatus(ctx context.Context, orderID uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, changes repository.PaymentChanges) (bool, error) {
	if to == models.PaymentStatusRefunded && s.failures.Add(-1) >= 0 {
		return false, errors.New("connection reset by peer")
	}
	return s.Store.TransitionPaymentStatus(ctx, orderID, from, to, changes)
}

type testEnv struct {
	ctx         context.Context
	store       *repository.MemoryStore
	processor   *fakeProcessor
	notifier    *recordingNotifier
	idempotency *cache.MemoryIdempotencyStore
	events      *OrderEventHub
	carts       *CartService
	orders      *OrderService
	payments    *PaymentService

	user    *models.User
	address *models.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ctx:         context.Background(),
		store:       repository.NewMemoryStore(),
		processor:   newFakeProcessor(),
		notifier:    &recordingNotifier{},
		idempotency: cache.NewMemoryIdempotencyStore(0),
		events:      NewOrderEventHub(nil),
	}
	env.carts = NewCartService(env.store)
	env.orders = NewOrderService(env.store, env.events)
	env.payments = NewPaymentService(env.store, env.processor, env.idempotency, env.notifier, env.events,
		config.PaymentConfig{Currency: "usd", TimeoutSeconds: 1, StripePublishableKey: "pk_test"})

	env.user, env.address = env.newCustomer(t, "shopper@example.com")
	return env
}

func (env *testEnv) newCustomer(t *testing.T, email string) (*models.User, *models.Address) {
	t.Helper()

	user := &models.User{Email: email, FirstName: "Test", Role: models.UserRoleUser}
	require.NoError(t, user.SetPassword("Secret123!"))
	require.NoError(t, env.store.CreateUser(env.ctx, user))

	address := &models.Address{
		UserID:       user.ID,
		AddressLine1: "1 Market St",
		City:         "San Francisco",
		State:        "CA",
		PostalCode:   "94105",
		Country:      "US",
		IsDefault:    true,
	}
	require.NoError(t, env.store.CreateAddress(env.ctx, address))
	return user, address
}

func (env *testEnv) newProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		SKU:         "SKU-" + uuid.NewString()[:8],
	}
	require.NoError(t, env.store.CreateProduct(env.ctx, product))
	return product
}

func (env *testEnv) addToCart(t *testing.T, userID uuid.UUID, product *models.Product, quantity int) {
	t.Helper()
	_, err := env.carts.AddItem(env.ctx, userID, &AddCartItemRequest{ProductID: product.ID, Quantity: quantity})
	require.NoError(t, err)
}

func (env *testEnv) placeOrder(t *testing.T, product *models.Product, quantity int) *models.Order {
	t.Helper()
	env.addToCart(t, env.user.ID, product, quantity)
	order, err := env.orders.CreateOrder(env.ctx, env.user.ID, &CreateOrderRequest{ShippingAddressID: env.address.ID})
	require.NoError(t, err)
	return order
}

func (env *testEnv) reload(t *testing.T, orderID uuid.UUID) *models.Order {
	t.Helper()
	order, err := env.store.GetOrder(env.ctx, orderID)
	require.NoError(t, err)
	return order
}

func (env *testEnv) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	product, err := env.store.GetProduct(env.ctx, productID)
	require.NoError(t, err)
	return product.Stock
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, kind), "unexpected error: %v", err)
}

func webhookBody(t *testing.T, eventID, eventType, intentID string, amount int64, orderID uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(fakeWebhookPayload{
		ID:       eventID,
		Type:     eventType,
		IntentID: intentID,
		Amount:   amount,
		OrderID:  orderID.String(),
	})
	require.NoError(t, err)
	return body
}
