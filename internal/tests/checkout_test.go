// internal/tests/checkout_test.go
package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderData struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	Items         []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type intentData struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// checkout places a two-line order worth $45 and returns it with the
// products involved.
func (s *StorefrontSuite) checkout(session *http.Cookie) (orderData, productData, productData) {
	adminSession, _ := s.login(adminEmail, adminPass)
	serum := s.createProduct(adminSession, "Night Serum", "SERUM-01", "10.00", 5)
	cream := s.createProduct(adminSession, "Day Cream", "CREAM-01", "25.00", 3)

	addressID := s.createAddress(session)
	s.addToCart(session, serum.ID, 2)
	s.addToCart(session, cream.ID, 1)

	w := s.do(http.MethodPost, "/v1/orders", map[string]string{"shipping_address_id": addressID}, withCookie(session))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Order orderData `json:"order"`
	}
	s.decode(w, &data)
	return data.Order, serum, cream
}

func (s *StorefrontSuite) createIntent(session *http.Cookie, orderID string) intentData {
	w := s.do(http.MethodPost, "/v1/create-payment-intent", map[string]string{"order_id": orderID}, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var intent intentData
	s.decode(w, &intent)
	return intent
}

func (s *StorefrontSuite) productStock(id string) int {
	w := s.do(http.MethodGet, "/v1/products/"+id, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var data struct {
		Product productData `json:"product"`
	}
	s.decode(w, &data)
	return data.Product.Stock
}

func (s *StorefrontSuite) fetchOrder(session *http.Cookie, id string) orderData {
	w := s.do(http.MethodGet, "/v1/orders/"+id, nil, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Order orderData `json:"order"`
	}
	s.decode(w, &data)
	return data.Order
}

func (s *StorefrontSuite) TestCheckoutSnapshotsCart() {
	session, _ := s.register(customerEmail)
	order, serum, cream := s.checkout(session)

	s.True(decimal.RequireFromString("45.00").Equal(order.Total), order.Total.String())
	s.Equal("pending", order.Status)
	s.Equal("pending", order.PaymentStatus)
	s.Len(order.Items, 2)

	// Stock only moves once payment succeeds.
	s.Equal(5, s.productStock(serum.ID))
	s.Equal(3, s.productStock(cream.ID))

	w := s.do(http.MethodGet, "/v1/cart", nil, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code)
	var cart struct {
		Items []json.RawMessage `json:"items"`
	}
	s.decode(w, &cart)
	s.Empty(cart.Items)
}

func (s *StorefrontSuite) TestCheckoutEmptyCart() {
	session, _ := s.register(customerEmail)
	addressID := s.createAddress(session)

	w := s.do(http.MethodPost, "/v1/orders", map[string]string{"shipping_address_id": addressID}, withCookie(session))
	s.Equal(http.StatusBadRequest, w.Code)

	env := s.decode(w, nil)
	s.Equal("EMPTY_CART", env.Error.Code)
}

func (s *StorefrontSuite) TestConfirmPaymentCompletesOrder() {
	session, _ := s.register(customerEmail)
	order, serum, cream := s.checkout(session)

	intent := s.createIntent(session, order.ID)
	s.Equal(int64(4500), intent.Amount)
	s.Equal("usd", intent.Currency)
	s.NotEmpty(intent.ClientSecret)

	// A second request reuses the pending intent.
	again := s.createIntent(session, order.ID)
	s.Equal(intent.PaymentIntentID, again.PaymentIntentID)

	w := s.do(http.MethodPost, "/v1/orders/"+order.ID+"/confirm-payment", nil, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	waiting := s.fetchOrder(session, order.ID)
	s.Equal("processing", waiting.PaymentStatus)
	s.Equal("pending", waiting.Status)

	s.processor.succeed(intent.PaymentIntentID)

	w = s.do(http.MethodPost, "/v1/orders/"+order.ID+"/confirm-payment", nil, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	paid := s.fetchOrder(session, order.ID)
	s.Equal("completed", paid.PaymentStatus)
	s.Equal("processing", paid.Status)
	s.Equal(3, s.productStock(serum.ID))
	s.Equal(2, s.productStock(cream.ID))

	// Confirming twice does not touch stock again.
	w = s.do(http.MethodPost, "/v1/orders/"+order.ID+"/confirm-payment", nil, withCookie(session))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(3, s.productStock(serum.ID))
}

func (s *StorefrontSuite) TestForeignOrderIsForbidden() {
	owner, _ := s.register(customerEmail)
	order, _, _ := s.checkout(owner)

	stranger, _ := s.register("stranger@example.com")
	calls := s.processor.callCount()

	w := s.do(http.MethodPost, "/v1/create-payment-intent", map[string]string{"order_id": order.ID}, withCookie(stranger))
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal(calls, s.processor.callCount())

	w = s.do(http.MethodGet, "/v1/orders/"+order.ID, nil, withCookie(stranger))
	s.Contains([]int{http.StatusForbidden, http.StatusNotFound}, w.Code)

	w = s.do(http.MethodPost, "/v1/create-payment-intent", map[string]string{"order_id": uuid.NewString()}, withCookie(owner))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *StorefrontSuite) TestCreateIntentUsesSnakeCaseFields() {
	session, _ := s.register(customerEmail)
	order, _, _ := s.checkout(session)
	calls := s.processor.callCount()

	w := s.do(http.MethodPost, "/v1/create-payment-intent", map[string]string{"orderId": order.ID}, withCookie(session))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", s.decode(w, nil).Error.Code)
	s.Equal(calls, s.processor.callCount())

	intent := s.createIntent(session, order.ID)
	s.NotEmpty(intent.PaymentIntentID)
}

func (s *StorefrontSuite) webhookPayload(eventID, eventType, intentID, orderID string, amount int64) []byte {
	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       intentID,
				"object":   "payment_intent",
				"amount":   amount,
				"currency": "usd",
				"status":   "succeeded",
				"metadata": map[string]string{"order_id": orderID},
			},
		},
	})
	s.Require().NoError(err)
	return payload
}

func (s *StorefrontSuite) TestWebhookCompletesOrder() {
	session, _ := s.register(customerEmail)
	order, serum, _ := s.checkout(session)
	intent := s.createIntent(session, order.ID)

	payload := s.webhookPayload("evt_suite_1", "payment_intent.succeeded", intent.PaymentIntentID, order.ID, 4500)
	signature := signWebhook(payload, time.Now())

	w := s.do(http.MethodPost, "/v1/webhook", payload, withHeader("Stripe-Signature", signature))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var ack struct {
		Received bool `json:"received"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &ack))
	s.True(ack.Received)

	s.Equal("completed", s.fetchOrder(session, order.ID).PaymentStatus)
	s.Equal(3, s.productStock(serum.ID))

	// Redelivery of the same event is acknowledged and ignored.
	w = s.do(http.MethodPost, "/v1/webhook", payload, withHeader("Stripe-Signature", signWebhook(payload, time.Now())))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(3, s.productStock(serum.ID))

	_, logged := s.audit.find("POST /v1/webhook")
	s.False(logged)
}

func (s *StorefrontSuite) TestWebhookRejectsBadSignature() {
	session, _ := s.register(customerEmail)
	order, _, _ := s.checkout(session)
	intent := s.createIntent(session, order.ID)

	payload := s.webhookPayload("evt_suite_2", "payment_intent.succeeded", intent.PaymentIntentID, order.ID, 4500)

	w := s.do(http.MethodPost, "/v1/webhook", payload, withHeader("Stripe-Signature", fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix())))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/webhook", payload)
	s.Equal(http.StatusBadRequest, w.Code)

	unchanged := s.fetchOrder(session, order.ID)
	s.Equal("processing", unchanged.PaymentStatus)
	s.Equal("pending", unchanged.Status)
}

func (s *StorefrontSuite) TestAdminRefund() {
	session, _ := s.register(customerEmail)
	order, _, _ := s.checkout(session)
	intent := s.createIntent(session, order.ID)
	adminSession, _ := s.login(adminEmail, adminPass)

	// Nothing captured yet.
	w := s.do(http.MethodPost, "/v1/admin/orders/"+order.ID+"/refund", map[string]string{"reason": "customer request"}, withCookie(adminSession))
	s.Equal(http.StatusConflict, w.Code, w.Body.String())

	s.processor.succeed(intent.PaymentIntentID)
	w = s.do(http.MethodPost, "/v1/orders/"+order.ID+"/confirm-payment", nil, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/admin/orders/"+order.ID+"/refund", map[string]string{"reason": "customer request"}, withCookie(adminSession))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("refunded", s.fetchOrder(session, order.ID).PaymentStatus)
}
