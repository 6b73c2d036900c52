package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/models"
)

func testOrder() *models.Order {
	order := &models.Order{
		OrderNumber:   "ORD-20240101-123456",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Total:         decimal.RequireFromString("45.00"),
	}
	order.ID = uuid.New()
	return order
}

func TestOrderEventHubFanOut(t *testing.T) {
	hub := NewOrderEventHub(nil)
	first, unsubscribeFirst := hub.Subscribe(1)
	second, unsubscribeSecond := hub.Subscribe(1)
	defer unsubscribeSecond()
	assert.Equal(t, 2, hub.SubscriberCount())

	order := testOrder()
	hub.Publish(OrderEventCreated, order)

	for _, ch := range []<-chan OrderEvent{first, second} {
		event := <-ch
		assert.Equal(t, OrderEventCreated, event.Type)
		assert.Equal(t, order.OrderNumber, event.OrderNumber)
	}

	unsubscribeFirst()
	unsubscribeFirst()
	assert.Equal(t, 1, hub.SubscriberCount())
	_, open := <-first
	assert.False(t, open)
}

func TestOrderEventHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewOrderEventHub(nil)
	_, unsubscribe := hub.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(OrderEventPaid, testOrder())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestOrderEventHubWebsocket(t *testing.T) {
	hub := NewOrderEventHub([]string{"https://shop.example.com"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://shop.example.com"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	order := testOrder()
	hub.Publish(OrderEventStatusChanged, order)

	var event OrderEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, OrderEventStatusChanged, event.Type)
	assert.Equal(t, order.ID, event.OrderID)
	assert.True(t, order.Total.Equal(event.Total))
}
