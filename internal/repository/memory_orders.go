// internal/repository/memory_orders.go
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *MemoryStore) withItems(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), s.d().orderItems[order.ID]...)
	return order
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	defer s.lock()()

	for _, existing := range s.d().orders {
		if existing.OrderNumber == order.OrderNumber {
			return ErrDuplicate
		}
	}
	ensureID(&order.ID)
	stamp(&order.CreatedAt, &order.UpdatedAt)
	stored := *order
	stored.Items = nil
	s.d().orders[order.ID] = stored
	return nil
}

func (s *MemoryStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	defer s.lock()()

	for i := range items {
		if _, ok := s.d().orders[items[i].OrderID]; !ok {
			return ErrNotFound
		}
	}
	for i := range items {
		ensureID(&items[i].ID)
		stamp(&items[i].CreatedAt, nil)
		s.d().orderItems[items[i].OrderID] = append(s.d().orderItems[items[i].OrderID], items[i])
	}
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer s.lock()()

	order, ok := s.d().orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	order = s.withItems(order)
	return &order, nil
}

func (s *MemoryStore) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	defer s.lock()()

	for _, order := range s.d().orders {
		if order.PaymentIntentID() == intentID {
			o := s.withItems(order)
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	defer s.lock()()

	var orders []models.Order
	for _, order := range s.d().orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.PaymentStatus != nil && order.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.Search != "" && !containsFold(order.OrderNumber, filter.Search) {
			continue
		}
		orders = append(orders, s.withItems(order))
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if filter.Order == "asc" {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	start, end := filter.Bounds(len(orders))
	return orders[start:end], int64(len(orders)), nil
}

func (s *MemoryStore) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error) {
	defer s.lock()()

	order, ok := s.d().orders[orderID]
	if !ok || !containsPaymentStatus(models.PaymentSettleableStates, order.PaymentStatus) {
		return false, nil
	}
	id := intentID
	order.StripePaymentIntentID = &id
	order.PaymentStatus = models.PaymentStatusProcessing
	order.UpdatedAt = time.Now()
	s.d().orders[orderID] = order
	return true, nil
}

func (s *MemoryStore) TransitionPaymentStatus(ctx context.Context, orderID uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, changes PaymentChanges) (bool, error) {
	defer s.lock()()

	order, ok := s.d().orders[orderID]
	if !ok || !containsPaymentStatus(from, order.PaymentStatus) {
		return false, nil
	}

	order.PaymentStatus = to
	if changes.Reference != nil {
		ref := *changes.Reference
		order.PaymentReference = &ref
	}
	if changes.PaidAt != nil {
		t := *changes.PaidAt
		order.PaidAt = &t
	}
	if changes.RefundedAt != nil {
		t := *changes.RefundedAt
		order.RefundedAt = &t
	}
	if changes.RefundReason != "" {
		order.RefundReason = changes.RefundReason
	}
	order.UpdatedAt = time.Now()
	s.d().orders[orderID] = order
	return true, nil
}

func (s *MemoryStore) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (bool, error) {
	defer s.lock()()

	order, ok := s.d().orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	s.d().orders[orderID] = order
	return true, nil
}

func (s *MemoryStore) MarkStockCommitted(ctx context.Context, orderID uuid.UUID) (bool, error) {
	defer s.lock()()

	order, ok := s.d().orders[orderID]
	if !ok || order.StockCommitted {
		return false, nil
	}
	order.StockCommitted = true
	s.d().orders[orderID] = order
	return true, nil
}
