// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const maxOrderNumberAttempts = 3

type OrderService struct {
	store  repository.Store
	events *OrderEventHub
	now    func() time.Time
}

type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// CreateOrderRequest never carries prices. Items, when sent, must match
// the cart the client was looking at.
type CreateOrderRequest struct {
	ShippingAddressID uuid.UUID        `json:"shipping_address_id" validate:"required"`
	BillingAddressID  *uuid.UUID       `json:"billing_address_id,omitempty"`
	Notes             string           `json:"notes" validate:"max=1000"`
	Items             []OrderItemInput `json:"items,omitempty" validate:"omitempty,dive"`
}

func NewOrderService(store repository.Store, events *OrderEventHub) *OrderService {
	return &OrderService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if req.ShippingAddressID == uuid.Nil {
		return nil, apperrors.Validation("shipping address is required")
	}
	billingID := req.ShippingAddressID
	if req.BillingAddressID != nil && *req.BillingAddressID != uuid.Nil {
		billingID = *req.BillingAddressID
	}

	for _, addressID := range []uuid.UUID{req.ShippingAddressID, billingID} {
		if err := s.checkAddress(ctx, userID, addressID); err != nil {
			return nil, err
		}
	}

	var (
		order *models.Order
		err   error
	)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		var number string
		number, err = generateOrderNumber(s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to generate order number: %w", err)
		}

		order, err = s.createOrderTx(ctx, userID, number, billingID, req)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		logrus.WithFields(logrus.Fields{"order_number": number, "attempt": attempt}).Warn("Order number collision, retrying")
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to allocate order number: %w", err)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.Total.StringFixed(2),
		"items":        len(order.Items),
	}).Info("Order created")

	if s.events != nil {
		s.events.Publish(OrderEventCreated, order)
	}
	return order, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, userID uuid.UUID, number string, billingID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		cart, err := tx.LockCart(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.EmptyCart()
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return apperrors.EmptyCart()
		}

		if req.Items != nil && !cartMatches(cart.Items, req.Items) {
			return apperrors.Conflict("cart changed, please review your cart and try again")
		}

		productIDs := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := tx.GetProductsForUpdate(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(cart.Items))
		snapshotted := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			product, ok := products[item.ProductID]
			if !ok {
				name := ""
				if item.Product != nil {
					name = item.Product.Name
				}
				return apperrors.ProductUnavailable(item.ProductID.String(), name, item.Quantity, 0)
			}
			if !product.HasStock(item.Quantity) {
				return apperrors.ProductUnavailable(product.ID.String(), product.Name, item.Quantity, product.Stock)
			}

			line := models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Price:       product.Price,
			}
			total = total.Add(line.LineTotal())
			items = append(items, line)
			snapshotted = append(snapshotted, item.ID)
		}

		order = &models.Order{
			UserID:            userID,
			OrderNumber:       number,
			Status:            models.OrderStatusPending,
			PaymentStatus:     models.PaymentStatusPending,
			Total:             total,
			ShippingAddressID: req.ShippingAddressID,
			BillingAddressID:  billingID,
			Notes:             req.Notes,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		if err := tx.DeleteCartItems(ctx, cart.ID, snapshotted); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) checkAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	address, err := s.store.GetAddress(ctx, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("address")
	}
	if err != nil {
		return fmt.Errorf("failed to load address: %w", err)
	}
	if address.UserID != userID {
		return apperrors.Forbidden("address belongs to another user")
	}
	return nil
}

// GetOrder returns the order with its items. Only the owner or an admin
// may read it.
func (s *OrderService) GetOrder(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID && !isAdmin {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, repository.OrderFilter{
		PaginationParams: params,
		UserID:           &userID,
	})
}

func cartMatches(items []models.CartItem, expected []OrderItemInput) bool {
	want := make(map[uuid.UUID]int, len(expected))
	for _, e := range expected {
		want[e.ProductID] += e.Quantity
	}
	if len(want) != len(items) {
		return false
	}
	for _, item := range items {
		if want[item.ProductID] != item.Quantity {
			return false
		}
	}
	return true
}

// generateOrderNumber returns ORD-YYYYMMDD-NNNNNN.
func generateOrderNumber(now time.Time) (string, error) {
	suffix, err := utils.GenerateNumericCode(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix), nil
}
