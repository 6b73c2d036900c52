// internal/repository/gorm_orders.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return translateError(s.conn(ctx).Omit("Items").Create(order).Error)
}

func (s *GormStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return s.conn(ctx).Create(&items).Error
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (s *GormStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadItems(s.conn(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (s *GormStore) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	err := preloadItems(s.conn(ctx)).
		Where("stripe_payment_intent_id = ?", intentID).
		First(&order).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (s *GormStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := s.conn(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.Search != "" {
		query = query.Where("order_number ILIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := utils.ApplyPagination(preloadItems(query), filter.PaginationParams, "created_at", "total", "order_number").
		Find(&orders).Error
	return orders, total, err
}

func (s *GormStore) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error) {
	result := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, models.PaymentSettleableStates).
		Updates(map[string]interface{}{
			"stripe_payment_intent_id": intentID,
			"payment_status":           models.PaymentStatusProcessing,
		})
	return result.RowsAffected == 1, result.Error
}

func (s *GormStore) TransitionPaymentStatus(ctx context.Context, orderID uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, changes PaymentChanges) (bool, error) {
	updates := map[string]interface{}{
		"payment_status": to,
		"updated_at":     time.Now(),
	}
	if changes.Reference != nil {
		updates["payment_reference"] = *changes.Reference
	}
	if changes.PaidAt != nil {
		updates["paid_at"] = *changes.PaidAt
	}
	if changes.RefundedAt != nil {
		updates["refunded_at"] = *changes.RefundedAt
	}
	if changes.RefundReason != "" {
		updates["refund_reason"] = changes.RefundReason
	}

	result := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, from).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

func (s *GormStore) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (bool, error) {
	result := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	return result.RowsAffected == 1, result.Error
}

func (s *GormStore) MarkStockCommitted(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND stock_committed = ?", orderID, false).
		Update("stock_committed", true)
	return result.RowsAffected == 1, result.Error
}
