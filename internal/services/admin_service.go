// internal/services/admin_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const exportPageSize = 100

type AdminService struct {
	store               repository.Store
	notificationService *NotificationService
	events              *OrderEventHub
}

type AdminDashboardStats struct {
	TotalUsers        int64           `json:"total_users"`
	TotalProducts     int64           `json:"total_products"`
	TotalOrders       int64           `json:"total_orders"`
	PendingOrders     int64           `json:"pending_orders"`
	ProcessingOrders  int64           `json:"processing_orders"`
	PaidOrders        int64           `json:"paid_orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	LiveOrderWatchers int             `json:"live_order_watchers"`
}

type AdminOrderFilter struct {
	utils.PaginationParams
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,order_status"`
	Note   string             `json:"note" validate:"max=500"`
}

func NewAdminService(store repository.Store, notificationService *NotificationService, events *OrderEventHub) *AdminService {
	return &AdminService{
		store:               store,
		notificationService: notificationService,
		events:              events,
	}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{Revenue: decimal.Zero}
	one := utils.PaginationParams{Page: 1, Limit: 1}

	var err error
	if _, stats.TotalUsers, err = s.store.ListUsers(ctx, one); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if _, stats.TotalProducts, err = s.store.ListProducts(ctx, repository.ProductFilter{PaginationParams: one}); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if _, stats.TotalOrders, err = s.store.ListOrders(ctx, repository.OrderFilter{PaginationParams: one}); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	for status, count := range map[models.OrderStatus]*int64{
		models.OrderStatusPending:    &stats.PendingOrders,
		models.OrderStatusProcessing: &stats.ProcessingOrders,
	} {
		status := status
		if _, *count, err = s.store.ListOrders(ctx, repository.OrderFilter{PaginationParams: one, Status: &status}); err != nil {
			return nil, fmt.Errorf("failed to count orders: %w", err)
		}
	}

	completed := models.PaymentStatusCompleted
	err = s.eachOrder(ctx, repository.OrderFilter{PaymentStatus: &completed}, func(order *models.Order) error {
		stats.PaidOrders++
		stats.Revenue = stats.Revenue.Add(order.Total)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	if s.events != nil {
		stats.LiveOrderWatchers = s.events.SubscriberCount()
	}
	return stats, nil
}

func (s *AdminService) ListOrders(ctx context.Context, filter AdminOrderFilter) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, repository.OrderFilter{
		PaginationParams: filter.PaginationParams,
		Status:           filter.Status,
		PaymentStatus:    filter.PaymentStatus,
	})
}

// UpdateOrderStatus moves an order along its fulfilment lifecycle. An
// order can only start processing once its payment has completed.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req *UpdateOrderStatusRequest, adminID uuid.UUID) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown order status %q", req.Status))
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	from := order.Status
	// Illegal moves are a bad request; only a lost race below is a conflict.
	if !from.CanTransitionTo(req.Status) {
		return nil, apperrors.Validation(fmt.Sprintf("cannot move order from %s to %s", from, req.Status))
	}
	if req.Status == models.OrderStatusProcessing && order.PaymentStatus != models.PaymentStatusCompleted {
		return nil, apperrors.Validation("order cannot be processed before payment completes")
	}

	changed, err := s.store.TransitionOrderStatus(ctx, orderID, from, req.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !changed {
		return nil, apperrors.Conflict("order was updated concurrently, please reload")
	}
	order.Status = req.Status

	if req.Status == models.OrderStatusCancelled && order.PaymentStatus == models.PaymentStatusCompleted && s.notificationService != nil {
		notification := orderNotification(models.NotificationRefundRequired, "Paid order cancelled",
			fmt.Sprintf("Order %s was cancelled after payment and needs a refund", order.OrderNumber), models.NotificationPriorityHigh, order.ID)
		if err := s.notificationService.NotifyAdmins(ctx, notification); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to notify admins")
		}
	}

	s.createAuditLog(ctx, adminID, "update_order_status", "order", &order.ID, map[string]interface{}{
		"from": string(from),
		"to":   string(req.Status),
		"note": req.Note,
	})

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       req.Status,
		"admin_id": adminID,
	}).Info("Order status updated")

	if s.events != nil {
		s.events.Publish(OrderEventStatusChanged, order)
	}
	return order, nil
}

// ExportOrders writes every order matching filter as an xlsx workbook.
func (s *AdminService) ExportOrders(ctx context.Context, filter AdminOrderFilter, w io.Writer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"Order Number", "Order ID", "User ID", "Status", "Payment Status",
		"Total", "Items", "Payment Intent", "Paid At", "Created At",
	}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		headerRow.AddCell().SetValue(h)
	}

	err = s.eachOrder(ctx, repository.OrderFilter{Status: filter.Status, PaymentStatus: filter.PaymentStatus}, func(order *models.Order) error {
		row := sheet.AddRow()
		row.AddCell().SetValue(order.OrderNumber)
		row.AddCell().SetValue(order.ID.String())
		row.AddCell().SetValue(order.UserID.String())
		row.AddCell().SetValue(string(order.Status))
		row.AddCell().SetValue(string(order.PaymentStatus))
		row.AddCell().SetValue(order.Total.StringFixed(2))
		row.AddCell().SetValue(len(order.Items))
		row.AddCell().SetValue(order.PaymentIntentID())
		row.AddCell().SetValue(formatTime(order.PaidAt))
		row.AddCell().SetValue(order.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	})
	if err != nil {
		return err
	}

	return file.Write(w)
}

func (s *AdminService) GetUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	return s.store.ListUsers(ctx, params)
}

func (s *AdminService) GetNotifications(ctx context.Context, limit int) ([]models.AdminNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := s.store.ListAdminNotifications(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []models.AdminNotification{}
	}
	return notifications, nil
}

// eachOrder pages through all matching orders, oldest page first.
func (s *AdminService) eachOrder(ctx context.Context, filter repository.OrderFilter, fn func(order *models.Order) error) error {
	filter.PaginationParams = utils.PaginationParams{Page: 1, Limit: exportPageSize, Sort: "created_at", Order: "desc"}
	for {
		orders, total, err := s.store.ListOrders(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		for i := range orders {
			if err := fn(&orders[i]); err != nil {
				return err
			}
		}
		if len(orders) == 0 || int64(filter.Page*filter.Limit) >= total {
			return nil
		}
		filter.Page++
	}
}

func (s *AdminService) createAuditLog(ctx context.Context, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, newValues map[string]interface{}) {
	auditLog := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		NewValues:    models.JSONB(newValues),
	}
	if err := s.store.CreateAuditLog(ctx, auditLog); err != nil {
		logrus.WithError(err).Warn("Failed to write audit log")
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
