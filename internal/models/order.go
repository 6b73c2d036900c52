// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	UserID                uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderNumber           string          `json:"order_number" gorm:"uniqueIndex;size:32;not null"`
	Status                OrderStatus     `json:"status" gorm:"type:varchar(20);default:'pending';not null;index"`
	PaymentStatus         PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);default:'pending';not null;index"`
	Total                 decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	ShippingAddressID     uuid.UUID       `json:"shipping_address_id" gorm:"type:uuid;not null"`
	BillingAddressID      uuid.UUID       `json:"billing_address_id" gorm:"type:uuid;not null"`
	StripePaymentIntentID *string         `json:"stripe_payment_intent_id" gorm:"size:255;index"`
	PaymentReference      *string         `json:"payment_reference" gorm:"size:255"`
	Notes                 string          `json:"notes" gorm:"type:text"`
	PaidAt                *time.Time      `json:"paid_at"`
	RefundedAt            *time.Time      `json:"refunded_at"`
	RefundReason          string          `json:"refund_reason,omitempty" gorm:"type:text"`
	StockCommitted        bool            `json:"-" gorm:"default:false;not null"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is written once when the order is created and never updated.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `json:"product_id" gorm:"type:uuid;not null"`
	ProductName string          `json:"product_name" gorm:"size:255;not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// AmountInCents is the order total in the processor's minor unit.
func (o *Order) AmountInCents() int64 {
	return o.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (o *Order) PaymentIntentID() string {
	if o.StripePaymentIntentID == nil {
		return ""
	}
	return *o.StripePaymentIntentID
}

// IsPaid reports whether the payment reached completed (or later refunded).
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusCompleted || o.PaymentStatus == PaymentStatusRefunded
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Payment states from which a success outcome may still be applied.
var PaymentSettleableStates = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusFailed,
}

// Payment states a failure outcome may overwrite. Completed is terminal
// for failures.
var PaymentFailableStates = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
}
