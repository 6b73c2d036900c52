// internal/repository/store.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type ProductFilter struct {
	utils.PaginationParams
	CategoryID *uuid.UUID
	Featured   *bool
}

type OrderFilter struct {
	utils.PaginationParams
	UserID        *uuid.UUID
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
}

// PaymentChanges are the columns written alongside a payment status
// transition. Nil fields are left untouched.
type PaymentChanges struct {
	Reference    *string
	PaidAt       *time.Time
	RefundedAt   *time.Time
	RefundReason string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error)
	CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, address *models.Address) error
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	UpdateAddress(ctx context.Context, address *models.Address) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	ClearDefaultAddresses(ctx context.Context, userID, exceptID uuid.UUID) error
}

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	CountCategories(ctx context.Context) (int64, error)

	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetProductsForUpdate locks the rows until the surrounding
	// transaction ends. Missing ids are absent from the result.
	GetProductsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// DecrementStock removes quantity from stock. When stock is short it
	// is clamped to zero and oversold is true.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (oversold bool, err error)
	IncrementReviewCount(ctx context.Context, productID uuid.UUID) error

	ListLifestyleItems(ctx context.Context) ([]models.LifestyleItem, error)
	CreateLifestyleItem(ctx context.Context, item *models.LifestyleItem) error
}

type CartRepository interface {
	GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// LockCart loads the cart with its items and products and holds a row
	// lock on the cart and its items for the rest of the transaction.
	LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// UpsertCartItem adds quantity to the (cart, product) line, creating it
	// if absent, in a single atomic statement.
	UpsertCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error)
	GetCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, id uuid.UUID) error
	DeleteCartItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	// CreateOrder inserts the order row only. Items go through
	// CreateOrderItems in the same transaction.
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// SetPaymentIntent stores the intent reference and moves the payment
	// to processing, unless the payment already settled.
	SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error)
	// TransitionPaymentStatus is a compare-and-set: it reports false when
	// the stored status was not in from.
	TransitionPaymentStatus(ctx context.Context, orderID uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, changes PaymentChanges) (bool, error)
	TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) (bool, error)
	MarkStockCommitted(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type EngagementRepository interface {
	AddWishlistItem(ctx context.Context, item *models.Wishlist) error
	RemoveWishlistItem(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error)

	CreateReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error)

	CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error
	ListEnquiries(ctx context.Context, userID *uuid.UUID) ([]models.Enquiry, error)
	ResolveEnquiry(ctx context.Context, id uuid.UUID) error

	CreateNewsletterSubscription(ctx context.Context, sub *models.NewsletterSubscription) error
	GetNewsletterSubscription(ctx context.Context, email string) (*models.NewsletterSubscription, error)
}

type AdminRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	CreateAdminNotification(ctx context.Context, notification *models.AdminNotification) error
	ListAdminNotifications(ctx context.Context, limit int) ([]models.AdminNotification, error)
}

// Store is implemented by GormStore (postgres) and MemoryStore.
type Store interface {
	UserRepository
	SessionRepository
	AddressRepository
	CatalogRepository
	CartRepository
	OrderRepository
	EngagementRepository
	AdminRepository

	// WithinTx runs fn against a Store bound to one transaction. fn's
	// writes are committed only if it returns nil.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

func containsPaymentStatus(states []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, state := range states {
		if state == s {
			return true
		}
	}
	return false
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
