// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

type CartService struct {
	store repository.Store
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=99"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=99"`
}

// CartView is the cart as the client sees it, priced from current
// product prices.
type CartView struct {
	ID        uuid.UUID         `json:"id"`
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &CartView{Items: []models.CartItem{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return newCartView(cart), nil
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *AddCartItemRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}

	if _, err := s.store.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("product")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if _, err := s.store.UpsertCartItem(ctx, cart.ID, req.ProductID, req.Quantity); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req *UpdateCartItemRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCartItemQuantity(ctx, itemID, req.Quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteCartItem(ctx, itemID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	return s.store.ClearCart(ctx, cart.ID)
}

// ownedItem reports items in other carts as missing.
func (s *CartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("cart item")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	item, err := s.store.GetCartItem(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && item.CartID != cart.ID) {
		return nil, apperrors.NotFound("cart item")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}
	return item, nil
}

func newCartView(cart *models.Cart) *CartView {
	view := &CartView{
		ID:       cart.ID,
		Items:    cart.Items,
		Subtotal: cart.Subtotal(),
	}
	if view.Items == nil {
		view.Items = []models.CartItem{}
	}
	for _, item := range cart.Items {
		view.ItemCount += item.Quantity
	}
	return view
}
