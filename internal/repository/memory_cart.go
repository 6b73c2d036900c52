// internal/repository/memory_cart.go
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *MemoryStore) findCart(userID uuid.UUID) (models.Cart, bool) {
	for _, cart := range s.d().carts {
		if cart.UserID == userID {
			return cart, true
		}
	}
	return models.Cart{}, false
}

func (s *MemoryStore) withProduct(item models.CartItem) models.CartItem {
	if product, ok := s.d().products[item.ProductID]; ok {
		p := product
		item.Product = &p
	} else {
		item.Product = nil
	}
	return item
}

func (s *MemoryStore) loadCartItems(cart *models.Cart) {
	cart.Items = nil
	for _, item := range s.d().cartItems {
		if item.CartID == cart.ID {
			cart.Items = append(cart.Items, s.withProduct(item))
		}
	}
	sort.Slice(cart.Items, func(i, j int) bool {
		return cart.Items[i].CreatedAt.Before(cart.Items[j].CreatedAt)
	})
}

func (s *MemoryStore) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer s.lock()()

	cart, ok := s.findCart(userID)
	if !ok {
		return nil, ErrNotFound
	}
	s.loadCartItems(&cart)
	return &cart, nil
}

func (s *MemoryStore) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer s.lock()()

	if cart, ok := s.findCart(userID); ok {
		return &cart, nil
	}

	cart := models.Cart{ID: uuid.New(), UserID: userID}
	stamp(&cart.CreatedAt, &cart.UpdatedAt)
	s.d().carts[cart.ID] = cart
	return &cart, nil
}

// LockCart needs no extra locking here: a transaction already holds the
// store mutex.
func (s *MemoryStore) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.GetCartByUser(ctx, userID)
}

func (s *MemoryStore) UpsertCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	defer s.lock()()

	if _, ok := s.d().carts[cartID]; !ok {
		return nil, ErrNotFound
	}

	for id, item := range s.d().cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			item.UpdatedAt = time.Now()
			s.d().cartItems[id] = item
			stored := s.withProduct(item)
			return &stored, nil
		}
	}

	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	stamp(&item.CreatedAt, &item.UpdatedAt)
	s.d().cartItems[item.ID] = item
	stored := s.withProduct(item)
	return &stored, nil
}

func (s *MemoryStore) GetCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	defer s.lock()()

	item, ok := s.d().cartItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	stored := s.withProduct(item)
	return &stored, nil
}

func (s *MemoryStore) UpdateCartItemQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	defer s.lock()()

	item, ok := s.d().cartItems[id]
	if !ok {
		return ErrNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	s.d().cartItems[id] = item
	return nil
}

func (s *MemoryStore) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.d().cartItems[id]; !ok {
		return ErrNotFound
	}
	delete(s.d().cartItems, id)
	return nil
}

func (s *MemoryStore) DeleteCartItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	defer s.lock()()

	for _, id := range itemIDs {
		if item, ok := s.d().cartItems[id]; ok && item.CartID == cartID {
			delete(s.d().cartItems, id)
		}
	}
	return nil
}

func (s *MemoryStore) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	defer s.lock()()

	for id, item := range s.d().cartItems {
		if item.CartID == cartID {
			delete(s.d().cartItems, id)
		}
	}
	return nil
}
