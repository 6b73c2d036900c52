// internal/repository/gorm_cart.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *GormStore) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.conn(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &cart, nil
}

func (s *GormStore) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.New(), UserID: userID}
	// Two first-time adds may race here; the unique user_id index makes the
	// loser a no-op and both read back the same row.
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, translateError(err)
	}

	var stored models.Cart
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

func (s *GormStore) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, translateError(err)
	}

	err = s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&cart.Items).Error
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		var product models.Product
		err := s.conn(ctx).First(&product, "id = ?", cart.Items[i].ProductID).Error
		if err == nil {
			cart.Items[i].Product = &product
		} else if translateError(err) != ErrNotFound {
			return nil, err
		}
	}

	return &cart, nil
}

func (s *GormStore) UpsertCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	now := time.Now()
	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, translateError(err)
	}

	var stored models.CartItem
	err = s.conn(ctx).Preload("Product").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&stored).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

func (s *GormStore) GetCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.conn(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

func (s *GormStore) UpdateCartItemQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	result := s.conn(ctx).Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	result := s.conn(ctx).Delete(&models.CartItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCartItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return s.conn(ctx).
		Where("cart_id = ? AND id IN ?", cartID, itemIDs).
		Delete(&models.CartItem{}).Error
}

func (s *GormStore) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return s.conn(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
