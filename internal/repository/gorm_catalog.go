// internal/repository/gorm_catalog.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func (s *GormStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.conn(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (s *GormStore) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.conn(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &category, nil
}

func (s *GormStore) CreateCategory(ctx context.Context, category *models.Category) error {
	return translateError(s.conn(ctx).Create(category).Error)
}

func (s *GormStore) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Category{}).Count(&count).Error
	return count, err
}

func (s *GormStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := s.conn(ctx).Model(&models.Product{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := utils.ApplyPagination(query, filter.PaginationParams, "created_at", "price", "name", "review_count").
		Find(&products).Error
	return products, total, err
}

func (s *GormStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.conn(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (s *GormStore) GetProductsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []models.Product
	// Ordered by id so concurrent checkouts lock rows in the same order.
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Order("id").Find(&products).Error
	if err != nil {
		return nil, err
	}

	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

func (s *GormStore) CreateProduct(ctx context.Context, product *models.Product) error {
	return translateError(s.conn(ctx).Create(product).Error)
}

func (s *GormStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	return translateError(s.conn(ctx).Omit("Category").Save(product).Error)
}

func (s *GormStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := s.conn(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	result := s.conn(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return false, nil
	}

	// Short on stock: clamp at zero so the counter never goes negative.
	result = s.conn(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", 0)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

func (s *GormStore) IncrementReviewCount(ctx context.Context, productID uuid.UUID) error {
	return s.conn(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("review_count", gorm.Expr("review_count + 1")).Error
}

func (s *GormStore) ListLifestyleItems(ctx context.Context) ([]models.LifestyleItem, error) {
	var items []models.LifestyleItem
	err := s.conn(ctx).Order("created_at DESC").Find(&items).Error
	return items, err
}

func (s *GormStore) CreateLifestyleItem(ctx context.Context, item *models.LifestyleItem) error {
	return s.conn(ctx).Create(item).Error
}
