// internal/repository/memory_catalog.go
package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	defer s.lock()()

	categories := make([]models.Category, 0, len(s.d().categories))
	for _, category := range s.d().categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	defer s.lock()()

	category, ok := s.d().categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &category, nil
}

func (s *MemoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	defer s.lock()()

	ensureID(&category.ID)
	stamp(&category.CreatedAt, &category.UpdatedAt)
	s.d().categories[category.ID] = *category
	return nil
}

func (s *MemoryStore) CountCategories(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len(s.d().categories)), nil
}

func sortProducts(products []models.Product, field, order string) {
	less := func(a, b models.Product) bool {
		switch field {
		case "price":
			return a.Price.LessThan(b.Price)
		case "name":
			return a.Name < b.Name
		case "review_count":
			return a.ReviewCount < b.ReviewCount
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if order == "asc" {
			return less(products[i], products[j])
		}
		return less(products[j], products[i])
	})
}

func (s *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	defer s.lock()()

	var products []models.Product
	for _, product := range s.d().products {
		if filter.CategoryID != nil && (product.CategoryID == nil || *product.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Featured != nil && product.Featured != *filter.Featured {
			continue
		}
		if filter.Search != "" && !containsFold(product.Name, filter.Search) && !containsFold(product.Description, filter.Search) {
			continue
		}
		products = append(products, product)
	}

	sortProducts(products, filter.Sort, filter.Order)
	start, end := filter.Bounds(len(products))
	return products[start:end], int64(len(products)), nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer s.lock()()

	product, ok := s.d().products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if product.CategoryID != nil {
		if category, ok := s.d().categories[*product.CategoryID]; ok {
			product.Category = &category
		}
	}
	return &product, nil
}

func (s *MemoryStore) GetProductsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	defer s.lock()()

	result := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.d().products[id]; ok {
			p := product
			result[id] = &p
		}
	}
	return result, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock()()

	for _, existing := range s.d().products {
		if existing.SKU == product.SKU {
			return ErrDuplicate
		}
	}
	ensureID(&product.ID)
	stamp(&product.CreatedAt, &product.UpdatedAt)
	stored := *product
	stored.Category = nil
	s.d().products[product.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock()()

	if _, ok := s.d().products[product.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.d().products {
		if id != product.ID && existing.SKU == product.SKU {
			return ErrDuplicate
		}
	}
	stamp(nil, &product.UpdatedAt)
	stored := *product
	stored.Category = nil
	s.d().products[product.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.d().products[id]; !ok {
		return ErrNotFound
	}
	delete(s.d().products, id)
	return nil
}

func (s *MemoryStore) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	defer s.lock()()

	product, ok := s.d().products[productID]
	if !ok {
		return false, ErrNotFound
	}

	oversold := product.Stock < quantity
	if oversold {
		product.Stock = 0
	} else {
		product.Stock -= quantity
	}
	s.d().products[productID] = product
	return oversold, nil
}

func (s *MemoryStore) IncrementReviewCount(ctx context.Context, productID uuid.UUID) error {
	defer s.lock()()

	product, ok := s.d().products[productID]
	if !ok {
		return ErrNotFound
	}
	product.ReviewCount++
	s.d().products[productID] = product
	return nil
}

func (s *MemoryStore) ListLifestyleItems(ctx context.Context) ([]models.LifestyleItem, error) {
	defer s.lock()()

	items := make([]models.LifestyleItem, 0, len(s.d().lifestyle))
	for _, item := range s.d().lifestyle {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *MemoryStore) CreateLifestyleItem(ctx context.Context, item *models.LifestyleItem) error {
	defer s.lock()()

	ensureID(&item.ID)
	stamp(&item.CreatedAt, &item.UpdatedAt)
	s.d().lifestyle[item.ID] = *item
	return nil
}
