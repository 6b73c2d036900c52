// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// ProductService serves the public catalog and the admin product
// maintenance endpoints.
type ProductService struct {
	store repository.Store
}

type ProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=255"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	SKU         string          `json:"sku" validate:"required,max=100,sku"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Featured    bool            `json:"featured"`
	ImageURL    string          `json:"image_url" validate:"omitempty,max=500"`
	Ingredients []string        `json:"ingredients,omitempty"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=500"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	CategoryID *uuid.UUID
	Featured   *bool
}

func NewProductService(store repository.Store) *ProductService {
	return &ProductService{store: store}
}

func (s *ProductService) ListProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	products, total, err := s.store.ListProducts(ctx, repository.ProductFilter{
		PaginationParams: params.PaginationParams,
		CategoryID:       params.CategoryID,
		Featured:         params.Featured,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (s *ProductService) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	featured := true
	products, _, err := s.ListProducts(ctx, ProductSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: limit, Sort: "created_at", Order: "desc"},
		Featured:         &featured,
	})
	return products, err
}

func (s *ProductService) SearchProducts(ctx context.Context, query string, params utils.PaginationParams) ([]models.Product, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, apperrors.Validation("search query is required")
	}
	params.Search = query
	return s.ListProducts(ctx, ProductSearchParams{PaginationParams: params})
}

func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *ProductService) ProductsByCategory(ctx context.Context, categoryID uuid.UUID, params utils.PaginationParams) ([]models.Product, int64, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, apperrors.NotFound("category")
		}
		return nil, 0, fmt.Errorf("failed to load category: %w", err)
	}
	return s.ListProducts(ctx, ProductSearchParams{PaginationParams: params, CategoryID: &categoryID})
}

func (s *ProductService) ListLifestyleItems(ctx context.Context) ([]models.LifestyleItem, error) {
	return s.store.ListLifestyleItems(ctx)
}

func (s *ProductService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if err := s.checkProductRequest(ctx, req); err != nil {
		return nil, err
	}

	product := &models.Product{}
	applyProduct(product, req)
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a product with this SKU already exists")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("Product created")
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *ProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProductRequest(ctx, req); err != nil {
		return nil, err
	}

	applyProduct(product, req)
	product.Category = nil
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a product with this SKU already exists")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// SetProductImage points the product at an uploaded image.
func (s *ProductService) SetProductImage(ctx context.Context, productID uuid.UUID, imageURL string) (*models.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	product.ImageURL = imageURL
	product.Category = nil
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	err := s.store.DeleteProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("product")
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *ProductService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *ProductService) checkProductRequest(ctx context.Context, req *ProductRequest) error {
	if !req.Price.IsPositive() {
		return apperrors.Validation("price must be greater than zero")
	}
	if req.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NotFound("category")
			}
			return fmt.Errorf("failed to load category: %w", err)
		}
	}
	return nil
}

func applyProduct(product *models.Product, req *ProductRequest) {
	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.Price = req.Price.Round(2)
	product.SKU = strings.TrimSpace(req.SKU)
	product.Stock = req.Stock
	product.Featured = req.Featured
	product.ImageURL = req.ImageURL
	product.Ingredients = pq.StringArray(req.Ingredients)
	product.CategoryID = req.CategoryID
}
