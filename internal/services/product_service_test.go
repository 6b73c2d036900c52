package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func productRequest(name, sku, price string) *ProductRequest {
	return &ProductRequest{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		SKU:         sku,
		Stock:       5,
	}
}

func TestCreateProductRules(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewProductService(env.store)

	product, err := catalog.CreateProduct(env.ctx, productRequest("  Cleanser  ", "CL-1", "12.499"))
	require.NoError(t, err)
	assert.Equal(t, "Cleanser", product.Name)
	assert.Equal(t, "12.50", product.Price.StringFixed(2))

	_, err = catalog.CreateProduct(env.ctx, productRequest("Cleanser II", "CL-1", "10.00"))
	requireKind(t, err, apperrors.KindConflict)

	_, err = catalog.CreateProduct(env.ctx, productRequest("Free", "FREE-1", "0"))
	requireKind(t, err, apperrors.KindValidation)

	missing := uuid.New()
	req := productRequest("Orphan", "OR-1", "5.00")
	req.CategoryID = &missing
	_, err = catalog.CreateProduct(env.ctx, req)
	requireKind(t, err, apperrors.KindNotFound)
}

func TestCatalogQueries(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewProductService(env.store)

	category, err := catalog.CreateCategory(env.ctx, &CategoryRequest{Name: "Skincare"})
	require.NoError(t, err)

	serum := productRequest("Vitamin Serum", "SE-1", "30.00")
	serum.CategoryID = &category.ID
	serum.Featured = true
	_, err = catalog.CreateProduct(env.ctx, serum)
	require.NoError(t, err)
	_, err = catalog.CreateProduct(env.ctx, productRequest("Hand Cream", "HC-1", "8.00"))
	require.NoError(t, err)

	page := utils.PaginationParams{Page: 1, Limit: 20}

	featured, err := catalog.FeaturedProducts(env.ctx, 8)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Vitamin Serum", featured[0].Name)

	found, total, err := catalog.SearchProducts(env.ctx, "serum", page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SE-1", found[0].SKU)

	_, _, err = catalog.SearchProducts(env.ctx, "   ", page)
	requireKind(t, err, apperrors.KindValidation)

	inCategory, total, err := catalog.ProductsByCategory(env.ctx, category.ID, page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Vitamin Serum", inCategory[0].Name)

	_, _, err = catalog.ProductsByCategory(env.ctx, uuid.New(), page)
	requireKind(t, err, apperrors.KindNotFound)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewProductService(env.store)

	product, err := catalog.CreateProduct(env.ctx, productRequest("Toner", "TO-1", "9.00"))
	require.NoError(t, err)

	updated, err := catalog.UpdateProduct(env.ctx, product.ID, productRequest("Toner Plus", "TO-1", "11.00"))
	require.NoError(t, err)
	assert.Equal(t, "Toner Plus", updated.Name)

	withImage, err := catalog.SetProductImage(env.ctx, product.ID, "/uploads/products/toner.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/toner.png", withImage.ImageURL)

	require.NoError(t, catalog.DeleteProduct(env.ctx, product.ID))
	_, err = catalog.GetProduct(env.ctx, product.ID)
	requireKind(t, err, apperrors.KindNotFound)
	requireKind(t, catalog.DeleteProduct(env.ctx, product.ID), apperrors.KindNotFound)
}
