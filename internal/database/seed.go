// internal/database/seed.go
package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

const (
	defaultAdminEmail    = "admin@storefront.local"
	defaultAdminPassword = "admin123!@#"
)

type seedProduct struct {
	name        string
	sku         string
	price       string
	description string
	featured    bool
	ingredients []string
}

var seedCatalog = map[string][]seedProduct{
	"Skincare": {
		{"Hydrating Face Serum", "SKN-SERUM-01", "45.00", "Lightweight serum with hyaluronic acid.", true, []string{"Water", "Hyaluronic Acid", "Glycerin"}},
		{"Daily Moisturizer", "SKN-MOIST-01", "32.00", "Everyday moisturizer for all skin types.", false, []string{"Water", "Shea Butter", "Squalane"}},
	},
	"Bath & Body": {
		{"Lavender Body Wash", "BDY-WASH-01", "18.00", "Calming body wash with lavender oil.", true, []string{"Water", "Coconut Surfactant", "Lavender Oil"}},
		{"Sea Salt Scrub", "BDY-SCRB-01", "24.00", "Exfoliating scrub with mineral sea salt.", false, []string{"Sea Salt", "Sweet Almond Oil"}},
	},
	"Candles": {
		{"Cedar Soy Candle", "CND-CEDR-01", "28.00", "Hand-poured soy candle, 40 hour burn.", true, []string{"Soy Wax", "Cedarwood Oil", "Cotton Wick"}},
	},
}

// SeedInitialData creates the default admin and, on an empty catalog, a
// small sample catalog. It is safe to run on every start.
func SeedInitialData(ctx context.Context, store repository.Store) error {
	logrus.Info("Seeding initial data...")

	adminCount, err := store.CountUsersByRole(ctx, models.UserRoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}

	if adminCount == 0 {
		admin := &models.User{
			Email:     defaultAdminEmail,
			FirstName: "System",
			LastName:  "Administrator",
			Role:      models.UserRoleAdmin,
		}
		if err := admin.SetPassword(defaultAdminPassword); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}
		if err := store.CreateUser(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		logrus.WithField("email", admin.Email).Info("Default admin user created successfully")
	}

	categoryCount, err := store.CountCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if categoryCount > 0 {
		logrus.Info("Initial data seeding completed")
		return nil
	}

	err = store.WithinTx(ctx, func(tx repository.Store) error {
		for categoryName, products := range seedCatalog {
			category := &models.Category{Name: categoryName, Description: categoryName + " essentials"}
			if err := tx.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to create category %s: %w", categoryName, err)
			}

			for _, p := range products {
				product := &models.Product{
					Name:        p.name,
					SKU:         p.sku,
					Price:       decimal.RequireFromString(p.price),
					Description: p.description,
					Featured:    p.featured,
					Ingredients: pq.StringArray(p.ingredients),
					CategoryID:  &category.ID,
					Stock:       100,
				}
				if err := tx.CreateProduct(ctx, product); err != nil {
					return fmt.Errorf("failed to create product %s: %w", p.sku, err)
				}
			}
		}

		return tx.CreateLifestyleItem(ctx, &models.LifestyleItem{
			Title:       "Slow Sunday Ritual",
			Description: "A bath, a candle and an hour to yourself.",
			ImageURL:    "/images/lifestyle/sunday.jpg",
			Link:        "/collections/bath-body",
		})
	})
	if err != nil {
		return err
	}

	logrus.Info("Initial data seeding completed")
	return nil
}
