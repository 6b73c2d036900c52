// internal/repository/gorm_engagement.go
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *GormStore) AddWishlistItem(ctx context.Context, item *models.Wishlist) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return translateError(s.conn(ctx).Create(item).Error)
}

func (s *GormStore) RemoveWishlistItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	result := s.conn(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Wishlist{})
	return result.RowsAffected > 0, result.Error
}

func (s *GormStore) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	var items []models.Wishlist
	err := s.conn(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (s *GormStore) CreateReview(ctx context.Context, review *models.Review) error {
	return translateError(s.conn(ctx).Create(review).Error)
}

func (s *GormStore) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := s.conn(ctx).Where("product_id = ?", productID).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (s *GormStore) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error {
	return s.conn(ctx).Create(enquiry).Error
}

func (s *GormStore) ListEnquiries(ctx context.Context, userID *uuid.UUID) ([]models.Enquiry, error) {
	var enquiries []models.Enquiry
	query := s.conn(ctx).Order("created_at DESC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Find(&enquiries).Error
	return enquiries, err
}

func (s *GormStore) ResolveEnquiry(ctx context.Context, id uuid.UUID) error {
	result := s.conn(ctx).Model(&models.Enquiry{}).Where("id = ?", id).Update("is_resolved", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateNewsletterSubscription(ctx context.Context, sub *models.NewsletterSubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return translateError(s.conn(ctx).Create(sub).Error)
}

func (s *GormStore) GetNewsletterSubscription(ctx context.Context, email string) (*models.NewsletterSubscription, error) {
	var sub models.NewsletterSubscription
	if err := s.conn(ctx).Where("LOWER(email) = LOWER(?)", email).First(&sub).Error; err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}
