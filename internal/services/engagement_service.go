// internal/services/engagement_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// EngagementService covers wishlists, reviews, enquiries and the
// newsletter.
type EngagementService struct {
	store    repository.Store
	notifier *NotificationService
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type EnquiryRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type NewsletterRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func NewEngagementService(store repository.Store, notifier *NotificationService) *EngagementService {
	return &EngagementService{
		store:    store,
		notifier: notifier,
	}
}

func (s *EngagementService) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	items, err := s.store.ListWishlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	if items == nil {
		items = []models.Wishlist{}
	}
	return items, nil
}

// AddToWishlist is idempotent: adding a product twice is not an error.
func (s *EngagementService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("product")
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	err := s.store.AddWishlistItem(ctx, &models.Wishlist{UserID: userID, ProductID: productID})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return nil
}

func (s *EngagementService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.store.RemoveWishlistItem(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	if !removed {
		return apperrors.NotFound("wishlist item")
	}
	return nil
}

func (s *EngagementService) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *EngagementService) CreateReview(ctx context.Context, userID, productID uuid.UUID, req *ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperrors.Validation("rating must be between 1 and 5")
	}

	review := &models.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NotFound("product")
			}
			return err
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}
		return tx.IncrementReviewCount(ctx, productID)
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// CreateEnquiry stores a contact form submission. userID is nil for
// anonymous visitors.
func (s *EngagementService) CreateEnquiry(ctx context.Context, userID *uuid.UUID, req *EnquiryRequest) (*models.Enquiry, error) {
	enquiry := &models.Enquiry{
		Name:    strings.TrimSpace(req.Name),
		Email:   normalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
		UserID:  userID,
	}
	if err := s.store.CreateEnquiry(ctx, enquiry); err != nil {
		return nil, fmt.Errorf("failed to create enquiry: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendEnquiryAcknowledgement(ctx, enquiry); err != nil {
			logrus.WithError(err).WithField("enquiry_id", enquiry.ID).Warn("Failed to send enquiry acknowledgement")
		}
	}
	return enquiry, nil
}

func (s *EngagementService) ListEnquiries(ctx context.Context, userID *uuid.UUID) ([]models.Enquiry, error) {
	enquiries, err := s.store.ListEnquiries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}
	if enquiries == nil {
		enquiries = []models.Enquiry{}
	}
	return enquiries, nil
}

func (s *EngagementService) ResolveEnquiry(ctx context.Context, enquiryID uuid.UUID) error {
	err := s.store.ResolveEnquiry(ctx, enquiryID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("enquiry")
	}
	return err
}

// Subscribe returns false when the address was already subscribed.
func (s *EngagementService) Subscribe(ctx context.Context, req *NewsletterRequest) (bool, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.store.GetNewsletterSubscription(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}

	err := s.store.CreateNewsletterSubscription(ctx, &models.NewsletterSubscription{Email: email})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}
	return true, nil
}
