// internal/repository/memory_engagement.go
package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (s *MemoryStore) AddWishlistItem(ctx context.Context, item *models.Wishlist) error {
	defer s.lock()()

	for _, existing := range s.d().wishlists {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return ErrDuplicate
		}
	}
	ensureID(&item.ID)
	stamp(&item.CreatedAt, nil)
	stored := *item
	stored.Product = nil
	s.d().wishlists[item.ID] = stored
	return nil
}

func (s *MemoryStore) RemoveWishlistItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	defer s.lock()()

	for id, item := range s.d().wishlists {
		if item.UserID == userID && item.ProductID == productID {
			delete(s.d().wishlists, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	defer s.lock()()

	var items []models.Wishlist
	for _, item := range s.d().wishlists {
		if item.UserID != userID {
			continue
		}
		if product, ok := s.d().products[item.ProductID]; ok {
			p := product
			item.Product = &p
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *MemoryStore) CreateReview(ctx context.Context, review *models.Review) error {
	defer s.lock()()

	ensureID(&review.ID)
	stamp(&review.CreatedAt, &review.UpdatedAt)
	s.d().reviews[review.ID] = *review
	return nil
}

func (s *MemoryStore) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	defer s.lock()()

	var reviews []models.Review
	for _, review := range s.d().reviews {
		if review.ProductID == productID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (s *MemoryStore) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error {
	defer s.lock()()

	ensureID(&enquiry.ID)
	stamp(&enquiry.CreatedAt, &enquiry.UpdatedAt)
	s.d().enquiries[enquiry.ID] = *enquiry
	return nil
}

func (s *MemoryStore) ListEnquiries(ctx context.Context, userID *uuid.UUID) ([]models.Enquiry, error) {
	defer s.lock()()

	var enquiries []models.Enquiry
	for _, enquiry := range s.d().enquiries {
		if userID != nil && (enquiry.UserID == nil || *enquiry.UserID != *userID) {
			continue
		}
		enquiries = append(enquiries, enquiry)
	}
	sort.Slice(enquiries, func(i, j int) bool { return enquiries[i].CreatedAt.After(enquiries[j].CreatedAt) })
	return enquiries, nil
}

func (s *MemoryStore) ResolveEnquiry(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	enquiry, ok := s.d().enquiries[id]
	if !ok {
		return ErrNotFound
	}
	enquiry.IsResolved = true
	s.d().enquiries[id] = enquiry
	return nil
}

func (s *MemoryStore) CreateNewsletterSubscription(ctx context.Context, sub *models.NewsletterSubscription) error {
	defer s.lock()()

	key := strings.ToLower(sub.Email)
	if _, ok := s.d().newsletter[key]; ok {
		return ErrDuplicate
	}
	ensureID(&sub.ID)
	stamp(&sub.CreatedAt, nil)
	s.d().newsletter[key] = *sub
	return nil
}

func (s *MemoryStore) GetNewsletterSubscription(ctx context.Context, email string) (*models.NewsletterSubscription, error) {
	defer s.lock()()

	sub, ok := s.d().newsletter[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}
