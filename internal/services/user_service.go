// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

type UserService struct {
	store repository.Store
}

type UpdateUserProfileRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

type AddressRequest struct {
	AddressLine1 string `json:"address_line1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line2" validate:"max=255"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,max=100"`
	IsDefault    bool   `json:"is_default"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Check email uniqueness if updating
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
				return nil, apperrors.Conflict("email already in use")
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("database error: %w", err)
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already in use")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return apperrors.Validation("current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.UpdateUser(ctx, user)
}

func (s *UserService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	addresses, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}

// CreateAddress makes the user's first address the default.
func (s *UserService) CreateAddress(ctx context.Context, userID uuid.UUID, req *AddressRequest) (*models.Address, error) {
	address := &models.Address{UserID: userID}
	applyAddress(address, req)

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.ListAddresses(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			address.IsDefault = true
		}
		if err := tx.CreateAddress(ctx, address); err != nil {
			return err
		}
		if address.IsDefault {
			return tx.ClearDefaultAddresses(ctx, userID, address.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return address, nil
}

func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req *AddressRequest) (*models.Address, error) {
	address, err := s.ownedAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	applyAddress(address, req)

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.UpdateAddress(ctx, address); err != nil {
			return err
		}
		if address.IsDefault {
			return tx.ClearDefaultAddresses(ctx, userID, address.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	return address, nil
}

func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.store.DeleteAddress(ctx, addressID); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

func (s *UserService) ownedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	address, err := s.store.GetAddress(ctx, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("address")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address.UserID != userID {
		return nil, apperrors.Forbidden("address belongs to another user")
	}
	return address, nil
}

func applyAddress(address *models.Address, req *AddressRequest) {
	address.AddressLine1 = strings.TrimSpace(req.AddressLine1)
	address.AddressLine2 = strings.TrimSpace(req.AddressLine2)
	address.City = strings.TrimSpace(req.City)
	address.State = strings.TrimSpace(req.State)
	address.PostalCode = strings.TrimSpace(req.PostalCode)
	address.Country = strings.TrimSpace(req.Country)
	address.IsDefault = req.IsDefault
}
