// internal/repository/gorm_store.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// GormStore persists to postgres. The *gorm.DB must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translateError(s.conn(ctx).Create(user).Error)
}

func (s *GormStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	return translateError(s.conn(ctx).Save(user).Error)
}

func (s *GormStore) ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.conn(ctx).Model(&models.User{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := utils.ApplyPagination(query, params, "created_at", "email", "last_name").Find(&users).Error
	return users, total, err
}

func (s *GormStore) CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// Sessions

func (s *GormStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return translateError(s.conn(ctx).Create(session).Error)
}

func (s *GormStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := s.conn(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Delete(&models.Session{}, "id = ?", id).Error
}

func (s *GormStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	result := s.conn(ctx).Where("expires_at <= ?", before).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// Addresses

func (s *GormStore) CreateAddress(ctx context.Context, address *models.Address) error {
	return translateError(s.conn(ctx).Create(address).Error)
}

func (s *GormStore) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := s.conn(ctx).First(&address, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &address, nil
}

func (s *GormStore) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := s.conn(ctx).Where("user_id = ?", userID).
		Order("is_default DESC").Order("created_at ASC").
		Find(&addresses).Error
	return addresses, err
}

func (s *GormStore) UpdateAddress(ctx context.Context, address *models.Address) error {
	return translateError(s.conn(ctx).Save(address).Error)
}

func (s *GormStore) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	result := s.conn(ctx).Delete(&models.Address{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearDefaultAddresses(ctx context.Context, userID, exceptID uuid.UUID) error {
	return s.conn(ctx).Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", userID, exceptID, true).
		Update("is_default", false).Error
}

// Admin

func (s *GormStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.conn(ctx).Create(log).Error
}

func (s *GormStore) CreateAdminNotification(ctx context.Context, notification *models.AdminNotification) error {
	return s.conn(ctx).Create(notification).Error
}

func (s *GormStore) ListAdminNotifications(ctx context.Context, limit int) ([]models.AdminNotification, error) {
	var notifications []models.AdminNotification
	query := s.conn(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}
