// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255;not null"`
	FirstName     string     `json:"first_name" gorm:"size:100"`
	LastName      string     `json:"last_name" gorm:"size:100"`
	Phone         string     `json:"phone" gorm:"size:50"`
	Role          UserRole   `json:"role" gorm:"type:varchar(20);default:'user';not null"`
	LoginAttempts int        `json:"-" gorm:"default:0"`
	LockUntil     *time.Time `json:"-"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsAdmin is the only place admin rights are decided.
func (u *User) IsAdmin() bool {
	return u.Role.IsAdmin()
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}

// Session backs the session cookie. A session without a user is a
// pre-login captcha challenge.
type Session struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	CaptchaAnswerHash string     `json:"-" gorm:"size:64"`
	ExpiresAt         time.Time  `json:"expires_at" gorm:"not null;index"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Address struct {
	BaseModel
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	AddressLine1 string    `json:"address_line1" gorm:"size:255;not null"`
	AddressLine2 string    `json:"address_line2" gorm:"size:255"`
	City         string    `json:"city" gorm:"size:100;not null"`
	State        string    `json:"state" gorm:"size:100;not null"`
	PostalCode   string    `json:"postal_code" gorm:"size:20;not null"`
	Country      string    `json:"country" gorm:"size:100;not null"`
	IsDefault    bool      `json:"is_default" gorm:"default:false"`
}
