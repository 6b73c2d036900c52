// internal/models/engagement.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Wishlist struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlists_user_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlists_user_product"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Review struct {
	BaseModel
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
}

type Enquiry struct {
	BaseModel
	Name       string     `json:"name" gorm:"size:255;not null"`
	Email      string     `json:"email" gorm:"size:255;not null"`
	Phone      string     `json:"phone" gorm:"size:50"`
	Subject    string     `json:"subject" gorm:"size:255;not null"`
	Message    string     `json:"message" gorm:"type:text;not null"`
	UserID     *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	IsResolved bool       `json:"is_resolved" gorm:"default:false"`
}

type NewsletterSubscription struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	CreatedAt time.Time `json:"created_at"`
}
