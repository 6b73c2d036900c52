// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url" gorm:"size:500"`
}

type Product struct {
	BaseModel
	Name        string          `json:"name" gorm:"size:255;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	ImageURL    string          `json:"image_url" gorm:"size:500"`
	Featured    bool            `json:"featured" gorm:"default:false;index"`
	ReviewCount int             `json:"review_count" gorm:"default:0"`
	Ingredients pq.StringArray  `json:"ingredients" gorm:"type:text[]"`
	CategoryID  *uuid.UUID      `json:"category_id" gorm:"type:uuid;index"`
	Stock       int             `json:"stock" gorm:"default:100;not null"`
	SKU         string          `json:"sku" gorm:"uniqueIndex;size:100;not null"`

	// Relationships
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

type LifestyleItem struct {
	BaseModel
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text;not null"`
	ImageURL    string `json:"image_url" gorm:"size:500;not null"`
	Link        string `json:"link" gorm:"size:500;not null"`
}
