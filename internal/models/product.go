package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"size:100;not null" json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Category    Category        `gorm:"size:11;not null;default:OTROS;index" json:"category"`
	CoverImage  string          `json:"cover_image,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `gorm:"index" json:"published_at,omitempty"` // nil while the product is a draft
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	User        User            `json:"-"`
	Images      []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (p Product) Published() bool {
	return p.PublishedAt != nil
}

type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Path      string    `gorm:"not null" json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
