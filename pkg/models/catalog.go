package models

import (
	"time"
)

// Product is admin-managed catalog data, read-only to shoppers. Names and
// descriptions carry Russian and Kazakh variants as separate columns.
type Product struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NameRu          string     `gorm:"type:varchar(200);not null" json:"name_ru"`
	NameKk          string     `gorm:"type:varchar(200);not null" json:"name_kk"`
	Price           int64      `gorm:"not null" json:"price"`
	Images          string     `gorm:"type:text" json:"images"` // JSON array of URLs
	CategoryID      string     `gorm:"type:varchar(36);index" json:"category_id"`
	DescriptionRu   string     `gorm:"type:text" json:"description_ru"`
	DescriptionKk   string     `gorm:"type:text" json:"description_kk"`
	Characteristics string     `gorm:"type:text" json:"characteristics"` // dimensions/material/color, free text
	InStock         bool       `gorm:"default:true;index" json:"in_stock"`
	Popular         bool       `gorm:"default:false;index" json:"popular"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

type Category struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NameRu    string    `gorm:"type:varchar(100);not null" json:"name_ru"`
	NameKk    string    `gorm:"type:varchar(100);not null" json:"name_kk"`
	Image     string    `gorm:"type:varchar(255)" json:"image"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
