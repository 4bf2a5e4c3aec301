package models

import (
	"time"
)

// PromoCode grants a percentage discount. Codes are matched
// case-insensitively; Code is stored uppercase.
type PromoCode struct {
	Code            string    `gorm:"primaryKey;type:varchar(32)" json:"code"`
	DiscountPercent int       `gorm:"not null" json:"discount_percent"`
	Active          bool      `gorm:"default:true" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}
