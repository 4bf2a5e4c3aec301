package models

import (
	"time"
)

// Order status values. The status field is a plain string in storage; these
// are the only values the service writes.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// Payment method tags stored on an order.
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodQuickpay     = "quickpay"
	PaymentMethodCard         = "card"
)

type Order struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerName   string      `gorm:"type:varchar(100);not null" json:"customer_name"`
	Phone          string      `gorm:"type:varchar(20);not null" json:"phone"`
	Email          string      `gorm:"type:varchar(100)" json:"email,omitempty"`
	City           string      `gorm:"type:varchar(100);not null" json:"city"`
	Address        string      `gorm:"type:varchar(255);not null" json:"address"`
	PostalCode     string      `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Notes          string      `gorm:"type:text" json:"notes,omitempty"`
	PaymentMethod  string      `gorm:"type:varchar(20);not null" json:"payment_method"`
	TotalAmount    int64       `gorm:"not null" json:"total_amount"`
	DiscountAmount int64       `json:"discount_amount"`
	PromoCode      string      `gorm:"type:varchar(32)" json:"promo_code,omitempty"`
	Status         string      `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentID      string      `gorm:"type:varchar(64);index" json:"payment_id,omitempty"`
	ReceiptFileID  string      `gorm:"type:varchar(128)" json:"receipt_file_id,omitempty"`
	Items          []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	DeletedAt      *time.Time  `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots the product name and unit price at checkout time.
// Rows are immutable once written.
type OrderItem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID     string `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID   string `gorm:"type:varchar(36);not null" json:"product_id"`
	ProductName string `gorm:"type:varchar(200);not null" json:"product_name"`
	UnitPrice   int64  `gorm:"not null" json:"unit_price"`
	Quantity    int    `gorm:"not null" json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
