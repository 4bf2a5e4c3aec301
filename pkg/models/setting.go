package models

import (
	"time"
)

// Setting is a generic key/value record. The value is an opaque JSON blob;
// the store settings payload below is the only shape the service writes.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// SettingKeyStore is the key under which StoreSettings is serialized.
const SettingKeyStore = "store"

// StoreSettings holds bank transfer requisites and public contact info.
type StoreSettings struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	RecipientName string `json:"recipient_name"`
	ContactPhone  string `json:"contact_phone"`
	ContactEmail  string `json:"contact_email"`
}
