package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizationRequest is an authorization attempt as received from the
// acquiring side. Requests are immutable once a terminal decision has been
// persisted; only the processed flag is flipped.
type AuthorizationRequest struct {
	ID              uint            `gorm:"primarykey" json:"-"`
	RequestID       int64           `gorm:"uniqueIndex;not null" json:"request_id"`
	MaskedPan       string          `gorm:"not null" json:"masked_pan"`
	PanHash         string          `gorm:"index" json:"pan_hash,omitempty"`
	Token           string          `gorm:"index" json:"token,omitempty"`
	ExpiryDate      string          `json:"expiry_date"` // MM/YY as printed on the card
	MerchantID      string          `json:"merchant_id"`
	MerchantName    string          `json:"merchant_name"`
	Channel         string          `gorm:"not null" json:"channel"`
	MCC             string          `json:"mcc"`
	CountryCode     string          `json:"country_code"`
	TransactionType string          `gorm:"not null" json:"transaction_type"`
	Amount          decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Currency        string          `gorm:"not null" json:"currency"`
	Timestamp       time.Time       `json:"timestamp"`
	Cryptogram      string          `json:"cryptogram,omitempty"`
	PinData         string          `json:"pin_data,omitempty"`
	ThreeDsData     string          `json:"three_ds_data,omitempty"`
	Processed       bool            `gorm:"default:false" json:"processed"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"-"`
}
