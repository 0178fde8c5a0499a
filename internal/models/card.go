package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardDetails are card attributes returned by the card directory. They are
// not persisted here; the directory owns them.
type CardDetails struct {
	CardID                 int64      `json:"card_id"`
	MaskedPan              string     `json:"masked_pan"`
	PanHash                string     `json:"pan_hash,omitempty"`
	Token                  string     `json:"token,omitempty"`
	BIN                    string     `json:"bin"`
	CardType               string     `json:"card_type"`
	CardBrand              string     `json:"card_brand"`
	Status                 string     `json:"status"`
	CardholderName         string     `json:"cardholder_name"`
	ExpiryDate             time.Time  `json:"expiry_date"`
	IssueDate              time.Time  `json:"issue_date"`
	AccountID              int64      `json:"account_id"`
	AccountSpaceID         *int64     `json:"account_space_id,omitempty"`
	CustomerID             int64      `json:"customer_id"`
	ThreeDsEnrollmentStatus string    `json:"three_ds_enrollment_status"`
	ProductCode            string     `json:"product_code"`
	IssuerCountry          string     `json:"issuer_country"`
	CustomLimits           *CardLimits `json:"custom_limits,omitempty"`
}

// Enrolled3DS reports whether the card is enrolled in 3-D Secure.
func (c *CardDetails) Enrolled3DS() bool {
	return c.ThreeDsEnrollmentStatus == "Y"
}

// CardLimits is a per-card limit override from the card directory. An
// override applies only while active and not expired.
type CardLimits struct {
	TransactionLimit decimal.NullDecimal `json:"transaction_limit,omitempty"`
	DailyLimit       decimal.NullDecimal `json:"daily_limit,omitempty"`
	MonthlyLimit     decimal.NullDecimal `json:"monthly_limit,omitempty"`
	AtmDailyLimit    decimal.NullDecimal `json:"atm_daily_limit,omitempty"`
	ContactlessLimit decimal.NullDecimal `json:"contactless_limit,omitempty"`
	OnlineLimit      decimal.NullDecimal `json:"online_limit,omitempty"`
	Active           bool                `json:"active"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
}

// Effective reports whether the override should be honored at time now.
func (l *CardLimits) Effective(now time.Time) bool {
	if l == nil || !l.Active {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}
