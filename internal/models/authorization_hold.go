package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizationHold is reserved funds backing an approval. The hold amount is
// immutable after creation; status only moves ACTIVE -> CAPTURED | RELEASED |
// EXPIRED and the terminal states are sinks.
type AuthorizationHold struct {
	ID             uint            `gorm:"primarykey" json:"-"`
	HoldID         int64           `gorm:"uniqueIndex;not null" json:"hold_id"`
	RequestID      int64           `gorm:"index;not null" json:"request_id"`
	DecisionID     int64           `gorm:"index;not null" json:"decision_id"`
	AccountID      int64           `gorm:"index;not null" json:"account_id"`
	AccountSpaceID *int64          `json:"account_space_id,omitempty"`
	CardID         int64           `gorm:"index" json:"card_id"`
	MerchantID     string          `json:"merchant_id"`
	MerchantName   string          `json:"merchant_name"`
	Amount         decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Currency       string          `gorm:"not null" json:"currency"`

	// FX triple, present when the request currency differed from the account
	// currency at reservation time.
	OriginalAmount   decimal.NullDecimal `gorm:"type:numeric(19,4)" json:"original_amount,omitempty"`
	OriginalCurrency string              `json:"original_currency,omitempty"`
	ExchangeRate     decimal.NullDecimal `gorm:"type:numeric(19,8)" json:"exchange_rate,omitempty"`

	AuthorizationCode string          `json:"authorization_code"`
	Status            string          `gorm:"not null;index:idx_holds_status_expiry" json:"status"`
	CapturedAmount    decimal.Decimal `gorm:"type:numeric(19,4)" json:"captured_amount"`
	// OperationKey records the idempotency key of the terminal transition.
	// It is stamped before the ledger is touched, so a retry after a partial
	// failure resumes the recorded attempt instead of moving funds again.
	OperationKey string `gorm:"index" json:"-"`
	// PendingAmount is the capture amount of an in-flight capture attempt;
	// a retry resumes with the same figure.
	PendingAmount decimal.NullDecimal `gorm:"type:numeric(19,4)" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CapturedAt   *time.Time `json:"captured_at,omitempty"`
	ExpiresAt    time.Time  `gorm:"index:idx_holds_status_expiry" json:"expires_at"`
}

// Terminal reports whether the hold has left the ACTIVE state.
func (h *AuthorizationHold) Terminal() bool {
	return h.Status != HoldStatusActive
}
