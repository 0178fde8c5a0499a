package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizationDecision is the binding outcome of an authorization request.
// Exactly one decision exists per request. A decision is mutated only by
// challenge completion (CHALLENGE -> APPROVED/DECLINED) and by reversal
// (APPROVED -> DECLINED).
type AuthorizationDecision struct {
	ID            uint            `gorm:"primarykey" json:"-"`
	DecisionID    int64           `gorm:"uniqueIndex;not null" json:"decision_id"`
	RequestID     int64           `gorm:"uniqueIndex;not null" json:"request_id"`
	Decision      string          `gorm:"not null" json:"decision"`
	ReasonCode    ReasonCode      `gorm:"not null" json:"reason_code"`
	ReasonMessage string          `json:"reason_message"`
	ApprovedAmount decimal.Decimal `gorm:"type:numeric(19,4)" json:"approved_amount"`
	Currency      string          `json:"currency"`
	// AuthorizationCode is the 6-digit code generated on approval.
	AuthorizationCode string `json:"authorization_code,omitempty"`
	RiskScore         *int   `json:"risk_score,omitempty"`
	HoldID            *int64 `gorm:"index" json:"hold_id,omitempty"`

	// Flattened limits snapshot taken at evaluation time.
	DailyLimit       decimal.Decimal `gorm:"type:numeric(19,4)" json:"daily_limit"`
	DailySpent       decimal.Decimal `gorm:"type:numeric(19,4)" json:"daily_spent"`
	DailyRemaining   decimal.Decimal `gorm:"type:numeric(19,4)" json:"daily_remaining"`
	MonthlyLimit     decimal.Decimal `gorm:"type:numeric(19,4)" json:"monthly_limit"`
	MonthlySpent     decimal.Decimal `gorm:"type:numeric(19,4)" json:"monthly_spent"`
	MonthlyRemaining decimal.Decimal `gorm:"type:numeric(19,4)" json:"monthly_remaining"`

	// Flattened balance snapshot from the ledger.
	AccountID              int64           `json:"account_id,omitempty"`
	AccountSpaceID         *int64          `json:"account_space_id,omitempty"`
	AvailableBalanceBefore decimal.Decimal `gorm:"type:numeric(19,4)" json:"available_balance_before"`
	AvailableBalanceAfter  decimal.Decimal `gorm:"type:numeric(19,4)" json:"available_balance_after"`

	DecisionPath  StringList `gorm:"type:jsonb" json:"decision_path"`
	ChallengeData JSON       `gorm:"type:jsonb" json:"challenge_data,omitempty"`

	Timestamp time.Time  `json:"timestamp"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Approved reports whether the decision is in the approval class.
func (d *AuthorizationDecision) Approved() bool {
	return d.Decision == DecisionApproved || d.Decision == DecisionPartial
}
