package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LimitSnapshot captures the effective limits and the spending state used for
// a limit evaluation. It is embedded (flattened) in the persisted decision.
type LimitSnapshot struct {
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	DailySpent       decimal.Decimal `json:"daily_spent"`
	DailyRemaining   decimal.Decimal `json:"daily_remaining"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	MonthlySpent     decimal.Decimal `json:"monthly_spent"`
	MonthlyRemaining decimal.Decimal `json:"monthly_remaining"`

	SingleTransactionLimit decimal.Decimal `json:"single_transaction_limit"`
	AtmDailyLimit          decimal.Decimal `json:"atm_daily_limit"`
	ContactlessLimit       decimal.Decimal `json:"contactless_limit"`
	OnlineLimit            decimal.Decimal `json:"online_limit"`

	SnapshotDate time.Time `json:"snapshot_date"`
}

// BalanceSnapshot is the ledger's view of an account at a point in time. It
// is a value object returned by the ledger and never persisted on its own.
type BalanceSnapshot struct {
	AccountID              int64           `json:"account_id"`
	AccountSpaceID         *int64          `json:"account_space_id,omitempty"`
	Currency               string          `json:"currency"`
	AvailableBalanceBefore decimal.Decimal `json:"available_balance_before"`
	AvailableBalanceAfter  decimal.Decimal `json:"available_balance_after"`
	LedgerBalance          decimal.Decimal `json:"ledger_balance"`
	TotalHoldAmount        decimal.Decimal `json:"total_hold_amount"`

	// FX triple, set when the checked amount was converted into the account
	// currency.
	ExchangeRate     decimal.NullDecimal `json:"exchange_rate,omitempty"`
	OriginalCurrency string              `json:"original_currency,omitempty"`
	OriginalAmount   decimal.NullDecimal `json:"original_amount,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// RiskAssessment is the outcome of the rule-based risk scoring.
type RiskAssessment struct {
	RiskScore      int      `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"` // LOW, MEDIUM, HIGH
	Recommendation string   `json:"recommendation"`
	Reason         string   `json:"reason"`
	TriggeredRules []string `json:"triggered_rules"`
	VelocityChecks JSON     `json:"velocity_checks,omitempty"`
	AdditionalFactors JSON  `json:"additional_factors,omitempty"`
}

// Risk recommendations
const (
	RiskRecommendApprove   = "APPROVE"
	RiskRecommendChallenge = "CHALLENGE"
	RiskRecommendDecline   = "DECLINE"
)
