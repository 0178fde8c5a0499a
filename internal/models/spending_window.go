package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SpendingWindow is the period-scoped accumulator consumed by limit checks.
// At most one window exists per (card, window type, period key); windows are
// materialized lazily on first touch and never deleted.
type SpendingWindow struct {
	ID         uint   `gorm:"primarykey" json:"-"`
	CardID     int64  `gorm:"uniqueIndex:idx_window_card_period;not null" json:"card_id"`
	WindowType string `gorm:"uniqueIndex:idx_window_card_period;not null" json:"window_type"`
	// PeriodKey is "2006-01-02" for DAILY windows and "2006-01" for MONTHLY.
	PeriodKey   string `gorm:"uniqueIndex:idx_window_card_period;not null" json:"period_key"`
	WindowDate  *time.Time `json:"window_date,omitempty"`
	WindowMonth int        `json:"window_month,omitempty"`
	WindowYear  int        `json:"window_year,omitempty"`

	// Optional scoping for channel/country/category specific windows.
	Channel     string `json:"channel,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	MCC         string `json:"mcc,omitempty"`

	LimitAmount     decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"limit_amount"`
	SpentAmount     decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"spent_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"remaining_amount"`

	TransactionCount    int        `json:"transaction_count"`
	LastTransactionTime *time.Time `json:"last_transaction_time,omitempty"`
	// LastRequestID makes counter commits idempotent per causing request.
	LastRequestID int64 `json:"-"`
	// Version is incremented on every counter update. Concurrent updates are
	// serialized by the repository's row lock; the version is not compared.
	Version   int64     `gorm:"default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyPeriodKey formats the period key of the DAILY window containing t.
func DailyPeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthlyPeriodKey formats the period key of the MONTHLY window containing t.
func MonthlyPeriodKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.UTC().Year(), int(t.UTC().Month()))
}
