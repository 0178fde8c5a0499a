package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardauth/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SpendingWindowRepository persists the per-card period counters. Mutations
// run under a row lock so concurrent approvals for the same card serialize on
// the window row and can never jointly cross a limit.
type SpendingWindowRepository interface {
	// GetOrCreate loads the window for (cardId, windowType, periodKey),
	// materializing it lazily with the given limit when missing.
	GetOrCreate(ctx context.Context, cardID int64, windowType, periodKey string, limitAmount decimal.Decimal, at time.Time) (*models.SpendingWindow, error)
	// Apply adds amount to the window's counters inside tx under FOR UPDATE.
	// Only the most recently applied requestId is remembered per window:
	// re-applying that request is a no-op, but a request repeated after another
	// request was applied to the window is counted again. A negative amount
	// reverses; spentAmount is clamped at zero.
	// With a valid enforceLimit, an addition that would push spentAmount past
	// that limit fails with ErrLimitExceeded instead of committing. The
	// enforced limit may differ from the stored window limit when channel
	// adjustment applies.
	Apply(ctx context.Context, tx *gorm.DB, cardID int64, windowType, periodKey string, limitAmount, amount decimal.Decimal, requestID int64, enforceLimit decimal.NullDecimal, at time.Time) (*models.SpendingWindow, error)
	Get(ctx context.Context, cardID int64, windowType, periodKey string) (*models.SpendingWindow, error)
}

type spendingWindowRepository struct {
	db *gorm.DB
}

// NewSpendingWindowRepository creates a spending window repository backed by GORM.
func NewSpendingWindowRepository(db *gorm.DB) SpendingWindowRepository {
	if db == nil {
		panic("db is required")
	}
	return &spendingWindowRepository{db: db}
}

func (r *spendingWindowRepository) Get(ctx context.Context, cardID int64, windowType, periodKey string) (*models.SpendingWindow, error) {
	var window models.SpendingWindow
	err := r.db.WithContext(ctx).
		Where("card_id = ? AND window_type = ? AND period_key = ?", cardID, windowType, periodKey).
		First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("failed to get spending window: %w", err)
	}
	return &window, nil
}

func (r *spendingWindowRepository) GetOrCreate(ctx context.Context, cardID int64, windowType, periodKey string, limitAmount decimal.Decimal, at time.Time) (*models.SpendingWindow, error) {
	window, err := r.Get(ctx, cardID, windowType, periodKey)
	if err == nil {
		return window, nil
	}
	if !errors.Is(err, ErrWindowNotFound) {
		return nil, err
	}

	fresh := newWindow(cardID, windowType, periodKey, limitAmount, at)
	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		// A concurrent request may have materialized the same period.
		if isUniqueViolation(err) {
			return r.Get(ctx, cardID, windowType, periodKey)
		}
		return nil, fmt.Errorf("failed to create spending window: %w", err)
	}
	return fresh, nil
}

func (r *spendingWindowRepository) Apply(ctx context.Context, tx *gorm.DB, cardID int64, windowType, periodKey string, limitAmount, amount decimal.Decimal, requestID int64, enforceLimit decimal.NullDecimal, at time.Time) (*models.SpendingWindow, error) {
	var window models.SpendingWindow
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("card_id = ? AND window_type = ? AND period_key = ?", cardID, windowType, periodKey).
		First(&window).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := newWindow(cardID, windowType, periodKey, limitAmount, at)
		if cerr := tx.WithContext(ctx).Create(fresh).Error; cerr != nil {
			return nil, fmt.Errorf("failed to materialize spending window: %w", cerr)
		}
		window = *fresh
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock spending window: %w", err)
	}

	// Re-applying the same causing request is a no-op.
	if amount.IsPositive() && window.LastRequestID == requestID {
		return &window, nil
	}

	if enforceLimit.Valid && amount.IsPositive() &&
		window.SpentAmount.Add(amount).GreaterThan(enforceLimit.Decimal) {
		return nil, ErrLimitExceeded
	}

	window.SpentAmount = window.SpentAmount.Add(amount)
	if window.SpentAmount.IsNegative() {
		window.SpentAmount = decimal.Zero
	}
	window.RemainingAmount = window.LimitAmount.Sub(window.SpentAmount)
	if amount.IsPositive() {
		window.TransactionCount++
		lastAt := at
		window.LastTransactionTime = &lastAt
		window.LastRequestID = requestID
	}
	window.Version++
	window.UpdatedAt = at

	if err := tx.WithContext(ctx).Save(&window).Error; err != nil {
		return nil, fmt.Errorf("failed to update spending window: %w", err)
	}
	return &window, nil
}

func newWindow(cardID int64, windowType, periodKey string, limitAmount decimal.Decimal, at time.Time) *models.SpendingWindow {
	window := &models.SpendingWindow{
		CardID:          cardID,
		WindowType:      windowType,
		PeriodKey:       periodKey,
		LimitAmount:     limitAmount,
		SpentAmount:     decimal.Zero,
		RemainingAmount: limitAmount,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	switch windowType {
	case models.WindowTypeDaily:
		day := time.Date(at.UTC().Year(), at.UTC().Month(), at.UTC().Day(), 0, 0, 0, 0, time.UTC)
		window.WindowDate = &day
	case models.WindowTypeMonthly:
		window.WindowMonth = int(at.UTC().Month())
		window.WindowYear = at.UTC().Year()
	}
	return window
}
