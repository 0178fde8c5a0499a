// Package limits evaluates candidate amounts against transaction, daily,
// monthly and channel limits, and owns the spending-window counters.
package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/models"
	"cardauth/internal/repositories"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service validates limits and commits/reverses spending counters.
// Validation never commits: counters move only after the hold is created,
// inside the decision transaction.
type Service interface {
	ValidateLimits(ctx context.Context, request *models.AuthorizationRequest, card *models.CardDetails) (*models.LimitSnapshot, error)
	GetLimitSnapshot(ctx context.Context, card *models.CardDetails) (*models.LimitSnapshot, error)
	// CommitSpending applies the approved amount to the card's daily and
	// monthly windows inside tx. A repeat of the request last applied to a
	// window is a no-op there; an earlier request is counted again. Fails with
	// the package's Exceeds errors if the addition would cross a limit.
	CommitSpending(ctx context.Context, tx *gorm.DB, card *models.CardDetails, amount decimal.Decimal, channel string, requestID int64) error
	// ReverseSpending applies the inverse after a reversal, clamping at zero.
	ReverseSpending(ctx context.Context, tx *gorm.DB, card *models.CardDetails, amount decimal.Decimal, channel string) error
}

type service struct {
	windows repositories.SpendingWindowRepository
	cfg     config.AuthorizationConfig
	clock   func() time.Time
}

// NewService creates a new limit evaluation service.
func NewService(windows repositories.SpendingWindowRepository, cfg config.AuthorizationConfig) Service {
	if windows == nil {
		panic("spending window repository is required")
	}
	return &service{windows: windows, cfg: cfg, clock: time.Now}
}

// NewServiceWithClock is used by tests to pin period rollover.
func NewServiceWithClock(windows repositories.SpendingWindowRepository, cfg config.AuthorizationConfig, clock func() time.Time) Service {
	svc := NewService(windows, cfg).(*service)
	svc.clock = clock
	return svc
}

func (s *service) ValidateLimits(ctx context.Context, request *models.AuthorizationRequest, card *models.CardDetails) (*models.LimitSnapshot, error) {
	snapshot, err := s.GetLimitSnapshot(ctx, card)
	if err != nil {
		return nil, err
	}

	amount := request.Amount
	txnLimit := s.channelAdjusted(snapshot.SingleTransactionLimit, request.Channel)

	// 1. Single transaction limit, channel adjusted.
	if amount.GreaterThan(txnLimit) {
		return nil, fmt.Errorf("%w: %s over %s", ErrExceedsTransactionLimit,
			amount.StringFixed(4), txnLimit.StringFixed(4))
	}

	// 2. Channel specific caps share the transaction-limit reason code; the
	// message carries the channel.
	switch request.Channel {
	case models.ChannelATM:
		if amount.GreaterThan(snapshot.AtmDailyLimit) {
			return nil, fmt.Errorf("%w: exceeds ATM daily limit", ErrExceedsTransactionLimit)
		}
	case models.ChannelContactless:
		if amount.GreaterThan(snapshot.ContactlessLimit) {
			return nil, fmt.Errorf("%w: exceeds contactless limit", ErrExceedsTransactionLimit)
		}
	case models.ChannelECommerce:
		if amount.GreaterThan(snapshot.OnlineLimit) {
			return nil, fmt.Errorf("%w: exceeds online limit", ErrExceedsTransactionLimit)
		}
	}

	// 3. Daily window.
	dailyLimit := s.channelAdjusted(snapshot.DailyLimit, request.Channel)
	if snapshot.DailySpent.Add(amount).GreaterThan(dailyLimit) {
		return nil, ErrExceedsDailyLimit
	}

	// 4. Monthly window.
	if snapshot.MonthlySpent.Add(amount).GreaterThan(snapshot.MonthlyLimit) {
		return nil, ErrExceedsMonthlyLimit
	}

	return snapshot, nil
}

func (s *service) GetLimitSnapshot(ctx context.Context, card *models.CardDetails) (*models.LimitSnapshot, error) {
	now := s.clock().UTC()
	effective := s.effectiveLimits(card)

	daily, err := s.windows.GetOrCreate(ctx, card.CardID, models.WindowTypeDaily,
		models.DailyPeriodKey(now), effective.DailyLimit, now)
	if err != nil {
		return nil, err
	}
	monthly, err := s.windows.GetOrCreate(ctx, card.CardID, models.WindowTypeMonthly,
		models.MonthlyPeriodKey(now), effective.MonthlyLimit, now)
	if err != nil {
		return nil, err
	}

	return &models.LimitSnapshot{
		DailyLimit:             daily.LimitAmount,
		DailySpent:             daily.SpentAmount,
		DailyRemaining:         daily.RemainingAmount,
		MonthlyLimit:           monthly.LimitAmount,
		MonthlySpent:           monthly.SpentAmount,
		MonthlyRemaining:       monthly.RemainingAmount,
		SingleTransactionLimit: effective.TransactionLimit,
		AtmDailyLimit:          effective.AtmDailyLimit,
		ContactlessLimit:       effective.ContactlessLimit,
		OnlineLimit:            effective.OnlineLimit,
		SnapshotDate:           now,
	}, nil
}

func (s *service) CommitSpending(ctx context.Context, tx *gorm.DB, card *models.CardDetails, amount decimal.Decimal, channel string, requestID int64) error {
	now := s.clock().UTC()
	effective := s.effectiveLimits(card)

	dailyEnforce := decimal.NewNullDecimal(s.channelAdjusted(effective.DailyLimit, channel))
	_, err := s.windows.Apply(ctx, tx, card.CardID, models.WindowTypeDaily,
		models.DailyPeriodKey(now), effective.DailyLimit, amount, requestID, dailyEnforce, now)
	if err != nil {
		if errors.Is(err, repositories.ErrLimitExceeded) {
			return ErrExceedsDailyLimit
		}
		return err
	}

	monthlyEnforce := decimal.NewNullDecimal(effective.MonthlyLimit)
	_, err = s.windows.Apply(ctx, tx, card.CardID, models.WindowTypeMonthly,
		models.MonthlyPeriodKey(now), effective.MonthlyLimit, amount, requestID, monthlyEnforce, now)
	if err != nil {
		if errors.Is(err, repositories.ErrLimitExceeded) {
			return ErrExceedsMonthlyLimit
		}
		return err
	}
	return nil
}

func (s *service) ReverseSpending(ctx context.Context, tx *gorm.DB, card *models.CardDetails, amount decimal.Decimal, channel string) error {
	now := s.clock().UTC()
	effective := s.effectiveLimits(card)
	noEnforce := decimal.NullDecimal{}

	_, err := s.windows.Apply(ctx, tx, card.CardID, models.WindowTypeDaily,
		models.DailyPeriodKey(now), effective.DailyLimit, amount.Neg(), 0, noEnforce, now)
	if err != nil {
		return err
	}
	_, err = s.windows.Apply(ctx, tx, card.CardID, models.WindowTypeMonthly,
		models.MonthlyPeriodKey(now), effective.MonthlyLimit, amount.Neg(), 0, noEnforce, now)
	return err
}

// effectiveLimits resolves the limit set for a card: an active, non-expired
// per-card override wins, then the product-code limits, then the configured
// defaults.
func (s *service) effectiveLimits(card *models.CardDetails) config.DefaultLimits {
	limits := s.cfg.Defaults
	if card == nil {
		return limits
	}
	if product, ok := s.cfg.ProductLimits[card.ProductCode]; ok {
		limits = mergeLimits(limits, product)
	}
	if card.CustomLimits.Effective(s.clock()) {
		override := card.CustomLimits
		limits = config.DefaultLimits{
			TransactionLimit: pick(override.TransactionLimit, limits.TransactionLimit),
			DailyLimit:       pick(override.DailyLimit, limits.DailyLimit),
			MonthlyLimit:     pick(override.MonthlyLimit, limits.MonthlyLimit),
			AtmDailyLimit:    pick(override.AtmDailyLimit, limits.AtmDailyLimit),
			ContactlessLimit: pick(override.ContactlessLimit, limits.ContactlessLimit),
			OnlineLimit:      pick(override.OnlineLimit, limits.OnlineLimit),
		}
	}
	return limits
}

func (s *service) channelAdjusted(limit decimal.Decimal, channel string) decimal.Decimal {
	switch channel {
	case models.ChannelATM:
		return limit.Mul(s.cfg.ChannelMultipliers.ATM)
	case models.ChannelECommerce:
		return limit.Mul(s.cfg.ChannelMultipliers.ECommerce)
	case models.ChannelPOS:
		if !s.cfg.ChannelMultipliers.POS.IsZero() {
			return limit.Mul(s.cfg.ChannelMultipliers.POS)
		}
	}
	return limit
}

func mergeLimits(base, over config.DefaultLimits) config.DefaultLimits {
	out := base
	if !over.TransactionLimit.IsZero() {
		out.TransactionLimit = over.TransactionLimit
	}
	if !over.DailyLimit.IsZero() {
		out.DailyLimit = over.DailyLimit
	}
	if !over.MonthlyLimit.IsZero() {
		out.MonthlyLimit = over.MonthlyLimit
	}
	if !over.AtmDailyLimit.IsZero() {
		out.AtmDailyLimit = over.AtmDailyLimit
	}
	if !over.ContactlessLimit.IsZero() {
		out.ContactlessLimit = over.ContactlessLimit
	}
	if !over.OnlineLimit.IsZero() {
		out.OnlineLimit = over.OnlineLimit
	}
	return out
}

func pick(override decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if override.Valid && !override.Decimal.IsZero() {
		return override.Decimal
	}
	return fallback
}
