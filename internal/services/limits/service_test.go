package limits

import (
	"context"
	"testing"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/models"
	"cardauth/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type MockWindowRepo struct {
	mock.Mock
}

func (m *MockWindowRepo) GetOrCreate(ctx context.Context, cardID int64, windowType, periodKey string, limitAmount decimal.Decimal, at time.Time) (*models.SpendingWindow, error) {
	args := m.Called(ctx, cardID, windowType, periodKey, limitAmount, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpendingWindow), args.Error(1)
}

func (m *MockWindowRepo) Apply(ctx context.Context, tx *gorm.DB, cardID int64, windowType, periodKey string, limitAmount, amount decimal.Decimal, requestID int64, enforceLimit decimal.NullDecimal, at time.Time) (*models.SpendingWindow, error) {
	args := m.Called(ctx, tx, cardID, windowType, periodKey, limitAmount, amount, requestID, enforceLimit, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpendingWindow), args.Error(1)
}

func (m *MockWindowRepo) Get(ctx context.Context, cardID int64, windowType, periodKey string) (*models.SpendingWindow, error) {
	args := m.Called(ctx, cardID, windowType, periodKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpendingWindow), args.Error(1)
}

var testClock = func() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func testConfig() config.AuthorizationConfig {
	return config.AuthorizationConfig{
		Defaults: config.DefaultLimits{
			TransactionLimit: decimal.RequireFromString("2000.00"),
			DailyLimit:       decimal.RequireFromString("5000.00"),
			MonthlyLimit:     decimal.RequireFromString("20000.00"),
			AtmDailyLimit:    decimal.RequireFromString("1000.00"),
			ContactlessLimit: decimal.RequireFromString("100.00"),
			OnlineLimit:      decimal.RequireFromString("3000.00"),
		},
		ChannelMultipliers: config.ChannelMultipliers{
			ATM:       decimal.RequireFromString("0.5"),
			ECommerce: decimal.RequireFromString("0.75"),
			POS:       decimal.RequireFromString("1.0"),
		},
	}
}

func window(windowType string, limit, spent string) *models.SpendingWindow {
	l := decimal.RequireFromString(limit)
	s := decimal.RequireFromString(spent)
	return &models.SpendingWindow{
		WindowType:      windowType,
		LimitAmount:     l,
		SpentAmount:     s,
		RemainingAmount: l.Sub(s),
	}
}

func setupWindows(repo *MockWindowRepo, dailySpent, monthlySpent string) {
	repo.On("GetOrCreate", mock.Anything, int64(555666), models.WindowTypeDaily, "2025-06-15", mock.Anything, mock.Anything).
		Return(window(models.WindowTypeDaily, "5000.00", dailySpent), nil)
	repo.On("GetOrCreate", mock.Anything, int64(555666), models.WindowTypeMonthly, "2025-06", mock.Anything, mock.Anything).
		Return(window(models.WindowTypeMonthly, "20000.00", monthlySpent), nil)
}

func limitsRequest(channel, amount string) *models.AuthorizationRequest {
	return &models.AuthorizationRequest{
		RequestID: 100000000001,
		Channel:   channel,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
	}
}

func limitsCard() *models.CardDetails {
	return &models.CardDetails{CardID: 555666, ProductCode: "GOLD_REWARDS"}
}

func TestValidateLimits(t *testing.T) {
	tests := []struct {
		name         string
		channel      string
		amount       string
		dailySpent   string
		monthlySpent string
		wantErr      error
	}{
		{"within all limits", models.ChannelPOS, "125.50", "0", "0", nil},
		{"amount equal to transaction limit approves", models.ChannelPOS, "2000.00", "0", "0", nil},
		{"one minor unit over transaction limit declines", models.ChannelPOS, "2000.0001", "0", "0", ErrExceedsTransactionLimit},
		{"atm channel halves the transaction limit", models.ChannelATM, "1000.0001", "0", "0", ErrExceedsTransactionLimit},
		{"atm cap applies", models.ChannelATM, "1000.00", "0", "0", nil},
		{"contactless over cap", models.ChannelContactless, "100.01", "0", "0", ErrExceedsTransactionLimit},
		{"contactless at cap", models.ChannelContactless, "100.00", "0", "0", nil},
		{"ecommerce over channel-adjusted transaction limit", models.ChannelECommerce, "1500.01", "0", "0", ErrExceedsTransactionLimit},
		{"daily limit exact boundary approves", models.ChannelPOS, "1000.00", "4000.00", "0", nil},
		{"daily limit crossed declines", models.ChannelPOS, "1000.0001", "4000.00", "0", ErrExceedsDailyLimit},
		{"monthly limit crossed declines", models.ChannelPOS, "500.00", "0", "19600.00", ErrExceedsMonthlyLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWindowRepo)
			setupWindows(repo, tt.dailySpent, tt.monthlySpent)
			svc := NewServiceWithClock(repo, testConfig(), testClock)

			snapshot, err := svc.ValidateLimits(context.Background(), limitsRequest(tt.channel, tt.amount), limitsCard())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, snapshot)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, snapshot)
			}
		})
	}
}

func TestValidateLimits_CardOverrideWins(t *testing.T) {
	repo := new(MockWindowRepo)
	repo.On("GetOrCreate", mock.Anything, int64(555666), models.WindowTypeDaily, "2025-06-15", decimal.RequireFromString("8000.00"), mock.Anything).
		Return(window(models.WindowTypeDaily, "8000.00", "0"), nil)
	repo.On("GetOrCreate", mock.Anything, int64(555666), models.WindowTypeMonthly, "2025-06", mock.Anything, mock.Anything).
		Return(window(models.WindowTypeMonthly, "20000.00", "0"), nil)
	svc := NewServiceWithClock(repo, testConfig(), testClock)

	cardDetails := limitsCard()
	cardDetails.CustomLimits = &models.CardLimits{
		TransactionLimit: decimal.NewNullDecimal(decimal.RequireFromString("3000.00")),
		DailyLimit:       decimal.NewNullDecimal(decimal.RequireFromString("8000.00")),
		Active:           true,
	}

	snapshot, err := svc.ValidateLimits(context.Background(), limitsRequest(models.ChannelPOS, "2500.00"), cardDetails)
	assert.NoError(t, err)
	assert.True(t, snapshot.SingleTransactionLimit.Equal(decimal.RequireFromString("3000.00")))

	repo.AssertExpectations(t)
}

func TestValidateLimits_ExpiredOverrideIgnored(t *testing.T) {
	repo := new(MockWindowRepo)
	setupWindows(repo, "0", "0")
	svc := NewServiceWithClock(repo, testConfig(), testClock)

	expired := testClock().Add(-time.Hour)
	cardDetails := limitsCard()
	cardDetails.CustomLimits = &models.CardLimits{
		TransactionLimit: decimal.NewNullDecimal(decimal.RequireFromString("9000.00")),
		Active:           true,
		ExpiresAt:        &expired,
	}

	_, err := svc.ValidateLimits(context.Background(), limitsRequest(models.ChannelPOS, "2500.00"), cardDetails)
	assert.ErrorIs(t, err, ErrExceedsTransactionLimit)
}

func TestCommitSpending(t *testing.T) {
	t.Run("applies both windows with enforcement", func(t *testing.T) {
		repo := new(MockWindowRepo)
		amount := decimal.RequireFromString("125.50")
		repo.On("Apply", mock.Anything, mock.Anything, int64(555666), models.WindowTypeDaily, "2025-06-15",
			mock.Anything, amount, int64(42), mock.MatchedBy(func(l decimal.NullDecimal) bool { return l.Valid }), mock.Anything).
			Return(window(models.WindowTypeDaily, "5000.00", "125.50"), nil)
		repo.On("Apply", mock.Anything, mock.Anything, int64(555666), models.WindowTypeMonthly, "2025-06",
			mock.Anything, amount, int64(42), mock.MatchedBy(func(l decimal.NullDecimal) bool { return l.Valid }), mock.Anything).
			Return(window(models.WindowTypeMonthly, "20000.00", "125.50"), nil)
		svc := NewServiceWithClock(repo, testConfig(), testClock)

		err := svc.CommitSpending(context.Background(), nil, limitsCard(), amount, models.ChannelPOS, 42)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("maps crossed daily limit", func(t *testing.T) {
		repo := new(MockWindowRepo)
		repo.On("Apply", mock.Anything, mock.Anything, mock.Anything, models.WindowTypeDaily,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, repositories.ErrLimitExceeded)
		svc := NewServiceWithClock(repo, testConfig(), testClock)

		err := svc.CommitSpending(context.Background(), nil, limitsCard(), decimal.RequireFromString("10.00"), models.ChannelPOS, 42)
		assert.ErrorIs(t, err, ErrExceedsDailyLimit)
	})
}

func TestReverseSpending(t *testing.T) {
	repo := new(MockWindowRepo)
	amount := decimal.RequireFromString("125.50")
	repo.On("Apply", mock.Anything, mock.Anything, int64(555666), models.WindowTypeDaily, "2025-06-15",
		mock.Anything, amount.Neg(), int64(0), decimal.NullDecimal{}, mock.Anything).
		Return(window(models.WindowTypeDaily, "5000.00", "0"), nil)
	repo.On("Apply", mock.Anything, mock.Anything, int64(555666), models.WindowTypeMonthly, "2025-06",
		mock.Anything, amount.Neg(), int64(0), decimal.NullDecimal{}, mock.Anything).
		Return(window(models.WindowTypeMonthly, "20000.00", "0"), nil)
	svc := NewServiceWithClock(repo, testConfig(), testClock)

	err := svc.ReverseSpending(context.Background(), nil, limitsCard(), amount, models.ChannelPOS)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
