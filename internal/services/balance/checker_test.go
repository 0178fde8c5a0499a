package balance

import (
	"context"
	"testing"

	"cardauth/internal/models"
	"cardauth/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetBalance(ctx context.Context, accountID int64, accountSpaceID *int64) (*models.BalanceSnapshot, error) {
	args := m.Called(ctx, accountID, accountSpaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSnapshot), args.Error(1)
}

func (m *MockLedger) ReserveFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency string) (*models.BalanceSnapshot, error) {
	args := m.Called(ctx, accountID, accountSpaceID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSnapshot), args.Error(1)
}

func (m *MockLedger) ReleaseFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) (*models.BalanceSnapshot, error) {
	args := m.Called(ctx, accountID, accountSpaceID, amount, currency, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSnapshot), args.Error(1)
}

func (m *MockLedger) PostCapture(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) error {
	args := m.Called(ctx, accountID, accountSpaceID, amount, currency, reference)
	return args.Error(0)
}

func usdBalance(available string) *models.BalanceSnapshot {
	amount := decimal.RequireFromString(available)
	return &models.BalanceSnapshot{
		AccountID:              111222,
		Currency:               "USD",
		AvailableBalanceBefore: amount,
		LedgerBalance:          amount,
		TotalHoldAmount:        decimal.Zero,
	}
}

func checkerRequest(amount, currency string) *models.AuthorizationRequest {
	return &models.AuthorizationRequest{
		RequestID: 100000000001,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
	}
}

func checkerCard() *models.CardDetails {
	return &models.CardDetails{CardID: 555666, AccountID: 111222}
}

func newChecker(t *testing.T, mockLedger *MockLedger) Service {
	t.Helper()
	rates, err := ledger.NewRateTable(nil)
	assert.NoError(t, err)
	return NewService(mockLedger, rates)
}

func TestCheckSufficientFunds(t *testing.T) {
	t.Run("sufficient funds same currency", func(t *testing.T) {
		mockLedger := new(MockLedger)
		mockLedger.On("GetBalance", mock.Anything, int64(111222), (*int64)(nil)).Return(usdBalance("5000.00"), nil)
		svc := newChecker(t, mockLedger)

		snapshot, err := svc.CheckSufficientFunds(context.Background(), checkerRequest("125.50", "USD"), checkerCard())

		assert.NoError(t, err)
		assert.True(t, snapshot.AvailableBalanceBefore.Equal(decimal.RequireFromString("5000.00")))
		assert.True(t, snapshot.AvailableBalanceAfter.Equal(decimal.RequireFromString("4874.50")))
		assert.False(t, snapshot.ExchangeRate.Valid)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mockLedger := new(MockLedger)
		mockLedger.On("GetBalance", mock.Anything, int64(111222), (*int64)(nil)).Return(usdBalance("100.00"), nil)
		svc := newChecker(t, mockLedger)

		_, err := svc.CheckSufficientFunds(context.Background(), checkerRequest("125.50", "USD"), checkerCard())
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	})

	t.Run("amount equal to available balance approves", func(t *testing.T) {
		mockLedger := new(MockLedger)
		mockLedger.On("GetBalance", mock.Anything, int64(111222), (*int64)(nil)).Return(usdBalance("125.50"), nil)
		svc := newChecker(t, mockLedger)

		snapshot, err := svc.CheckSufficientFunds(context.Background(), checkerRequest("125.50", "USD"), checkerCard())
		assert.NoError(t, err)
		assert.True(t, snapshot.AvailableBalanceAfter.IsZero())
	})

	t.Run("converts foreign currency with half up rounding", func(t *testing.T) {
		mockLedger := new(MockLedger)
		mockLedger.On("GetBalance", mock.Anything, int64(111222), (*int64)(nil)).Return(usdBalance("5000.00"), nil)
		svc := newChecker(t, mockLedger)

		// 100.00 EUR * 1.18 = 118.00 USD
		snapshot, err := svc.CheckSufficientFunds(context.Background(), checkerRequest("100.00", "EUR"), checkerCard())

		assert.NoError(t, err)
		assert.True(t, snapshot.ExchangeRate.Valid)
		assert.True(t, snapshot.ExchangeRate.Decimal.Equal(decimal.RequireFromString("1.18")))
		assert.Equal(t, "EUR", snapshot.OriginalCurrency)
		assert.True(t, snapshot.OriginalAmount.Decimal.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, snapshot.AvailableBalanceAfter.Equal(decimal.RequireFromString("4882.00")))
	})

	t.Run("unknown rate fails", func(t *testing.T) {
		mockLedger := new(MockLedger)
		mockLedger.On("GetBalance", mock.Anything, int64(111222), (*int64)(nil)).Return(usdBalance("5000.00"), nil)
		svc := newChecker(t, mockLedger)

		_, err := svc.CheckSufficientFunds(context.Background(), checkerRequest("100.00", "CHF"), checkerCard())
		assert.ErrorIs(t, err, ledger.ErrRateNotFound)
	})
}

func TestConvertRounding(t *testing.T) {
	rates, err := ledger.NewRateTable(map[string]string{"USD-JPY": "110.123456"})
	assert.NoError(t, err)

	converted, rate, err := ledger.Convert(context.Background(), rates,
		decimal.RequireFromString("1.0001"), "USD", "JPY")
	assert.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("110.123456")))
	// 1.0001 * 110.123456 = 110.1344683456 -> 110.1345 at 4 decimals HALF_UP
	assert.True(t, converted.Equal(decimal.RequireFromString("110.1345")))
}
