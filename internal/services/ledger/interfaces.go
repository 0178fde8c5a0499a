package ledger

import (
	"context"

	"cardauth/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger is the ledger service contract: balance snapshots and the reserved
// bucket behind authorization holds.
type Ledger interface {
	// GetBalance returns the current snapshot for an account or sub-account.
	GetBalance(ctx context.Context, accountID int64, accountSpaceID *int64) (*models.BalanceSnapshot, error)
	// ReserveFunds moves amount from available into the reserved bucket.
	// Fails with ErrInsufficientFunds when the available balance is short.
	ReserveFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency string) (*models.BalanceSnapshot, error)
	// ReleaseFunds returns amount from the reserved bucket to available.
	// The reference dedupes the movement: a repeated call with the same
	// reference is a no-op at the ledger.
	ReleaseFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) (*models.BalanceSnapshot, error)
	// PostCapture settles a captured amount out of the reserved bucket.
	// Deduped by reference like ReleaseFunds.
	PostCapture(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) error
}

// RateProvider is the FX contract: the rate between two ISO-4217 codes.
type RateProvider interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error)
}
