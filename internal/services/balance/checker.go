// Package balance checks sufficient funds against the ledger, converting the
// requested amount into the account currency when they differ.
package balance

import (
	"context"
	"time"

	"cardauth/internal/models"
	"cardauth/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// Service is the sufficient-funds check of the authorization pipeline.
type Service interface {
	// CheckSufficientFunds fails with ledger.ErrInsufficientFunds when the
	// (converted) amount exceeds the available balance; otherwise it returns
	// a snapshot with the projected balance after reservation.
	CheckSufficientFunds(ctx context.Context, request *models.AuthorizationRequest, card *models.CardDetails) (*models.BalanceSnapshot, error)
}

type service struct {
	ledger ledger.Ledger
	rates  ledger.RateProvider
	clock  func() time.Time
}

// NewService creates a new balance checking service.
func NewService(ledgerClient ledger.Ledger, rates ledger.RateProvider) Service {
	if ledgerClient == nil {
		panic("ledger client is required")
	}
	if rates == nil {
		panic("rate provider is required")
	}
	return &service{ledger: ledgerClient, rates: rates, clock: time.Now}
}

func (s *service) CheckSufficientFunds(ctx context.Context, request *models.AuthorizationRequest, card *models.CardDetails) (*models.BalanceSnapshot, error) {
	current, err := s.ledger.GetBalance(ctx, card.AccountID, card.AccountSpaceID)
	if err != nil {
		return nil, err
	}

	amount := request.Amount
	snapshot := &models.BalanceSnapshot{
		AccountID:              card.AccountID,
		AccountSpaceID:         card.AccountSpaceID,
		Currency:               current.Currency,
		AvailableBalanceBefore: current.AvailableBalanceBefore,
		LedgerBalance:          current.LedgerBalance,
		TotalHoldAmount:        current.TotalHoldAmount,
		Timestamp:              s.clock(),
	}

	if request.Currency != current.Currency {
		converted, rate, err := ledger.Convert(ctx, s.rates, amount, request.Currency, current.Currency)
		if err != nil {
			return nil, err
		}
		snapshot.ExchangeRate = decimal.NewNullDecimal(rate)
		snapshot.OriginalCurrency = request.Currency
		snapshot.OriginalAmount = decimal.NewNullDecimal(amount)
		amount = converted
	}

	if amount.GreaterThan(current.AvailableBalanceBefore) {
		return nil, ledger.ErrInsufficientFunds
	}

	snapshot.AvailableBalanceAfter = current.AvailableBalanceBefore.Sub(amount)
	snapshot.TotalHoldAmount = current.TotalHoldAmount.Add(amount)
	return snapshot, nil
}
