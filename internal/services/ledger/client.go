package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cardauth/internal/config"
	"cardauth/internal/models"
	"cardauth/internal/telemetry"
	"cardauth/internal/upstream"

	"github.com/shopspring/decimal"
)

// ledgerClient talks to the ledger service over HTTP.
type ledgerClient struct {
	client *upstream.Client
}

// NewClient creates a Ledger backed by the configured ledger endpoint.
func NewClient(cfg config.ExternalService, metrics telemetry.MetricsCollector) Ledger {
	return &ledgerClient{
		client: upstream.NewClient("ledger", cfg, metrics),
	}
}

type fundsRequest struct {
	AccountSpaceID *int64          `json:"account_space_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Reference      string          `json:"reference,omitempty"`
}

func (c *ledgerClient) GetBalance(ctx context.Context, accountID int64, accountSpaceID *int64) (*models.BalanceSnapshot, error) {
	path := fmt.Sprintf("/api/v1/accounts/%d/balance", accountID)
	if accountSpaceID != nil {
		path = fmt.Sprintf("/api/v1/accounts/%d/spaces/%d/balance", accountID, *accountSpaceID)
	}

	var snapshot models.BalanceSnapshot
	if err := c.client.DoJSON(ctx, http.MethodGet, path, nil, &snapshot); err != nil {
		return nil, mapLedgerError(err)
	}
	return &snapshot, nil
}

func (c *ledgerClient) ReserveFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency string) (*models.BalanceSnapshot, error) {
	var snapshot models.BalanceSnapshot
	body := fundsRequest{AccountSpaceID: accountSpaceID, Amount: amount, Currency: currency}
	path := fmt.Sprintf("/api/v1/accounts/%d/reserve", accountID)
	if err := c.client.DoJSON(ctx, http.MethodPost, path, body, &snapshot); err != nil {
		return nil, mapLedgerError(err)
	}
	return &snapshot, nil
}

func (c *ledgerClient) ReleaseFunds(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) (*models.BalanceSnapshot, error) {
	var snapshot models.BalanceSnapshot
	body := fundsRequest{AccountSpaceID: accountSpaceID, Amount: amount, Currency: currency, Reference: reference}
	path := fmt.Sprintf("/api/v1/accounts/%d/release", accountID)
	if err := c.client.DoJSON(ctx, http.MethodPost, path, body, &snapshot); err != nil {
		return nil, mapLedgerError(err)
	}
	return &snapshot, nil
}

func (c *ledgerClient) PostCapture(ctx context.Context, accountID int64, accountSpaceID *int64, amount decimal.Decimal, currency, reference string) error {
	body := fundsRequest{AccountSpaceID: accountSpaceID, Amount: amount, Currency: currency, Reference: reference}
	path := fmt.Sprintf("/api/v1/accounts/%d/capture", accountID)
	if err := c.client.DoJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return mapLedgerError(err)
	}
	return nil
}

// mapLedgerError translates ledger HTTP failures into the package error set.
func mapLedgerError(err error) error {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusUnprocessableEntity, http.StatusPaymentRequired:
			return ErrInsufficientFunds
		case http.StatusNotFound:
			return ErrAccountNotFound
		case http.StatusGone:
			return ErrAccountClosed
		}
	}
	return err
}
