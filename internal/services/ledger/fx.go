package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateTable is an in-memory RateProvider seeded with a fixed rate grid. The
// FX provider upstream owns real rates; the table is the configured fallback.
type RateTable struct {
	rates map[string]decimal.Decimal
}

// NewRateTable builds a rate table from "FROM-TO" keyed rates. When nil, the
// default grid is used.
func NewRateTable(rates map[string]string) (*RateTable, error) {
	if rates == nil {
		rates = defaultRates
	}
	table := &RateTable{rates: make(map[string]decimal.Decimal, len(rates))}
	for pair, raw := range rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", pair, err)
		}
		table.rates[pair] = rate
	}
	return table, nil
}

func (t *RateTable) GetRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := t.rates[fromCurrency+"-"+toCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s-%s", ErrRateNotFound, fromCurrency, toCurrency)
	}
	return rate, nil
}

// Convert converts amount between currencies, rounding HALF_UP to 4 decimals.
func Convert(ctx context.Context, provider RateProvider, amount decimal.Decimal, fromCurrency, toCurrency string) (decimal.Decimal, decimal.Decimal, error) {
	if fromCurrency == toCurrency {
		return amount, decimal.NewFromInt(1), nil
	}
	rate, err := provider.GetRate(ctx, fromCurrency, toCurrency)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return amount.Mul(rate).Round(4), rate, nil
}

var defaultRates = map[string]string{
	"USD-EUR": "0.85",
	"USD-GBP": "0.75",
	"USD-JPY": "110.0",
	"EUR-USD": "1.18",
	"EUR-GBP": "0.88",
	"EUR-JPY": "130.0",
	"GBP-USD": "1.33",
	"GBP-EUR": "1.14",
	"GBP-JPY": "145.0",
	"JPY-USD": "0.009",
	"JPY-EUR": "0.0077",
	"JPY-GBP": "0.0069",
}
