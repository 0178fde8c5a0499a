package card

import (
	"context"

	"cardauth/internal/models"
)

// Directory is the card directory contract. Implementations resolve a card
// by PAN hash or token and return its attributes.
type Directory interface {
	GetCardByPanHash(ctx context.Context, panHash string) (*models.CardDetails, error)
	GetCardByToken(ctx context.Context, token string) (*models.CardDetails, error)
}

// Service validates cards against the directory.
type Service interface {
	// ValidateCard resolves and checks the card behind the request. On
	// success the card details are returned; failures are typed with the
	// package's error set.
	ValidateCard(ctx context.Context, request *models.AuthorizationRequest) (*models.CardDetails, error)
	// GetCardDetails resolves a card by PAN hash without status checks.
	GetCardDetails(ctx context.Context, panHash string) (*models.CardDetails, error)
}
