package card

import (
	"context"
	"fmt"
	"time"

	"cardauth/internal/models"
	"cardauth/internal/repositories/cache"
)

const cardCacheTTL = 5 * time.Minute

type service struct {
	directory Directory
	cache     *cache.CacheService
	clock     func() time.Time
}

// NewService creates a new card validation service.
func NewService(directory Directory, cacheService *cache.CacheService) Service {
	if directory == nil {
		panic("directory is required")
	}
	return &service{
		directory: directory,
		cache:     cacheService,
		clock:     time.Now,
	}
}

// NewServiceWithClock is used by tests to pin the expiry check instant.
func NewServiceWithClock(directory Directory, cacheService *cache.CacheService, clock func() time.Time) Service {
	svc := NewService(directory, cacheService).(*service)
	svc.clock = clock
	return svc
}

func (s *service) ValidateCard(ctx context.Context, request *models.AuthorizationRequest) (*models.CardDetails, error) {
	details, err := s.resolve(ctx, request)
	if err != nil {
		return nil, err
	}

	switch details.Status {
	case models.CardStatusActive:
		// ok
	case models.CardStatusExpired:
		return nil, ErrCardExpired
	case models.CardStatusLost, models.CardStatusStolen:
		return nil, ErrCardLostStolen
	default:
		return nil, fmt.Errorf("%w: current status %s", ErrCardNotActive, details.Status)
	}

	if !details.ExpiryDate.After(s.clock()) {
		return nil, ErrCardExpired
	}

	return details, nil
}

func (s *service) GetCardDetails(ctx context.Context, panHash string) (*models.CardDetails, error) {
	if panHash == "" {
		return nil, ErrInvalidInput
	}
	return s.lookup(ctx, "pan:"+panHash, func() (*models.CardDetails, error) {
		return s.directory.GetCardByPanHash(ctx, panHash)
	})
}

// resolve fetches card details by PAN hash when present, falling back to the
// token.
func (s *service) resolve(ctx context.Context, request *models.AuthorizationRequest) (*models.CardDetails, error) {
	switch {
	case request.PanHash != "":
		return s.lookup(ctx, "pan:"+request.PanHash, func() (*models.CardDetails, error) {
			return s.directory.GetCardByPanHash(ctx, request.PanHash)
		})
	case request.Token != "":
		return s.lookup(ctx, "token:"+request.Token, func() (*models.CardDetails, error) {
			return s.directory.GetCardByToken(ctx, request.Token)
		})
	default:
		return nil, ErrInvalidInput
	}
}

func (s *service) lookup(ctx context.Context, cacheKey string, fetch func() (*models.CardDetails, error)) (*models.CardDetails, error) {
	// Try cache first
	if s.cache != nil {
		if details, err := s.cache.GetCardDetails(ctx, cacheKey); err == nil {
			return details, nil
		}
	}

	details, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.CacheCardDetails(ctx, cacheKey, details, cardCacheTTL)
	}
	return details, nil
}
