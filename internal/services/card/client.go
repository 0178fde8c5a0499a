package card

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"cardauth/internal/config"
	"cardauth/internal/models"
	"cardauth/internal/telemetry"
	"cardauth/internal/upstream"
)

// directoryClient talks to the card directory service over HTTP.
type directoryClient struct {
	client *upstream.Client
}

// NewDirectoryClient creates a Directory backed by the configured card
// service endpoint.
func NewDirectoryClient(cfg config.ExternalService, metrics telemetry.MetricsCollector) Directory {
	return &directoryClient{
		client: upstream.NewClient("card-service", cfg, metrics),
	}
}

func (c *directoryClient) GetCardByPanHash(ctx context.Context, panHash string) (*models.CardDetails, error) {
	return c.get(ctx, "/api/v1/cards/pan-hash/"+url.PathEscape(panHash))
}

func (c *directoryClient) GetCardByToken(ctx context.Context, token string) (*models.CardDetails, error) {
	return c.get(ctx, "/api/v1/cards/token/"+url.PathEscape(token))
}

func (c *directoryClient) get(ctx context.Context, path string) (*models.CardDetails, error) {
	var details models.CardDetails
	if err := c.client.DoJSON(ctx, http.MethodGet, path, nil, &details); err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &details, nil
}
