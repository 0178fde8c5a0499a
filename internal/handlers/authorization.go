package handlers

import (
	"errors"
	"log"
	"time"

	"cardauth/internal/models"
	"cardauth/internal/services/authorization"
	"cardauth/internal/upstream"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AuthorizationHandler exposes the authorization pipeline over HTTP.
type AuthorizationHandler struct {
	service  authorization.Service
	validate *validator.Validate
}

// NewAuthorizationHandler creates a new authorization handler.
func NewAuthorizationHandler(service authorization.Service) *AuthorizationHandler {
	if service == nil {
		panic("authorization service is required")
	}
	return &AuthorizationHandler{
		service:  service,
		validate: validator.New(),
	}
}

type authorizationRequestInput struct {
	RequestID       int64           `json:"request_id"`
	MaskedPan       string          `json:"masked_pan"`
	PanHash         string          `json:"pan_hash"`
	Token           string          `json:"token"`
	ExpiryDate      string          `json:"expiry_date"`
	MerchantID      string          `json:"merchant_id"`
	MerchantName    string          `json:"merchant_name"`
	Channel         string          `json:"channel" validate:"required"`
	MCC             string          `json:"mcc"`
	CountryCode     string          `json:"country_code"`
	TransactionType string          `json:"transaction_type" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	Timestamp       time.Time       `json:"timestamp"`
	Cryptogram      string          `json:"cryptogram"`
	PinData         string          `json:"pin_data"`
	ThreeDsData     string          `json:"three_ds_data"`
}

// Authorize handles POST /api/v1/authorizations.
func (h *AuthorizationHandler) Authorize(c *fiber.Ctx) error {
	var input authorizationRequestInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	request := &models.AuthorizationRequest{
		RequestID:       input.RequestID,
		MaskedPan:       input.MaskedPan,
		PanHash:         input.PanHash,
		Token:           input.Token,
		ExpiryDate:      input.ExpiryDate,
		MerchantID:      input.MerchantID,
		MerchantName:    input.MerchantName,
		Channel:         input.Channel,
		MCC:             input.MCC,
		CountryCode:     input.CountryCode,
		TransactionType: input.TransactionType,
		Amount:          input.Amount,
		Currency:        input.Currency,
		Timestamp:       input.Timestamp,
		Cryptogram:      input.Cryptogram,
		PinData:         input.PinData,
		ThreeDsData:     input.ThreeDsData,
	}

	idempotencyKey := c.Get("Idempotency-Key")

	decision, err := h.service.Authorize(c.Context(), request, idempotencyKey)
	if err != nil {
		return authorizationError(c, err)
	}

	return c.Status(decisionStatus(decision)).JSON(decision)
}

// GetDecision handles GET /api/v1/authorizations/:decisionId.
func (h *AuthorizationHandler) GetDecision(c *fiber.Ctx) error {
	decisionID, err := c.ParamsInt("decisionId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid decision ID"})
	}

	decision, err := h.service.GetDecisionByID(c.Context(), int64(decisionID))
	if err != nil {
		return authorizationError(c, err)
	}
	return c.JSON(decision)
}

// GetDecisionByRequest handles GET /api/v1/authorizations/request/:requestId.
func (h *AuthorizationHandler) GetDecisionByRequest(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("requestId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	decision, err := h.service.GetDecisionByRequestID(c.Context(), int64(requestID))
	if err != nil {
		return authorizationError(c, err)
	}
	return c.JSON(decision)
}

// Reverse handles POST /api/v1/authorizations/:requestId/reverse.
func (h *AuthorizationHandler) Reverse(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("requestId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	decision, err := h.service.ReverseAuthorization(c.Context(), int64(requestID), input.Reason)
	if err != nil {
		return authorizationError(c, err)
	}
	return c.JSON(decision)
}

// CompleteChallenge handles POST /api/v1/authorizations/:requestId/challenge-complete.
func (h *AuthorizationHandler) CompleteChallenge(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("requestId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	var input struct {
		ChallengeResult string `json:"challengeResult"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	decision, err := h.service.CompleteChallenge(c.Context(), int64(requestID), input.ChallengeResult)
	if err != nil {
		return authorizationError(c, err)
	}
	return c.Status(decisionStatus(decision)).JSON(decision)
}

// decisionStatus maps the decision outcome to the HTTP status.
func decisionStatus(decision *models.AuthorizationDecision) int {
	switch decision.Decision {
	case models.DecisionApproved, models.DecisionPartial:
		return fiber.StatusOK
	case models.DecisionChallenge:
		return fiber.StatusAccepted
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func authorizationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authorization.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, authorization.ErrDecisionNotFound),
		errors.Is(err, authorization.ErrRequestNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, authorization.ErrNotReversible),
		errors.Is(err, authorization.ErrNotInChallenge),
		errors.Is(err, authorization.ErrChallengeExpired):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, upstream.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":       "upstream service unavailable",
			"reason_code": string(models.ReasonIssuerUnavailable),
		})
	default:
		log.Printf("Authorization error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":       "internal error",
			"reason_code": string(models.ReasonSystemError),
		})
	}
}
