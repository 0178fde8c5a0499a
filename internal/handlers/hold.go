package handlers

import (
	"errors"
	"log"
	"strconv"

	"cardauth/internal/services/hold"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// HoldHandler exposes hold lookups and lifecycle operations over HTTP.
type HoldHandler struct {
	manager hold.Manager
	sweeper *hold.Sweeper
}

// NewHoldHandler creates a new hold handler.
func NewHoldHandler(manager hold.Manager, sweeper *hold.Sweeper) *HoldHandler {
	if manager == nil {
		panic("hold manager is required")
	}
	return &HoldHandler{manager: manager, sweeper: sweeper}
}

// GetHold handles GET /api/v1/holds/:holdId.
func (h *HoldHandler) GetHold(c *fiber.Ctx) error {
	holdID, err := c.ParamsInt("holdId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid hold ID"})
	}

	row, err := h.manager.GetByHoldID(c.Context(), int64(holdID))
	if err != nil {
		return holdError(c, err)
	}
	return c.JSON(row)
}

// GetHoldByRequest handles GET /api/v1/holds/request/:requestId.
func (h *HoldHandler) GetHoldByRequest(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("requestId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	row, err := h.manager.GetByRequestID(c.Context(), int64(requestID))
	if err != nil {
		return holdError(c, err)
	}
	return c.JSON(row)
}

// ListHolds handles GET /api/v1/holds?accountId=…&cardId=…&status=….
func (h *HoldHandler) ListHolds(c *fiber.Ctx) error {
	if cardID := c.Query("cardId"); cardID != "" {
		id, err := strconv.ParseInt(cardID, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid card ID"})
		}
		rows, err := h.manager.ListByCardID(c.Context(), id)
		if err != nil {
			return holdError(c, err)
		}
		return c.JSON(fiber.Map{"holds": rows, "total": len(rows)})
	}

	accountID := c.Query("accountId")
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "accountId or cardId is required"})
	}
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	rows, err := h.manager.ListByAccountID(c.Context(), id, c.Query("status"))
	if err != nil {
		return holdError(c, err)
	}
	return c.JSON(fiber.Map{"holds": rows, "total": len(rows)})
}

// Capture handles POST /api/v1/holds/:holdId/capture.
func (h *HoldHandler) Capture(c *fiber.Ctx) error {
	holdID, err := c.ParamsInt("holdId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid hold ID"})
	}

	var input struct {
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
		Reference string          `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !input.Amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be greater than zero"})
	}

	row, err := h.manager.Capture(c.Context(), int64(holdID), input.Amount, input.Reference)
	if err != nil {
		return holdError(c, err)
	}
	return c.JSON(row)
}

// Release handles POST /api/v1/holds/:holdId/release.
func (h *HoldHandler) Release(c *fiber.Ctx) error {
	holdID, err := c.ParamsInt("holdId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid hold ID"})
	}

	var input struct {
		Reason    string `json:"reason"`
		Reference string `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	row, err := h.manager.Release(c.Context(), int64(holdID), input.Reference)
	if err != nil {
		return holdError(c, err)
	}
	return c.JSON(row)
}

// ProcessExpired handles POST /api/v1/holds/process-expired, the manual
// trigger for the expiry sweep.
func (h *HoldHandler) ProcessExpired(c *fiber.Ctx) error {
	if h.sweeper == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "sweeper not configured"})
	}
	processed, failed := h.sweeper.RunOnce(c.Context())
	return c.JSON(fiber.Map{"processed": processed, "failed": failed})
}

func holdError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, hold.ErrHoldNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, hold.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, hold.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("Hold error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
