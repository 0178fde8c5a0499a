package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires the HTTP surface.
func SetupRoutes(app *fiber.App, authHandler *AuthorizationHandler, holdHandler *HoldHandler) {
	app.Get("/health", HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	authorizations := api.Group("/authorizations")
	authorizations.Post("/", authHandler.Authorize)
	authorizations.Get("/request/:requestId", authHandler.GetDecisionByRequest)
	authorizations.Get("/:decisionId", authHandler.GetDecision)
	authorizations.Post("/:requestId/reverse", authHandler.Reverse)
	authorizations.Post("/:requestId/challenge-complete", authHandler.CompleteChallenge)

	holds := api.Group("/holds")
	holds.Get("/", holdHandler.ListHolds)
	holds.Post("/process-expired", holdHandler.ProcessExpired)
	holds.Get("/request/:requestId", holdHandler.GetHoldByRequest)
	holds.Get("/:holdId", holdHandler.GetHold)
	holds.Post("/:holdId/capture", holdHandler.Capture)
	holds.Post("/:holdId/release", holdHandler.Release)
}
