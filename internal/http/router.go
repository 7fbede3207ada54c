package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/http/handlers"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/models"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	opportunityHandler *handlers.OpportunityHandler,
	applicationHandler *handlers.ApplicationHandler,
	negotiationHandler *handlers.NegotiationHandler,
	bookingHandler *handlers.BookingHandler,
	contractHandler *handlers.ContractHandler,
	paymentHandler *handlers.PaymentHandler,
	webhookHandler *handlers.WebhookHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Gateway callbacks (authenticated by signature, not JWT)
	api.Post("/webhooks/gateway", webhookHandler.HandleGateway)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/verification/sync", userHandler.SyncVerification)
	protected.Get("/me/trust", userHandler.GetTrustScore)
	protected.Get("/me/trust/history", userHandler.GetTrustHistory)

	// Opportunities
	protected.Post("/opportunities", middleware.RequireRole(models.PartyOrganizer), opportunityHandler.Create)
	protected.Get("/opportunities", opportunityHandler.List)
	protected.Get("/opportunities/:id", opportunityHandler.Get)
	protected.Post("/opportunities/:id/close", opportunityHandler.Close)
	protected.Get("/opportunities/:id/applications", opportunityHandler.Applications)

	// Applications
	protected.Post("/applications", middleware.RequireRole(models.PartyArtist), applicationHandler.Submit)
	protected.Get("/applications/my", applicationHandler.ListMine)
	protected.Get("/applications/:id", applicationHandler.Get)
	protected.Post("/applications/:id/shortlist", applicationHandler.Shortlist)
	protected.Post("/applications/:id/decline", applicationHandler.Decline)
	protected.Post("/applications/:id/accept", applicationHandler.Accept)
	protected.Post("/applications/:id/counter", applicationHandler.Counter)
	protected.Post("/applications/:id/withdraw", applicationHandler.Withdraw)

	// Negotiations
	protected.Get("/negotiations/:id", negotiationHandler.Get)
	protected.Post("/negotiations/:id/accept", negotiationHandler.Accept)
	protected.Post("/negotiations/:id/decline", negotiationHandler.Decline)
	protected.Post("/negotiations/:id/counter", negotiationHandler.Counter)

	// Bookings
	protected.Get("/bookings", bookingHandler.List)
	protected.Get("/bookings/:id", bookingHandler.Get)
	protected.Post("/bookings/:id/cancel", bookingHandler.Cancel)
	protected.Get("/bookings/:id/cancel/preview", bookingHandler.CancelPreview)
	protected.Get("/bookings/:id/cancellation", bookingHandler.GetCancellation)
	protected.Post("/bookings/:id/confirm-completion", bookingHandler.ConfirmCompletion)
	protected.Post("/bookings/:id/resolve-dispute", bookingHandler.ResolveDispute)
	protected.Get("/bookings/:id/events", bookingHandler.Events)
	protected.Get("/bookings/:id/contract", contractHandler.GetByBooking)
	protected.Get("/bookings/:id/milestones", paymentHandler.Milestones)
	protected.Get("/bookings/:id/payments", paymentHandler.Records)
	protected.Get("/bookings/:id/reconcile", paymentHandler.Reconcile)

	// Contracts
	protected.Get("/contracts/:id", contractHandler.Get)
	protected.Post("/contracts/:id/sign", contractHandler.Sign)
	protected.Post("/contracts/:id/void", contractHandler.Void)

	// Payments
	protected.Post("/milestones/:milestoneId/charge", paymentHandler.RequestCharge)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
