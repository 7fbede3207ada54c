package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/db"
	"github.com/gigmarket/backend/internal/events"
	apphttp "github.com/gigmarket/backend/internal/http"
	"github.com/gigmarket/backend/internal/http/handlers"
	"github.com/gigmarket/backend/internal/repositories"
	"github.com/gigmarket/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	trustRepo := repositories.NewTrustRepo(pool)
	opportunityRepo := repositories.NewOpportunityRepo(pool)
	applicationRepo := repositories.NewApplicationRepo(pool)
	negotiationRepo := repositories.NewNegotiationRepo(pool)
	bookingRepo := repositories.NewBookingRepo(pool)
	contractRepo := repositories.NewContractRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	cancellationRepo := repositories.NewCancellationRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// External collaborators
	gatewayClient := services.NewGatewayClient(cfg.PaymentGatewayURL, cfg.GatewayMaxRetries, log)
	identityClient := services.NewIdentityClient(cfg.IdentityServiceURL, log)
	documentClient := services.NewDocumentClient(cfg.DocumentStoreURL, log)

	// Services
	trustService := services.NewTrustService(trustRepo, bookingRepo, publisher, log)
	paymentService := services.NewPaymentService(paymentRepo, bookingRepo, contractRepo, auditRepo, gatewayClient, publisher, cfg, log)
	contractService := services.NewContractService(contractRepo, bookingRepo, opportunityRepo, auditRepo, trustService, paymentService, documentClient, publisher, cfg, log)
	cancellationService := services.NewCancellationService(cancellationRepo, bookingRepo, opportunityRepo, contractRepo, auditRepo, paymentService, trustService, publisher, log)
	bookingService := services.NewBookingService(bookingRepo, auditRepo, trustService, contractService, paymentService, cancellationService, publisher, cfg, log)
	negotiationService := services.NewNegotiationService(negotiationRepo, applicationRepo, opportunityRepo, auditRepo, bookingService, publisher, cfg, log)
	applicationService := services.NewApplicationService(applicationRepo, opportunityRepo, auditRepo, trustService, negotiationService, bookingService, publisher, log)
	opportunityService := services.NewOpportunityService(opportunityRepo, auditRepo, log)
	userService := services.NewUserService(userRepo, trustService, identityClient, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, log)
	userHandler := handlers.NewUserHandler(userService, trustService, log)
	opportunityHandler := handlers.NewOpportunityHandler(opportunityService, applicationService, log)
	applicationHandler := handlers.NewApplicationHandler(applicationService, log)
	negotiationHandler := handlers.NewNegotiationHandler(negotiationService, log)
	bookingHandler := handlers.NewBookingHandler(bookingService, cancellationService, auditRepo, log)
	contractHandler := handlers.NewContractHandler(contractService, bookingService, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, bookingService, log)
	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb,
		authHandler, userHandler, opportunityHandler, applicationHandler,
		negotiationHandler, bookingHandler, contractHandler, paymentHandler,
		webhookHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
