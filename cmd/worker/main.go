package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/db"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/policy"
	"github.com/gigmarket/backend/internal/repositories"
	"github.com/gigmarket/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	trustRepo := repositories.NewTrustRepo(pool)
	opportunityRepo := repositories.NewOpportunityRepo(pool)
	applicationRepo := repositories.NewApplicationRepo(pool)
	negotiationRepo := repositories.NewNegotiationRepo(pool)
	bookingRepo := repositories.NewBookingRepo(pool)
	contractRepo := repositories.NewContractRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	cancellationRepo := repositories.NewCancellationRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	gatewayClient := services.NewGatewayClient(cfg.PaymentGatewayURL, cfg.GatewayMaxRetries, log)
	documentClient := services.NewDocumentClient(cfg.DocumentStoreURL, log)
	trustService := services.NewTrustService(trustRepo, bookingRepo, publisher, log)
	paymentService := services.NewPaymentService(paymentRepo, bookingRepo, contractRepo, auditRepo, gatewayClient, publisher, cfg, log)
	contractService := services.NewContractService(contractRepo, bookingRepo, opportunityRepo, auditRepo, trustService, paymentService, documentClient, publisher, cfg, log)
	cancellationService := services.NewCancellationService(cancellationRepo, bookingRepo, opportunityRepo, contractRepo, auditRepo, paymentService, trustService, publisher, log)
	bookingService := services.NewBookingService(bookingRepo, auditRepo, trustService, contractService, paymentService, cancellationService, publisher, cfg, log)
	negotiationService := services.NewNegotiationService(negotiationRepo, applicationRepo, opportunityRepo, auditRepo, bookingService, publisher, cfg, log)

	log.Info("worker started", zap.Duration("sweep_interval", cfg.SweepInterval))

	// Run jobs on tickers
	sweepTicker := time.NewTicker(cfg.SweepInterval)
	reminderTicker := time.NewTicker(10 * time.Minute)
	defer sweepTicker.Stop()
	defer reminderTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			runNegotiationExpiry(ctx, negotiationService, log)
			runContractExpiry(ctx, contractService, cancellationService, log)
			runBookingStarts(ctx, bookingService, log)
			runStaleEscalation(ctx, bookingService, log)
		case <-reminderTicker.C:
			runPaymentReminders(ctx, paymentService, bookingRepo, publisher, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runNegotiationExpiry(ctx context.Context, negotiationService *services.NegotiationService, log *zap.Logger) {
	n, err := negotiationService.ExpireDue(ctx)
	if err != nil {
		log.Error("failed to expire negotiations", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale negotiations", zap.Int("count", n))
	}
}

// runContractExpiry expires unsigned contracts past their signing deadline and
// cancels the underlying bookings with a full deposit refund.
func runContractExpiry(ctx context.Context, contractService *services.ContractService, cancellationService *services.CancellationService, log *zap.Logger) {
	expired, err := contractService.ExpireDue(ctx)
	if err != nil {
		log.Error("failed to expire contracts", zap.Error(err))
		return
	}

	for _, c := range expired {
		log.Info("cancelling booking for expired contract",
			zap.String("contract_id", c.ID.String()),
			zap.String("booking_id", c.BookingID.String()),
		)
		if _, err := cancellationService.CancelBySystem(ctx, c.BookingID, policy.ReasonContractExpired); err != nil {
			log.Error("failed to cancel booking for expired contract",
				zap.String("booking_id", c.BookingID.String()),
				zap.Error(err),
			)
		}
	}
}

func runBookingStarts(ctx context.Context, bookingService *services.BookingService, log *zap.Logger) {
	n, err := bookingService.StartDue(ctx)
	if err != nil {
		log.Error("failed to start due bookings", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("moved bookings to in_progress", zap.Int("count", n))
	}
}

func runStaleEscalation(ctx context.Context, bookingService *services.BookingService, log *zap.Logger) {
	n, err := bookingService.EscalateStale(ctx)
	if err != nil {
		log.Error("failed to escalate stale bookings", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("escalated unconfirmed bookings to disputed", zap.Int("count", n))
	}
}

// runPaymentReminders notifies organizers about pending milestones past their
// due date. The notify bridge fans these out to the dispatcher.
func runPaymentReminders(ctx context.Context, paymentService *services.PaymentService, bookingRepo *repositories.BookingRepo, publisher events.Publisher, log *zap.Logger) {
	overdue, err := paymentService.OverdueMilestones(ctx)
	if err != nil {
		log.Error("failed to list overdue milestones", zap.Error(err))
		return
	}

	for _, m := range overdue {
		b, err := bookingRepo.GetByID(ctx, m.BookingID)
		if err != nil {
			log.Warn("failed to load booking for reminder", zap.String("booking_id", m.BookingID.String()), zap.Error(err))
			continue
		}

		err = publisher.Publish(ctx, events.ChannelNotify, events.Event{
			Type: events.EventUserNotification,
			Payload: map[string]any{
				"user_id":      b.OrganizerID.String(),
				"kind":         "payment_overdue",
				"booking_id":   m.BookingID.String(),
				"milestone_id": m.ID.String(),
				"milestone":    m.Kind,
				"amount":       m.Amount.String(),
				"currency":     m.Currency,
				"due_date":     m.DueDate,
			},
		})
		if err != nil {
			log.Error("failed to publish payment reminder", zap.Error(err))
		}
	}
}
