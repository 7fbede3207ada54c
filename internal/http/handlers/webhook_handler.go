package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/http/dto"
	"github.com/gigmarket/backend/internal/services"
)

// WebhookHandler receives payment gateway callbacks. Confirmations are
// idempotent downstream, so the gateway may redeliver freely.
type WebhookHandler struct {
	paymentService *services.PaymentService
	cfg            *config.Config
	log            *zap.Logger
}

func NewWebhookHandler(paymentService *services.PaymentService, cfg *config.Config, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService, cfg: cfg, log: log}
}

func (h *WebhookHandler) HandleGateway(c *fiber.Ctx) error {
	if h.cfg.PaymentWebhookSecret != "" {
		if !h.verifySignature(c.Body(), c.Get("X-Gateway-Signature")) {
			h.log.Warn("gateway webhook signature mismatch")
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "bad signature"})
		}
	}

	var req dto.GatewayWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	switch req.EventType {
	case "payment.succeeded":
		milestoneID, err := uuid.Parse(req.MilestoneID)
		if err != nil {
			return badRequest(c, "invalid milestone_id")
		}
		m, err := h.paymentService.ConfirmPayment(c.Context(), milestoneID, req.Amount, req.Currency, req.GatewayTxID)
		if err != nil {
			h.log.Error("payment confirmation failed",
				zap.String("milestone_id", req.MilestoneID),
				zap.String("gateway_tx_id", req.GatewayTxID),
				zap.Error(err),
			)
			return fail(c, err)
		}
		return ok(c, m)
	case "payment.failed":
		h.log.Warn("gateway reported failed payment",
			zap.String("milestone_id", req.MilestoneID),
			zap.String("gateway_tx_id", req.GatewayTxID),
		)
		return ok(c, nil)
	default:
		// Unknown event types are acknowledged so the gateway stops
		// redelivering them.
		h.log.Info("ignoring gateway event", zap.String("event_type", req.EventType))
		return ok(c, nil)
	}
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.PaymentWebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
