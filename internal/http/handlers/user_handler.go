package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/services"
)

type UserHandler struct {
	userService  *services.UserService
	trustService *services.TrustService
	log          *zap.Logger
}

func NewUserHandler(userService *services.UserService, trustService *services.TrustService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, trustService: trustService, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.userService.Get(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *UserHandler) SyncVerification(c *fiber.Ctx) error {
	user, err := h.userService.SyncVerification(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *UserHandler) GetTrustScore(c *fiber.Ctx) error {
	score, err := h.trustService.GetScore(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, score)
}

func (h *UserHandler) GetTrustHistory(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	history, err := h.trustService.History(c.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, history)
}
