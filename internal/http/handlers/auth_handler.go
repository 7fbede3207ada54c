package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/http/dto"
	"github.com/gigmarket/backend/internal/services"
)

type AuthHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewAuthHandler(userService *services.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, token, err := h.userService.Register(c.Context(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{
		OK:   true,
		Data: dto.AuthResponse{Token: token, User: user},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, token, err := h.userService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, dto.AuthResponse{Token: token, User: user})
}
