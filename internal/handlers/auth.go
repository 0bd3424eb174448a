package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vaultpay/internal/services/user"
)

type AuthHandler struct {
	users user.Service
}

func NewAuthHandler(users user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	u, err := h.users.Register(c.Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    u.ID,
		"email": u.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	token, err := h.users.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"access_token": token})
}
