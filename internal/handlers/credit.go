package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"vaultpay/internal/middleware"
	"vaultpay/internal/models"
	"vaultpay/internal/services/credit"
)

type CreditHandler struct {
	credits credit.Service
}

func NewCreditHandler(credits credit.Service) *CreditHandler {
	return &CreditHandler{credits: credits}
}

type assignCreditRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	Description string          `json:"description"`
}

func (h *CreditHandler) AssignCredit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req assignCreditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.credits.AssignCredit(c.Context(), userID, req.Amount, req.DueDate, req.Description); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

type useCreditRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func (h *CreditHandler) UseCredit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req useCreditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	used, err := h.credits.UseCredit(c.Context(), userID, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"used": used})
}

type settleCreditRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

func (h *CreditHandler) SettleCredit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req settleCreditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.credits.SettleCredit(c.Context(), userID, models.CurrencyCode(req.Currency)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
