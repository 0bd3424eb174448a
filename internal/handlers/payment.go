package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"vaultpay/internal/middleware"
	"vaultpay/internal/models"
	"vaultpay/internal/services/payment"
)

type PaymentHandler struct {
	payments payment.Service
}

func NewPaymentHandler(payments payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type topUpRequest struct {
	Currency string          `json:"currency" validate:"required,len=3"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

func (h *PaymentHandler) InitiateTopUp(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req topUpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	pr, err := h.payments.InitiateTopUp(c.Context(), userID, req.Amount, models.CurrencyCode(req.Currency))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reference_id":  pr.ReferenceID,
		"client_secret": pr.ClientSecret,
		"amount":        pr.Amount,
		"currency":      pr.Currency,
	})
}

type confirmTopUpRequest struct {
	ReferenceID string `json:"reference_id" validate:"required"`
}

func (h *PaymentHandler) ConfirmTopUp(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req confirmTopUpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	tx, err := h.payments.ConfirmTopUp(c.Context(), userID, req.ReferenceID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}
