package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/services/refund"
)

type RefundHandler struct {
	refunds refund.Service
}

func NewRefundHandler(refunds refund.Service) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

func (h *RefundHandler) CheckRefundability(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":  "BAD_REQUEST",
			"error": "malformed transaction id",
		})
	}

	state, err := h.refunds.CheckRefundability(c.Context(), txID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(state)
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

func (h *RefundHandler) ProcessRefund(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":  "BAD_REQUEST",
			"error": "malformed transaction id",
		})
	}

	var req refundRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	tx, err := h.refunds.ProcessRefund(c.Context(), refund.Request{
		TransactionID: txID,
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}
