package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/middleware"
	"vaultpay/internal/models"
	"vaultpay/internal/services/transfer"
)

type TransferHandler struct {
	transfers transfer.Service
}

func NewTransferHandler(transfers transfer.Service) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type transferRequest struct {
	ToUserID    uuid.UUID       `json:"to_user_id" validate:"required"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description"`
}

func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req transferRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.transfers.Transfer(c.Context(), transfer.Request{
		FromUserID:  userID,
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		Currency:    models.CurrencyCode(req.Currency),
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transfer_id":  result.TransferID,
		"fee":          result.Fee,
		"source_tx_id": result.SourceTx.ID,
		"target_tx_id": result.TargetTx.ID,
	})
}
