package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"vaultpay/internal/middleware"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/wallet"
)

type WalletHandler struct {
	wallets wallet.Service
}

func NewWalletHandler(wallets wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

func (h *WalletHandler) GetSummary(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	summary, err := h.wallets.GetSummary(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summary)
}

type createAccountRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

func (h *WalletHandler) CreateAccount(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req createAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	account, err := h.wallets.CreateAccount(c.Context(), userID, models.CurrencyCode(req.Currency))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       account.ID,
		"currency": account.Currency,
		"balance":  account.Balance,
	})
}

type withdrawRequest struct {
	Currency    string          `json:"currency" validate:"required,len=3"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=WITHDRAWAL PURCHASE"`
	Description string          `json:"description"`
	OrderID     *string         `json:"order_id"`
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req withdrawRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	tx, err := h.wallets.Withdraw(c.Context(), wallet.WithdrawRequest{
		UserID:      userID,
		Currency:    models.CurrencyCode(req.Currency),
		Amount:      req.Amount,
		Type:        models.TransactionType(req.Type),
		Description: req.Description,
		OrderID:     req.OrderID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

type convertRequest struct {
	From   string          `json:"from" validate:"required,len=3"`
	To     string          `json:"to" validate:"required,len=3"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func (h *WalletHandler) Convert(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req convertRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.wallets.Convert(c.Context(), wallet.ConvertRequest{
		UserID: userID,
		From:   models.CurrencyCode(req.From),
		To:     models.CurrencyCode(req.To),
		Amount: req.Amount,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"rate":      result.Rate,
		"converted": result.Converted,
		"source":    result.SourceTx,
		"target":    result.TargetTx,
	})
}

func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	filter := repositories.TransactionFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	txs, err := h.wallets.GetTransactions(c.Context(), userID, filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txs})
}
