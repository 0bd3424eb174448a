// Package routes wires the services together and binds them to HTTP routes.
package routes

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vaultpay/internal/config"
	"vaultpay/internal/events"
	"vaultpay/internal/handlers"
	"vaultpay/internal/middleware"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
	"vaultpay/internal/services/credit"
	"vaultpay/internal/services/payment"
	"vaultpay/internal/services/refund"
	"vaultpay/internal/services/snapshot"
	"vaultpay/internal/services/transfer"
	"vaultpay/internal/services/user"
	"vaultpay/internal/services/wallet"
)

// App bundles the wired application for the entrypoint.
type App struct {
	Bus       *events.RedisBus
	Registry  *events.Registry
	Credits   credit.Service
	Snapshots snapshot.Service
}

// Setup wires repositories, services and handlers onto the fiber app.
func Setup(app *fiber.App, db *gorm.DB, redisClient *redis.Client) *App {
	bus := events.NewRedisBus(redisClient, config.GetEnv("BUS_CHANNEL", "vaultpay.events"))
	registry := events.NewRegistry()
	uow := repositories.NewUnitOfWork(db, bus, registry)

	rates := transfer.NewStaticRateProvider()
	walletCache := cache.NewWalletCache(redisClient, config.GetDurationEnv("WALLET_CACHE_TTL", 5*time.Minute))
	walletService := wallet.NewService(uow, walletCache, rates)
	creditService := credit.NewService(uow)
	refundService := refund.NewService(uow)
	snapshotService := snapshot.NewService(uow)

	fees := transfer.NewFeeCalculator(transfer.DefaultFeePolicy(), rates)
	transferService := transfer.NewService(uow, fees)

	gateway := payment.NewStripeGateway(config.GetEnv("STRIPE_SECRET_KEY", ""))
	paymentService := payment.NewService(gateway, walletService, uow)

	jwtSecret := config.GetEnv("JWT_SECRET", "vaultpay")
	userService := user.NewService(uow, bus, jwtSecret, config.GetDurationEnv("TOKEN_TTL", 15*time.Minute))

	// Activation events create the wallet lazily on first use.
	registry.Register(events.NameUserActivated, func(ctx context.Context, e events.Event) error {
		activated, ok := e.(events.UserActivated)
		if !ok {
			return nil
		}
		if _, err := walletService.EnsureWallet(ctx, activated.UserID); err != nil {
			return err
		}
		log.Printf("wallet ensured for activated user %s", activated.UserID)
		return nil
	})

	authHandler := handlers.NewAuthHandler(userService)
	walletHandler := handlers.NewWalletHandler(walletService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	transferHandler := handlers.NewTransferHandler(transferService)
	refundHandler := handlers.NewRefundHandler(refundService)
	creditHandler := handlers.NewCreditHandler(creditService)

	api := app.Group("/api")
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)

	authed := api.Group("", middleware.Auth(jwtSecret))
	authed.Get("/wallet", walletHandler.GetSummary)
	authed.Post("/wallet/accounts", walletHandler.CreateAccount)
	authed.Post("/wallet/withdraw", walletHandler.Withdraw)
	authed.Post("/wallet/convert", walletHandler.Convert)
	authed.Get("/wallet/transactions", walletHandler.ListTransactions)

	authed.Post("/topup", paymentHandler.InitiateTopUp)
	authed.Post("/topup/confirm", paymentHandler.ConfirmTopUp)

	authed.Post("/transfers", transferHandler.Transfer)

	authed.Get("/transactions/:id/refundability", refundHandler.CheckRefundability)
	authed.Post("/transactions/:id/refund", refundHandler.ProcessRefund)

	authed.Post("/credit/assign", creditHandler.AssignCredit)
	authed.Post("/credit/use", creditHandler.UseCredit)
	authed.Post("/credit/settle", creditHandler.SettleCredit)

	return &App{Bus: bus, Registry: registry, Credits: creditService, Snapshots: snapshotService}
}
