// Package main is the entrypoint: it connects postgres and redis, wires the
// services, starts the bus subscriber and the background jobs, and serves
// the HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"vaultpay/internal/config"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/routes"
)

func main() {
	config.LoadEnv()

	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	redisClient := repositories.InitRedis()
	defer redisClient.Close()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	for _, path := range []string{"/api/register", "/api/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        5,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
		}))
	}

	wired := routes.Setup(app, db, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bus subscriber: consumes user activations into wallet creation.
	go func() {
		if err := wired.Bus.Subscribe(ctx, wired.Registry); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("bus subscriber stopped: %v", err)
		}
	}()

	// Overdue sweep flips expired credit lines.
	go runEvery(ctx, config.GetDurationEnv("OVERDUE_CHECK_INTERVAL", time.Hour), func() {
		flipped, err := wired.Credits.RunOverdueCheck(ctx)
		if err != nil {
			log.Printf("overdue check failed: %v", err)
			return
		}
		if flipped > 0 {
			log.Printf("overdue check flipped %d credit lines", flipped)
		}
	})

	// Daily balance snapshots.
	go runEvery(ctx, config.GetDurationEnv("SNAPSHOT_INTERVAL", 24*time.Hour), func() {
		taken, err := wired.Snapshots.TakeSnapshots(ctx, models.SnapshotDaily)
		if err != nil {
			log.Printf("snapshot run failed: %v", err)
			return
		}
		log.Printf("took %d balance snapshots", taken)
	})

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
