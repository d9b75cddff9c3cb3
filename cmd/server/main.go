package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/config"
	"github.com/duckluckie/rifa-api/internal/database"
	"github.com/duckluckie/rifa-api/internal/handler"
	"github.com/duckluckie/rifa-api/internal/pix"
	"github.com/duckluckie/rifa-api/internal/queue"
	"github.com/duckluckie/rifa-api/internal/realtime"
	"github.com/duckluckie/rifa-api/internal/repository"
	"github.com/duckluckie/rifa-api/internal/router"
	"github.com/duckluckie/rifa-api/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response cache disabled")
	}

	products := repository.NewProductRepo(db)
	holds := repository.NewHoldRepo(db)
	clients := repository.NewClientRepo(db)
	payments := repository.NewPaymentRepo(db)

	hub := realtime.NewHub()
	manager := service.NewReservationManager(products, holds, hub, cfg.ReservationTTL)
	provider := pix.New(cfg.PixBaseURL, cfg.PixClientID, cfg.PixClientSecret, cfg.PixKey)
	purchases := service.NewPurchaseService(products, holds, clients, payments,
		provider, queue.NewPublisher(), hub, cfg.PixChargeTTLSec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.RunSweeper(ctx, cfg.SweepInterval)
	go queue.StartPaymentConsumer()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Products:     handler.NewProductHandler(products),
		Reservations: handler.NewReservationHandler(manager),
		Purchases:    handler.NewPurchaseHandler(purchases),
		Webhooks:     handler.NewWebhookHandler(purchases),
		Auth:         handler.NewAuthHandler(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPassHash, cfg.AccessTTLMin),
		Admin:        handler.NewAdminHandler(products, manager, hub),
		Hub:          hub,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
