package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/imanzi/transit-seat-booking/internal/config"
	"github.com/imanzi/transit-seat-booking/internal/database"
	"github.com/imanzi/transit-seat-booking/internal/generator"
	"github.com/imanzi/transit-seat-booking/internal/handler"
	"github.com/imanzi/transit-seat-booking/internal/ledger"
	"github.com/imanzi/transit-seat-booking/internal/payment"
	"github.com/imanzi/transit-seat-booking/internal/queue"
	"github.com/imanzi/transit-seat-booking/internal/repository"
	"github.com/imanzi/transit-seat-booking/internal/router"
	queuepublisher "github.com/imanzi/transit-seat-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	routes := repository.NewRouteRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	trips := repository.NewTripRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)

	gateway := payment.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIUser, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	events := queuepublisher.New()
	lgr := ledger.New(db, trips, bookings, routes, payments, gateway, events)
	gen := generator.New(routes, vehicles, trips)
	poller := payment.NewPoller(bookings, gateway, lgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go queue.StartNotificationConsumer()
	go gen.RunScheduled(ctx, cfg.GenerateEvery)
	go poller.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Trips:    handler.NewTripHandler(trips),
		Bookings: handler.NewBookingHandler(lgr, bookings, users),
		Ops:      handler.NewOpsHandler(gen),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Println(err)
	}
}
