package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/booking"
	"github.com/cinetix/showtime-booking/internal/config"
	"github.com/cinetix/showtime-booking/internal/database"
	"github.com/cinetix/showtime-booking/internal/handler"
	"github.com/cinetix/showtime-booking/internal/middleware"
	"github.com/cinetix/showtime-booking/internal/queue"
	"github.com/cinetix/showtime-booking/internal/repository"
	"github.com/cinetix/showtime-booking/internal/router"
	queue_publisher "github.com/cinetix/showtime-booking/internal/service"
)

func main() {
	// .env is a local development convenience; in deployment the
	// variables come from the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	showtimeRepo := repository.NewShowtimeRepo(db)
	ledgerRepo := repository.NewSeatLedgerRepo(db)

	coordinator := booking.NewCoordinator(ledgerRepo,
		booking.WithHoldTTL(cfg.HoldTTL),
		booking.WithMaxSeats(cfg.MaxSeats),
	)
	ledger := booking.NewLedger(ledgerRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The sweeper is an optimization: holds expire lazily at read time
	// regardless, the sweep only keeps storage tidy.
	sweeper := booking.NewSweeper(ledgerRepo, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// The tickets consumer writes issued tickets to a local log; it
	// reconnects on broker failures and its absence never blocks sales.
	go func() {
		if err := queue.StartTicketsConsumer(); err != nil {
			log.Printf("tickets consumer stopped: %v", err)
		}
	}()

	bookingHandler := handler.NewBookingHandler(coordinator, ledger, showtimeRepo, queue_publisher.PublishTicketsIssued)
	publicHandler := handler.NewPublicHandler(showtimeRepo)
	adminHandler := handler.NewAdminHandler(showtimeRepo, ledgerRepo)

	// Redis is optional: without it the seat map is served uncached and
	// the rate limiter is skipped.
	var cacheMW, limitMW echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		if cacheCfg := config.LoadCacheConfig(); cacheCfg.Enabled {
			cacheMW = middleware.NewRedisCache(cacheCfg, rdb)
		}
		if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled {
			limitMW = middleware.NewTokenBucket(rlCfg, rdb)
		}
	}

	e := echo.New()
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, publicHandler, bookingHandler, cacheMW)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret, limitMW)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
