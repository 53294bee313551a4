package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		LockWaitTimeout: cfg.DBLockWaitTimeout,
	})
	if err != nil {
		lg.Fatal("connect mysql", zap.Error(err))
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.RateLimit.Enabled || cfg.Cache.Enabled {
		rdb, err = config.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			lg.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	hotels := repository.NewHotelRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events.AMQPURL, lg)
		consumer := queue.NewConsumer(cfg.Events.AMQPURL, cfg.Events.AuditLogPath, lg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	bookingSvc := service.NewBookingService(db, rooms, bookings, payments, events, lg, service.BookingOptions{
		TxTimeout:                   cfg.Booking.TxTimeout,
		RestoreAvailabilityOnCancel: cfg.Booking.RestoreAvailabilityOnCancel,
	})

	var purge func(context.Context) error
	if rdb != nil && cfg.Cache.Enabled {
		purge = func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cfg.Cache.Prefix) }
	}
	catalog := handler.NewCatalogHandler(hotels, rooms, bookings, purge)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logger.Middleware(lg))

	router.RegisterRoutes(e, db, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterUser(e, handler.NewUserHandler(cfg, users), cfg.JWTSecret)
	router.RegisterPublic(e, catalog, middleware.NewRedisCache(cfg.Cache, rdb, lg))
	router.RegisterBookings(e, handler.NewBookingHandler(bookingSvc), cfg.JWTSecret,
		middleware.NewTokenBucket(cfg.RateLimit, rdb, lg))
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, users, payments), catalog, cfg.JWTSecret)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		lg.Info("listening", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server startup failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}
}
