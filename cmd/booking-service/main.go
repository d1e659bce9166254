package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/booking"
	"ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	bookingkafka "ms-booking/internal/booking/kafka"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/lockstore"
	"ms-booking/internal/logger"
	"ms-booking/internal/payment"
	"ms-booking/internal/seatlock"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	// --- PostgreSQL ---
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres connection: %v", err))
	}
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.Options{
			MigrationsDir: cfg.Database.MigrationsDir,
			AutoMigrate:   true,
		})
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	} else if err := bookingdb.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema bootstrap failed: %v", err))
	}

	// --- Redis (primary lock store) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Not fatal: the resilient adapter will run on the fallback
		// cache until redis comes back.
		log.Warn("LOCKSTORE", fmt.Sprintf("Redis unreachable at startup: %v", err))
	}

	store := lockstore.NewResilient(
		lockstore.NewRedisStore(redisClient),
		lockstore.NewFallbackCache(),
		log,
		cfg.Lock.MaxAttempts,
		cfg.Lock.Backoff,
	)
	lockManager := seatlock.NewManager(store, cfg.Lock.TTL, log)

	// --- Kafka ---
	var events booking.EventPublisher
	if cfg.Kafka.Enabled {
		producer := bookingkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingConfirmed, cfg.Kafka.Topics.BookingCancelled)
		defer producer.Close()
		events = producer
	}

	// --- Payments ---
	payment.InitStripe()
	payments := payment.NewStripeProcessor(cfg.Payment.Currency, log)

	// --- Service & Router ---
	dbLayer := &bookingdb.DB{Bun: bunDB}
	service := booking.NewService(dbLayer, lockManager, payments, events, log)
	handler := api.NewHandler(service, lockManager, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/showtimes/{showtimeId}/seats/lock", handler.LockSeats)
		r.Delete("/showtimes/{showtimeId}/seats/unlock", handler.UnlockSeats)
		r.Put("/showtimes/{showtimeId}/seats/extend-lock", handler.ExtendLock)
		r.Get("/showtimes/{showtimeId}/seat-status", handler.SeatStatus)
		r.Post("/bookings", handler.CreateBooking)
		r.Get("/bookings/{bookingCode}", handler.GetBooking)
		r.Put("/bookings/{bookingCode}/cancel", handler.CancelBooking)
		r.Get("/admin/lock-statistics", handler.LockStatistics)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
