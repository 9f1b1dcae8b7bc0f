package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"store-backend/handlers"
	"store-backend/internal/auth"
	"store-backend/internal/cart"
	"store-backend/internal/categories"
	"store-backend/internal/consul"
	"store-backend/internal/orders"
	"store-backend/internal/products"
	"store-backend/internal/reviews"
	"store-backend/internal/stores/kafka"
	"store-backend/internal/users"
	"store-backend/internal/wishlist"
	"store-backend/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment", slog.String("error", err.Error()))
	}

	if err := run(); err != nil {
		slog.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	keys, err := loadKeys()
	if err != nil {
		return err
	}

	confs, err := buildConfs(db)
	if err != nil {
		return err
	}

	brokers := mustEnv("KAFKA_BROKERS")
	kafkaConf, err := kafka.NewConf(strings.Split(brokers, ","))
	if err != nil {
		return err
	}
	defer kafkaConf.Close()

	prefix := mustEnv("SERVICE_ENDPOINT_PREFIX")
	port, err := strconv.Atoi(mustEnv("APP_PORT"))
	if err != nil {
		return fmt.Errorf("APP_PORT is not a number: %w", err)
	}

	engine := handlers.API(prefix, keys, confs, kafkaConf)

	registerWithConsul(port)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func openDB() (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		mustEnv("POSTGRES_HOST"), mustEnv("POSTGRES_PORT"), mustEnv("POSTGRES_USER"),
		mustEnv("POSTGRES_PASSWORD"), mustEnv("POSTGRES_DB"))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// The database may still be coming up; ping with backoff before giving up.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	backoff := retry.WithMaxRetries(10, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("database not ready", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func loadKeys() (*auth.Keys, error) {
	privatePEM, err := os.ReadFile(mustEnv("AUTH_PRIVATE_KEY_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(mustEnv("AUTH_PUBLIC_KEY_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return auth.NewKeys(privatePEM, publicPEM)
}

func buildConfs(db *sql.DB) (handlers.Confs, error) {
	var confs handlers.Confs
	var err error

	if confs.Cart, err = cart.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Orders, err = orders.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Products, err = products.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Categories, err = categories.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Reviews, err = reviews.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Wishlist, err = wishlist.NewConf(db); err != nil {
		return confs, err
	}
	if confs.Users, err = users.NewConf(db); err != nil {
		return confs, err
	}
	return confs, nil
}

// registerWithConsul is best effort: a missing agent should not keep the
// service from starting.
func registerWithConsul(port int) {
	client, err := consul.NewClient()
	if err != nil {
		slog.Warn("consul client unavailable", slog.String("error", err.Error()))
		return
	}
	host := os.Getenv("SERVICE_HOST")
	if host == "" {
		host = "localhost"
	}
	if err := consul.RegisterService(client, "store-backend", host, port); err != nil {
		slog.Warn("consul registration failed", slog.String("error", err.Error()))
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("%s is not set", key))
	}
	return v
}
