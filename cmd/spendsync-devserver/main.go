// spendsync-devserver runs the in-memory backend for local development of
// the client. Data lives only as long as the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/spendsync/internal/apitest"
	"github.com/mmynk/spendsync/pkg/logging"
)

// apiPrefix matches the path of the client's default base URL.
const apiPrefix = "/api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var (
		addr      string
		secret    string
		logLevel  string
		seedEmail string
		seedPass  string
		seedName  string
		tokenTTL  time.Duration
	)
	flagSet := pflag.NewFlagSet("spendsync-devserver", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", getEnv("ADDR", ":3001"), "listen address")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "token signing secret (default: $JWT_SECRET or a built-in value)")
	flagSet.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued tokens")
	flagSet.StringVar(&logLevel, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error")
	flagSet.StringVar(&seedEmail, "seed-email", "", "create this account at start-up")
	flagSet.StringVar(&seedPass, "seed-password", "password123", "password of the seeded account")
	flagSet.StringVar(&seedName, "seed-name", "Demo User", "name of the seeded account")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.Setup(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	srv := apitest.New(apitest.Options{
		Secret:     secret,
		TokenTTL:   tokenTTL,
		BcryptCost: 10,
		Logger:     logger,
	})
	if seedEmail != "" {
		if _, err := srv.CreateUser(seedEmail, seedPass, seedName); err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
		logger.Info("Seeded account", "email", seedEmail)
	}

	mux := http.NewServeMux()
	mux.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, srv.Handler()))
	mux.Handle("/metrics", promhttp.Handler())

	// h2c serves HTTP/2 clients without TLS alongside HTTP/1.1.
	server := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dev server starting", "address", addr, "base_url", fmt.Sprintf("http://localhost%s%s", addr, apiPrefix))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
