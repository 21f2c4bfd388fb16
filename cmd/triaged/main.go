// Triaged serves the intake triage engine over HTTP.
//
// Configuration is read from an optional YAML file, TRIAGE_* environment
// variables and a .env file in the working directory. See internal/config
// for the full mapping.
//
// Usage:
//
//	# Start with defaults (heuristic-only unless an API key is set)
//	triaged
//
//	# Explicit config file and port
//	TRIAGE_SERVER_PORT=9090 triaged -config ./triage.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/intaketriage/internal/app"
	"github.com/fyrsmithlabs/intaketriage/internal/config"
	httpserver "github.com/fyrsmithlabs/intaketriage/internal/http"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  triaged [-config file]   Start the triage server\n")
			fmt.Fprintf(os.Stderr, "  triaged version          Show version information\n")
			os.Exit(1)
		}
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("triaged\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the server and blocks until ctx is cancelled, then shuts down
// within the configured timeout.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := app.Build(ctx, cfg, app.Options{Version: version})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close(context.Background())
	}()

	srv, err := httpserver.NewServer(a.Engine, a.Logger.Named("http"), &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	}, httpserver.WithTelemetry(a.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	a.Logger.Info(ctx, "starting triaged",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("version", version),
		zap.Bool("llm.available", a.Engine.LLMAvailable()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
