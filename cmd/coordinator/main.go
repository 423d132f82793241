package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Arjun4522/internet-measurement-network/internal/config"
	"github.com/Arjun4522/internet-measurement-network/internal/coordinator"
	"github.com/Arjun4522/internet-measurement-network/internal/dbosclient"
	"github.com/Arjun4522/internet-measurement-network/internal/restapi"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
	"github.com/Arjun4522/internet-measurement-network/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run() error {
	const serviceName = "imn-coordinator"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadCoordinator()

	shutdownTelemetry, middleware, logger, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "%s: telemetry shutdown error: %v\n", serviceName, err)
		}
	}()

	conn, err := grpc.NewClient(cfg.DBOSAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial dbos: %w", err)
	}
	defer conn.Close()
	store := dbosclient.New(dbosapi.NewDBOSClient(conn))

	b, err := bus.New(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer b.Close()

	coord := coordinator.New(store, b, logger)
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	defer coord.Close()

	api, err := restapi.New(store, coord, restapi.Config{
		LivenessWindow: cfg.LivenessWindow(),
		RequestTimeout: cfg.RequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init rest api: %w", err)
	}
	routes, err := api.Routes(middleware)
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", routes)
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "%s: server shutdown error: %v\n", serviceName, err)
		}
	}()

	logger.Printf("INFO listening on %s, bus=%s dbos=%s", server.Addr, cfg.NATSURL, cfg.DBOSAddress)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ERROR server failed: %v", err)
		return err
	}

	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
