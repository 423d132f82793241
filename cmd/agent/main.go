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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Arjun4522/internet-measurement-network/internal/agentrt"
	"github.com/Arjun4522/internet-measurement-network/internal/config"
	"github.com/Arjun4522/internet-measurement-network/internal/modules"
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
	const serviceName = "imn-agent"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadAgent()
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}

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

	b, err := bus.New(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer b.Close()

	conn, err := grpc.NewClient(cfg.DBOSAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial dbos: %w", err)
	}
	defer conn.Close()
	dbosClient := dbosapi.NewDBOSClient(conn)

	moduleDefaults, err := config.LoadModuleDefaults(cfg.ModulesConfigPath)
	if err != nil {
		return fmt.Errorf("load module defaults: %w", err)
	}

	runtime := agentrt.New(cfg.AgentID, b, dbosClient, modules.Default(), cfg.HeartbeatInterval(),
		agentrt.WithLogger(logger), agentrt.WithModuleDefaults(moduleDefaults))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           middleware(mux),
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

	go func() {
		logger.Printf("INFO serving health/metrics on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("ERROR health server failed: %v", err)
		}
	}()

	logger.Printf("INFO agent %s starting, bus=%s dbos=%s", cfg.AgentID, cfg.NATSURL, cfg.DBOSAddress)

	defer runtime.Close()
	if err := runtime.Run(ctx); err != nil {
		return fmt.Errorf("run agent: %w", err)
	}
	return nil
}
