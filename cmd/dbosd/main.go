package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Arjun4522/internet-measurement-network/internal/config"
	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/internal/dbosserver"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
	"github.com/Arjun4522/internet-measurement-network/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run() error {
	const serviceName = "imn-dbosd"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadDBOS()

	shutdownTelemetry, _, logger, err := telemetry.Init(ctx, serviceName)
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

	store := dbos.New(kv.New(cfg.KVAddr),
		dbos.WithIdempotencyTTL(cfg.IdempotencyTTLS),
		dbos.WithMaxRetries(cfg.MaxRetries))

	lis, err := net.Listen("tcp", ":"+cfg.ListenPort)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.ListenPort, err)
	}

	grpcServer := grpc.NewServer()
	dbosapi.RegisterDBOSServer(grpcServer, dbosserver.New(store))

	go func() {
		<-ctx.Done()
		logger.Printf("INFO shutting down")
		grpcServer.GracefulStop()
	}()

	logger.Printf("INFO listening on :%s (redis at %s)", cfg.ListenPort, cfg.KVAddr)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Printf("ERROR server failed: %v", err)
		return err
	}

	return nil
}
