package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/DanielPopoola/multibank-gateway/internal/config"
	"github.com/DanielPopoola/multibank-gateway/internal/gateway"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/authinterceptor"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/tlsconf"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Port == "" {
		cfg.Port = "50051"
	}
	if len(cfg.Banks) == 0 {
		cfg.Banks = map[string]string{
			"Bank1": "localhost:50052",
			"Bank2": "localhost:50053",
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := gateway.NewTokenStore(cfg.TokenStorePath, cfg.TokenTTL, logger)
	if err != nil {
		logger.Error("failed to open token store", "error", err)
		os.Exit(1)
	}
	go tokens.StartSweeper(ctx, cfg.TokenSweep)

	cache, err := gateway.NewIdempotencyCache(cfg.IdempotencyStore, logger)
	if err != nil {
		logger.Error("failed to open idempotency cache", "error", err)
		os.Exit(1)
	}

	clientTLS, err := tlsconf.ClientConfig(cfg.TLS, "")
	if err != nil {
		logger.Error("failed to build bank-facing TLS config", "error", err)
		os.Exit(1)
	}
	banks := gateway.NewStubTable(cfg.Banks, clientTLS, logger)
	defer banks.Close()

	coord := gateway.NewCoordinator(banks, cfg.PhaseTimeout, cfg.AbortTimeout, cfg.SafetyMargin, logger)
	svc := gateway.NewService(tokens, cache, banks, coord, logger)

	serverTLS, err := tlsconf.ServerConfig(cfg.TLS)
	if err != nil {
		logger.Error("failed to build server TLS config", "error", err)
		os.Exit(1)
	}

	srv := grpc.NewServer(
		grpc.Creds(credentials.NewTLS(serverTLS)),
		grpc.UnaryInterceptor(authinterceptor.Unary(tokens)),
		grpc.NumStreamWorkers(10),
	)
	rpcpb.RegisterGatewayServiceServer(srv, svc)

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Error("failed to listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("gateway starting", "port", cfg.Port, "banks", len(cfg.Banks))
		if err := srv.Serve(lis); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")
	srv.GracefulStop()
	logger.Info("exit")
}
