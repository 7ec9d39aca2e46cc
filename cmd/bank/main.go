package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/DanielPopoola/multibank-gateway/internal/bank"
	"github.com/DanielPopoola/multibank-gateway/internal/config"
	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/tlsconf"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// seedAccounts provisions a bank's starting accounts: five users with
// balances of 1000, 2000, ... units. Live account creation is out of
// scope; a bank starts with something to pay into and out of.
func seedAccounts() []domain.Account {
	accounts := make([]domain.Account, 0, 5)
	for i := 1; i <= 5; i++ {
		accounts = append(accounts, domain.Account{
			ID:           fmt.Sprintf("ACC%03d", i),
			Username:     fmt.Sprintf("user%d", i),
			Password:     fmt.Sprintf("pass%d", i),
			BalanceCents: int64(i) * 100_000,
		})
	}
	return accounts
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadBankConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Positional arguments override the environment: <bank-name> <port>.
	if len(os.Args) == 3 {
		cfg.BankName = os.Args[1]
		cfg.Port = os.Args[2]
	} else if len(os.Args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [<bank-name> <port>]\n", os.Args[0])
		os.Exit(1)
	}
	logger = logger.With("bank", cfg.BankName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bank.NewStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := store.Seed(ctx, seedAccounts()); err != nil {
		logger.Error("failed to seed accounts", "error", err)
		os.Exit(1)
	}

	tlsCfg, err := tlsconf.ServerConfig(cfg.TLS)
	if err != nil {
		logger.Error("failed to build TLS config", "error", err)
		os.Exit(1)
	}

	srv := grpc.NewServer(
		grpc.Creds(credentials.NewTLS(tlsCfg)),
		grpc.NumStreamWorkers(10),
	)
	rpcpb.RegisterBankServiceServer(srv, bank.NewService(cfg.BankName, store, logger))

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Error("failed to listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("bank server starting", "port", cfg.Port)
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
