package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Stubs resolves a bank name to a client stub. The coordinator and the
// service both depend on this rather than on the concrete table.
type Stubs interface {
	StubFor(ctx context.Context, bank string) (rpcpb.BankServiceClient, error)
}

// StubTable is the gateway's bank discovery map made lazy: a channel is
// established on first use and cached, so a bank that comes up after
// the gateway is still reachable. Each bank's calls run through a
// circuit breaker that trips open on repeated transport errors, letting
// the coordinator fail fast instead of burning a full phase deadline on
// a dead bank.
type StubTable struct {
	mu       sync.Mutex
	addrs    map[string]string
	tlsCfg   *tls.Config
	logger   *slog.Logger
	conns    map[string]*grpc.ClientConn
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewStubTable(addrs map[string]string, tlsCfg *tls.Config, logger *slog.Logger) *StubTable {
	return &StubTable{
		addrs:    addrs,
		tlsCfg:   tlsCfg,
		logger:   logger,
		conns:    make(map[string]*grpc.ClientConn),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// StubFor returns a breaker-wrapped stub for bank. Unknown banks fail
// with a domain error the service maps to invalid-argument; an open
// breaker surfaces at call time as a transport-class failure.
func (t *StubTable) StubFor(ctx context.Context, bank string) (rpcpb.BankServiceClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr, ok := t.addrs[bank]
	if !ok {
		return nil, domain.NewUnknownBankError(bank)
	}

	conn, ok := t.conns[bank]
	if !ok {
		var err error
		conn, err = grpc.NewClient(addr, grpc.WithTransportCredentials(credentials.NewTLS(t.tlsCfg)))
		if err != nil {
			return nil, fmt.Errorf("creating channel to bank %s at %s: %w", bank, addr, err)
		}
		t.conns[bank] = conn
		t.logger.Info("established bank channel", "bank", bank, "addr", addr)
	}

	cb, ok := t.breakers[bank]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "bank-" + bank,
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				t.logger.Warn("bank circuit state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
		t.breakers[bank] = cb
	}

	return &breakerClient{inner: rpcpb.NewBankServiceClient(conn), cb: cb}, nil
}

// Close tears down every cached channel.
func (t *StubTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for bank, conn := range t.conns {
		if err := conn.Close(); err != nil {
			t.logger.Warn("closing bank channel", "bank", bank, "error", err)
		}
	}
	t.conns = make(map[string]*grpc.ClientConn)
}

// breakerClient routes every RPC through the bank's circuit breaker.
// Structured non-success responses return a nil error and therefore
// never count against the breaker; only transport-level failures do.
type breakerClient struct {
	inner rpcpb.BankServiceClient
	cb    *gobreaker.CircuitBreaker[any]
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (*T, error)) (*T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}

func (b *breakerClient) VerifyCredentials(ctx context.Context, in *rpcpb.VerifyCredentialsRequest, opts ...grpc.CallOption) (*rpcpb.VerifyCredentialsResponse, error) {
	return execute(b.cb, func() (*rpcpb.VerifyCredentialsResponse, error) { return b.inner.VerifyCredentials(ctx, in, opts...) })
}

func (b *breakerClient) GetBalance(ctx context.Context, in *rpcpb.GetBalanceRequest, opts ...grpc.CallOption) (*rpcpb.GetBalanceResponse, error) {
	return execute(b.cb, func() (*rpcpb.GetBalanceResponse, error) { return b.inner.GetBalance(ctx, in, opts...) })
}

func (b *breakerClient) GetTransactionHistory(ctx context.Context, in *rpcpb.GetTransactionHistoryRequest, opts ...grpc.CallOption) (*rpcpb.GetTransactionHistoryResponse, error) {
	return execute(b.cb, func() (*rpcpb.GetTransactionHistoryResponse, error) { return b.inner.GetTransactionHistory(ctx, in, opts...) })
}

func (b *breakerClient) ProcessTransaction(ctx context.Context, in *rpcpb.ProcessTransactionRequest, opts ...grpc.CallOption) (*rpcpb.ProcessTransactionResponse, error) {
	return execute(b.cb, func() (*rpcpb.ProcessTransactionResponse, error) { return b.inner.ProcessTransaction(ctx, in, opts...) })
}

func (b *breakerClient) PrepareTransaction(ctx context.Context, in *rpcpb.PrepareTransactionRequest, opts ...grpc.CallOption) (*rpcpb.PrepareTransactionResponse, error) {
	return execute(b.cb, func() (*rpcpb.PrepareTransactionResponse, error) { return b.inner.PrepareTransaction(ctx, in, opts...) })
}

func (b *breakerClient) CommitTransaction(ctx context.Context, in *rpcpb.CommitTransactionRequest, opts ...grpc.CallOption) (*rpcpb.CommitTransactionResponse, error) {
	return execute(b.cb, func() (*rpcpb.CommitTransactionResponse, error) { return b.inner.CommitTransaction(ctx, in, opts...) })
}

func (b *breakerClient) AbortTransaction(ctx context.Context, in *rpcpb.AbortTransactionRequest, opts ...grpc.CallOption) (*rpcpb.AbortTransactionResponse, error) {
	return execute(b.cb, func() (*rpcpb.AbortTransactionResponse, error) { return b.inner.AbortTransaction(ctx, in, opts...) })
}
