package gateway

import (
	"context"
	"sync"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"google.golang.org/grpc"
)

// fakeBank is an in-process rpcpb.BankServiceClient with per-method
// hooks and call accounting.
type fakeBank struct {
	mu    sync.Mutex
	calls map[string]int

	VerifyCredentialsFn  func(*rpcpb.VerifyCredentialsRequest) (*rpcpb.VerifyCredentialsResponse, error)
	GetBalanceFn         func(*rpcpb.GetBalanceRequest) (*rpcpb.GetBalanceResponse, error)
	GetHistoryFn         func(*rpcpb.GetTransactionHistoryRequest) (*rpcpb.GetTransactionHistoryResponse, error)
	ProcessTransactionFn func(*rpcpb.ProcessTransactionRequest) (*rpcpb.ProcessTransactionResponse, error)
	PrepareFn            func(*rpcpb.PrepareTransactionRequest) (*rpcpb.PrepareTransactionResponse, error)
	CommitFn             func(*rpcpb.CommitTransactionRequest) (*rpcpb.CommitTransactionResponse, error)
	AbortFn              func(*rpcpb.AbortTransactionRequest) (*rpcpb.AbortTransactionResponse, error)

	prepares []string
	commits  []string
	aborts   []string
}

func newFakeBank() *fakeBank {
	return &fakeBank{calls: make(map[string]int)}
}

func (f *fakeBank) inc(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeBank) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBank) Aborted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.aborts))
	copy(out, f.aborts)
	return out
}

func (f *fakeBank) VerifyCredentials(ctx context.Context, in *rpcpb.VerifyCredentialsRequest, opts ...grpc.CallOption) (*rpcpb.VerifyCredentialsResponse, error) {
	f.inc("VerifyCredentials")
	if f.VerifyCredentialsFn != nil {
		return f.VerifyCredentialsFn(in)
	}
	return &rpcpb.VerifyCredentialsResponse{Valid: true, AccountID: "ACC001", Message: "ok"}, nil
}

func (f *fakeBank) GetBalance(ctx context.Context, in *rpcpb.GetBalanceRequest, opts ...grpc.CallOption) (*rpcpb.GetBalanceResponse, error) {
	f.inc("GetBalance")
	if f.GetBalanceFn != nil {
		return f.GetBalanceFn(in)
	}
	return &rpcpb.GetBalanceResponse{Success: true, BalanceCents: 100_000, Message: "ok"}, nil
}

func (f *fakeBank) GetTransactionHistory(ctx context.Context, in *rpcpb.GetTransactionHistoryRequest, opts ...grpc.CallOption) (*rpcpb.GetTransactionHistoryResponse, error) {
	f.inc("GetTransactionHistory")
	if f.GetHistoryFn != nil {
		return f.GetHistoryFn(in)
	}
	return &rpcpb.GetTransactionHistoryResponse{Success: true, Message: "ok"}, nil
}

func (f *fakeBank) ProcessTransaction(ctx context.Context, in *rpcpb.ProcessTransactionRequest, opts ...grpc.CallOption) (*rpcpb.ProcessTransactionResponse, error) {
	f.inc("ProcessTransaction")
	if f.ProcessTransactionFn != nil {
		return f.ProcessTransactionFn(in)
	}
	return &rpcpb.ProcessTransactionResponse{Success: true, Message: "ok"}, nil
}

func (f *fakeBank) PrepareTransaction(ctx context.Context, in *rpcpb.PrepareTransactionRequest, opts ...grpc.CallOption) (*rpcpb.PrepareTransactionResponse, error) {
	f.inc("PrepareTransaction")
	f.mu.Lock()
	f.prepares = append(f.prepares, in.TransactionID)
	f.mu.Unlock()
	if f.PrepareFn != nil {
		return f.PrepareFn(in)
	}
	return &rpcpb.PrepareTransactionResponse{Ready: true, Message: "ready to commit"}, nil
}

func (f *fakeBank) CommitTransaction(ctx context.Context, in *rpcpb.CommitTransactionRequest, opts ...grpc.CallOption) (*rpcpb.CommitTransactionResponse, error) {
	f.inc("CommitTransaction")
	f.mu.Lock()
	f.commits = append(f.commits, in.TransactionID)
	f.mu.Unlock()
	if f.CommitFn != nil {
		return f.CommitFn(in)
	}
	return &rpcpb.CommitTransactionResponse{Success: true, Message: "committed"}, nil
}

func (f *fakeBank) AbortTransaction(ctx context.Context, in *rpcpb.AbortTransactionRequest, opts ...grpc.CallOption) (*rpcpb.AbortTransactionResponse, error) {
	f.inc("AbortTransaction")
	f.mu.Lock()
	f.aborts = append(f.aborts, in.TransactionID)
	f.mu.Unlock()
	if f.AbortFn != nil {
		return f.AbortFn(in)
	}
	return &rpcpb.AbortTransactionResponse{Success: true, Message: "aborted"}, nil
}

// fakeStubs maps bank names to fakes the way the real StubTable maps
// them to channels.
type fakeStubs struct {
	banks map[string]rpcpb.BankServiceClient
}

func (f *fakeStubs) StubFor(ctx context.Context, bank string) (rpcpb.BankServiceClient, error) {
	stub, ok := f.banks[bank]
	if !ok {
		return nil, domain.NewUnknownBankError(bank)
	}
	return stub, nil
}
