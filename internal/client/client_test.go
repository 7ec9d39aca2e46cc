package client

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/config"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeGateway is an in-process rpcpb.GatewayServiceClient.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	AuthenticateFn   func(*rpcpb.AuthenticateRequest) (*rpcpb.AuthenticateResponse, error)
	CheckBalanceFn   func(*rpcpb.CheckBalanceRequest) (*rpcpb.CheckBalanceResponse, error)
	ProcessPaymentFn func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error)

	payments []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (f *fakeGateway) inc(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeGateway) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeGateway) Payments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.payments))
	copy(out, f.payments)
	return out
}

func (f *fakeGateway) Authenticate(ctx context.Context, in *rpcpb.AuthenticateRequest, opts ...grpc.CallOption) (*rpcpb.AuthenticateResponse, error) {
	f.inc("Authenticate")
	if f.AuthenticateFn != nil {
		return f.AuthenticateFn(in)
	}
	return &rpcpb.AuthenticateResponse{Success: true, Token: "tok-1", Message: "authenticated"}, nil
}

func (f *fakeGateway) CheckBalance(ctx context.Context, in *rpcpb.CheckBalanceRequest, opts ...grpc.CallOption) (*rpcpb.CheckBalanceResponse, error) {
	f.inc("CheckBalance")
	if f.CheckBalanceFn != nil {
		return f.CheckBalanceFn(in)
	}
	return &rpcpb.CheckBalanceResponse{Success: true, BalanceCents: 100_000, Message: "ok"}, nil
}

func (f *fakeGateway) ProcessPayment(ctx context.Context, in *rpcpb.ProcessPaymentRequest, opts ...grpc.CallOption) (*rpcpb.ProcessPaymentResponse, error) {
	f.inc("ProcessPayment")
	f.mu.Lock()
	f.payments = append(f.payments, in.PaymentID)
	f.mu.Unlock()
	if f.ProcessPaymentFn != nil {
		return f.ProcessPaymentFn(in)
	}
	return &rpcpb.ProcessPaymentResponse{Success: true, TransactionID: "gtx-1", Status: "completed", Message: "ok"}, nil
}

func (f *fakeGateway) GetTransactionHistory(ctx context.Context, in *rpcpb.GetGatewayTransactionHistoryRequest, opts ...grpc.CallOption) (*rpcpb.GetGatewayTransactionHistoryResponse, error) {
	f.inc("GetTransactionHistory")
	return &rpcpb.GetGatewayTransactionHistoryResponse{Success: true, Message: "ok"}, nil
}

func newTestClient(t *testing.T, gw *fakeGateway) *Client {
	t.Helper()
	cfg := &config.ClientConfig{
		GatewayAddr:   "localhost:0",
		QueueDir:      t.TempDir(),
		CheckInterval: 20 * time.Millisecond,
	}
	c, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.api = gw
	c.token = "tok-1"
	return c
}

func TestMakePayment_SuccessRemovesQueueEntry(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(t, gw)

	resp, err := c.MakePayment("ACC002", "Bank2", 10_000, "")
	if err != nil {
		t.Fatalf("make payment: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if c.queue.Len() != 0 {
		t.Error("confirmed payment must leave the queue")
	}
}

func TestMakePayment_UnavailableKeepsQueueEntry(t *testing.T) {
	gw := newFakeGateway()
	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return nil, status.Error(codes.Unavailable, "connection refused")
	}
	c := newTestClient(t, gw)

	_, err := c.MakePayment("ACC002", "Bank2", 10_000, "p-1")
	if err == nil {
		t.Fatal("expected an error while the gateway is down")
	}
	pending, _ := c.queue.List()
	if len(pending) != 1 || pending[0].PaymentID != "p-1" {
		t.Fatalf("payment must stay queued for replay, got %v", pending)
	}
}

func TestMakePayment_StructuredFailureKeepsQueueEntry(t *testing.T) {
	gw := newFakeGateway()
	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return &rpcpb.ProcessPaymentResponse{Success: false, Status: "failed", Message: "insufficient funds"}, nil
	}
	c := newTestClient(t, gw)

	resp, err := c.MakePayment("ACC002", "Bank2", 10_000, "p-1")
	if err != nil {
		t.Fatalf("make payment: %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure")
	}
	// The record stays until a replay reconciles it against the
	// gateway's cache.
	if c.queue.Len() != 1 {
		t.Error("failed payment must stay queued until reconciled")
	}
}

func TestRetryPending_ReplaysWithStoredPaymentIDs(t *testing.T) {
	gw := newFakeGateway()
	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return nil, status.Error(codes.Unavailable, "connection refused")
	}
	c := newTestClient(t, gw)

	if _, err := c.MakePayment("ACC002", "Bank2", 100, "p-1"); err == nil {
		t.Fatal("expected transport failure")
	}
	if _, err := c.MakePayment("ACC003", "Bank2", 200, "p-2"); err == nil {
		t.Fatal("expected transport failure")
	}

	gw.ProcessPaymentFn = nil
	retried, resolved, err := c.RetryPending()
	if err != nil {
		t.Fatalf("retry pending: %v", err)
	}
	if retried != 2 || resolved != 2 {
		t.Errorf("expected 2 retried and resolved, got %d/%d", retried, resolved)
	}
	if c.queue.Len() != 0 {
		t.Error("confirmed replays must drain the queue")
	}

	// The replay must reuse the stored ids so the gateway's
	// idempotency cache can resolve them.
	seen := map[string]int{}
	for _, id := range gw.Payments() {
		seen[id]++
	}
	if seen["p-1"] != 2 || seen["p-2"] != 2 {
		t.Errorf("replays must carry the original payment ids, saw %v", seen)
	}
}

func TestRetryPending_TerminalFailureReconcilesEntry(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(t, gw)

	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return &rpcpb.ProcessPaymentResponse{Success: false, Status: "failed", Message: "receiver bank BankZ not found"}, nil
	}
	if _, err := c.MakePayment("ACC002", "BankZ", 100, "p-1"); err != nil {
		t.Fatalf("make payment: %v", err)
	}
	if c.queue.Len() != 1 {
		t.Fatal("expected the failure to stay queued initially")
	}

	// The replay gets the cached terminal failure and deletes the
	// record.
	_, resolved, err := c.RetryPending()
	if err != nil {
		t.Fatalf("retry pending: %v", err)
	}
	if resolved != 1 || c.queue.Len() != 0 {
		t.Errorf("terminal failure on replay must reconcile the entry, resolved=%d len=%d", resolved, c.queue.Len())
	}
}

func TestRetryPending_RetriableFailureStaysQueued(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(t, gw)

	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return &rpcpb.ProcessPaymentResponse{Success: false, Status: "failed", Message: "sender bank unreachable", Retriable: true}, nil
	}
	if _, err := c.MakePayment("ACC002", "Bank2", 100, "p-1"); err != nil {
		t.Fatalf("make payment: %v", err)
	}

	_, resolved, err := c.RetryPending()
	if err != nil {
		t.Fatalf("retry pending: %v", err)
	}
	if resolved != 0 || c.queue.Len() != 1 {
		t.Errorf("a retriable failure must stay queued, resolved=%d len=%d", resolved, c.queue.Len())
	}
}

func TestMonitor_ReplaysQueueAndIsSingleInstance(t *testing.T) {
	gw := newFakeGateway()
	gw.ProcessPaymentFn = func(*rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
		return nil, status.Error(codes.Unavailable, "connection refused")
	}
	c := newTestClient(t, gw)

	if _, err := c.MakePayment("ACC002", "Bank2", 100, "p-4"); err == nil {
		t.Fatal("expected transport failure")
	}

	gw.ProcessPaymentFn = nil
	c.StartMonitor()
	c.StartMonitor() // second start is a no-op
	defer c.StopMonitor()

	deadline := time.Now().Add(2 * time.Second)
	for c.queue.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.queue.Len() != 0 {
		t.Fatal("supervisor must replay and drain the queue")
	}

	// Exactly one successful replay of p-4 after the initial failed
	// send: a doubled supervisor would have raced a second replay.
	count := 0
	for _, id := range gw.Payments() {
		if id == "p-4" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected initial send plus one replay, saw %d sends", count)
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	c := newTestClient(t, newFakeGateway())
	c.StartMonitor()
	c.StopMonitor()
	c.StopMonitor() // must not panic on a stopped monitor
}

func TestMakePayment_RequiresAuthentication(t *testing.T) {
	c := newTestClient(t, newFakeGateway())
	c.token = ""

	if _, err := c.MakePayment("ACC002", "Bank2", 100, ""); err == nil {
		t.Error("unauthenticated payment must be rejected locally")
	}
}
