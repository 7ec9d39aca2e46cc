package gateway

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/authinterceptor"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type serviceFixture struct {
	svc      *Service
	tokens   *TokenStore
	sender   *fakeBank
	receiver *fakeBank
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dir := t.TempDir()
	logger := discardLogger()

	tokens, err := NewTokenStore(filepath.Join(dir, "tokens.json"), time.Hour, logger)
	if err != nil {
		t.Fatalf("token store: %v", err)
	}
	cache, err := NewIdempotencyCache(filepath.Join(dir, "idempotency.json"), logger)
	if err != nil {
		t.Fatalf("idempotency cache: %v", err)
	}

	sender, receiver := newFakeBank(), newFakeBank()
	stubs := &fakeStubs{banks: map[string]rpcpb.BankServiceClient{"Bank1": sender, "Bank2": receiver}}
	coord := NewCoordinator(stubs, 10*time.Second, 2*time.Second, time.Second, logger)

	return &serviceFixture{
		svc:      NewService(tokens, cache, stubs, coord, logger),
		tokens:   tokens,
		sender:   sender,
		receiver: receiver,
	}
}

// authedCtx mints a token for user1@Bank1/ACC001 and attaches it the
// way the wire would.
func (f *serviceFixture) authedCtx(t *testing.T) context.Context {
	t.Helper()
	value, err := f.tokens.Mint("user1", "Bank1", "ACC001")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	md := metadata.Pairs(authinterceptor.TokenMetadataKey, value)
	return metadata.NewIncomingContext(context.Background(), md)
}

func paymentReq(paymentID string) *rpcpb.ProcessPaymentRequest {
	return &rpcpb.ProcessPaymentRequest{
		SenderAccount:   "self",
		ReceiverAccount: "ACC002",
		ReceiverBank:    "Bank2",
		AmountCents:     15_000,
		PaymentID:       paymentID,
	}
}

func TestAuthenticate_MintsToken(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.Authenticate(context.Background(), &rpcpb.AuthenticateRequest{
		Username: "user1", Password: "pass1", Bank: "Bank1",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("expected minted token, got %+v", resp)
	}
	if !f.tokens.Check(context.Background(), resp.Token) {
		t.Error("minted token must be live in the store")
	}
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	f := newServiceFixture(t)
	f.sender.VerifyCredentialsFn = func(*rpcpb.VerifyCredentialsRequest) (*rpcpb.VerifyCredentialsResponse, error) {
		return &rpcpb.VerifyCredentialsResponse{Valid: false, Message: "invalid credentials"}, nil
	}

	resp, err := f.svc.Authenticate(context.Background(), &rpcpb.AuthenticateRequest{
		Username: "user1", Password: "wrong", Bank: "Bank1",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if resp.Success || resp.Token != "" {
		t.Errorf("bad credentials must not mint a token: %+v", resp)
	}
}

func TestAuthenticate_UnknownBank(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Authenticate(context.Background(), &rpcpb.AuthenticateRequest{
		Username: "user1", Password: "pass1", Bank: "BankZ",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected invalid-argument for unknown bank, got %v", err)
	}
}

func TestProcessPayment_HappyPathThenIdempotentReplay(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	first, err := f.svc.ProcessPayment(ctx, paymentReq("p-1"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !first.Success || first.Status != string(domain.StatusCompleted) {
		t.Fatalf("expected completed, got %+v", first)
	}

	prepares := f.sender.Calls("PrepareTransaction")
	commits := f.sender.Calls("CommitTransaction")

	second, err := f.svc.ProcessPayment(ctx, paymentReq("p-1"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.Success != first.Success || second.TransactionID != first.TransactionID || second.Status != first.Status {
		t.Errorf("replay must return the cached outcome verbatim: %+v vs %+v", first, second)
	}
	if f.sender.Calls("PrepareTransaction") != prepares || f.sender.Calls("CommitTransaction") != commits {
		t.Error("a cached payment id must not touch the banks again")
	}
}

func TestProcessPayment_WrongSenderAccountIsPermissionDenied(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	req := paymentReq("p-2")
	req.SenderAccount = "ACC777"
	_, err := f.svc.ProcessPayment(ctx, req)
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected permission-denied, got %v", err)
	}
	if f.sender.Calls("PrepareTransaction") != 0 {
		t.Error("an unauthorized payment must not reach any bank")
	}
}

func TestProcessPayment_InsufficientFundsCached(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)
	f.sender.GetBalanceFn = func(*rpcpb.GetBalanceRequest) (*rpcpb.GetBalanceResponse, error) {
		return &rpcpb.GetBalanceResponse{Success: true, BalanceCents: 1_000, Message: "ok"}, nil
	}

	resp, err := f.svc.ProcessPayment(ctx, paymentReq("p-3"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Success || resp.Status != string(domain.StatusFailed) {
		t.Fatalf("expected failed, got %+v", resp)
	}
	if f.sender.Calls("PrepareTransaction") != 0 {
		t.Error("insufficient funds must fail before any 2PC state exists")
	}

	// Retry resolves from the cache without another balance lookup.
	balanceCalls := f.sender.Calls("GetBalance")
	again, err := f.svc.ProcessPayment(ctx, paymentReq("p-3"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.Message != resp.Message {
		t.Error("retry must return the original cached failure")
	}
	if f.sender.Calls("GetBalance") != balanceCalls {
		t.Error("cached outcome must not re-check the balance")
	}
}

func TestProcessPayment_UnknownReceiverBankCached(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	req := paymentReq("p-4")
	req.ReceiverBank = "BankZ"
	resp, err := f.svc.ProcessPayment(ctx, req)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Success || resp.Status != string(domain.StatusFailed) {
		t.Fatalf("expected failed, got %+v", resp)
	}

	again, err := f.svc.ProcessPayment(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.Message != resp.Message {
		t.Error("unknown-bank outcome must be cached and replayed")
	}
	if f.receiver.Calls("PrepareTransaction")+f.sender.Calls("PrepareTransaction") != 0 {
		t.Error("no bank may be touched for an unknown receiver bank")
	}
}

func TestProcessPayment_TransientFailureRetriesFresh(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	f.receiver.PrepareFn = func(*rpcpb.PrepareTransactionRequest) (*rpcpb.PrepareTransactionResponse, error) {
		return nil, status.Error(codes.Unavailable, "connection refused")
	}

	resp, err := f.svc.ProcessPayment(ctx, paymentReq("p-5"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure while receiver bank is down, got %+v", resp)
	}

	// The bank comes back; the same payment id must get a fresh 2PC
	// attempt and succeed.
	f.receiver.PrepareFn = nil
	retry, err := f.svc.ProcessPayment(ctx, paymentReq("p-5"))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !retry.Success || retry.Status != string(domain.StatusCompleted) {
		t.Fatalf("retry after transient failure must progress, got %+v", retry)
	}
}

func TestProcessPayment_SelfTransferSkipsBanks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	resp, err := f.svc.ProcessPayment(ctx, &rpcpb.ProcessPaymentRequest{
		SenderAccount:   "self",
		ReceiverAccount: "ACC001",
		ReceiverBank:    "Bank1",
		AmountCents:     5_000,
		PaymentID:       "p-6",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !resp.Success || resp.Status != string(domain.StatusCompleted) {
		t.Fatalf("expected completed self-transfer, got %+v", resp)
	}
	for _, method := range []string{"GetBalance", "PrepareTransaction", "CommitTransaction"} {
		if f.sender.Calls(method) != 0 {
			t.Errorf("self-transfer must not call %s on any bank", method)
		}
	}
}

func TestCheckBalance_OwnAccountOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	resp, err := f.svc.CheckBalance(ctx, &rpcpb.CheckBalanceRequest{})
	if err != nil {
		t.Fatalf("check balance: %v", err)
	}
	if !resp.Success || resp.BalanceCents != 100_000 {
		t.Errorf("expected own balance, got %+v", resp)
	}

	_, err = f.svc.CheckBalance(ctx, &rpcpb.CheckBalanceRequest{AccountID: "ACC777"})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected permission-denied for foreign account, got %v", err)
	}
}

func TestProcessPayment_ExpiredTokenRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := f.authedCtx(t)

	f.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := f.svc.ProcessPayment(ctx, paymentReq("p-7"))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected unauthenticated with expired token, got %v", err)
	}
}
