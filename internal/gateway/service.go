package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/authinterceptor"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Service implements rpcpb.GatewayServiceServer. The auth interceptor
// has already rejected missing/unknown/expired tokens before any
// method except Authenticate runs; authorization against the requested
// account happens here, because the account identity is in the request
// body.
type Service struct {
	tokens *TokenStore
	cache  *IdempotencyCache
	banks  Stubs
	coord  *Coordinator
	logger *slog.Logger
}

func NewService(tokens *TokenStore, cache *IdempotencyCache, banks Stubs, coord *Coordinator, logger *slog.Logger) *Service {
	return &Service{
		tokens: tokens,
		cache:  cache,
		banks:  banks,
		coord:  coord,
		logger: logger,
	}
}

// Authenticate verifies credentials at the owning bank and mints a
// session token bound to the verified account.
func (s *Service) Authenticate(ctx context.Context, req *rpcpb.AuthenticateRequest) (*rpcpb.AuthenticateResponse, error) {
	stub, err := s.banks.StubFor(ctx, req.Bank)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeUnknownBank {
			return nil, status.Error(codes.InvalidArgument, dErr.Message)
		}
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", req.Bank, err)
	}

	resp, err := stub.VerifyCredentials(ctx, &rpcpb.VerifyCredentialsRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		s.logger.Error("credential verification failed", "bank", req.Bank, "username", req.Username, "error", err)
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", req.Bank, rpcErrText(err))
	}
	if !resp.Valid {
		return &rpcpb.AuthenticateResponse{Success: false, Message: "authentication failed: " + resp.Message}, nil
	}

	token, err := s.tokens.Mint(req.Username, req.Bank, resp.AccountID)
	if err != nil {
		s.logger.Error("minting token", "username", req.Username, "error", err)
		return nil, status.Error(codes.Internal, "could not create session")
	}

	s.logger.Info("authenticated", "username", req.Username, "bank", req.Bank, "account", resp.AccountID)
	return &rpcpb.AuthenticateResponse{Success: true, Token: token, Message: "authenticated"}, nil
}

func (s *Service) CheckBalance(ctx context.Context, req *rpcpb.CheckBalanceRequest) (*rpcpb.CheckBalanceResponse, error) {
	tok, err := s.callerToken(ctx)
	if err != nil {
		return nil, err
	}

	accountID := req.AccountID
	if accountID == "" {
		accountID = tok.AccountID
	}
	if accountID != tok.AccountID {
		return nil, status.Errorf(codes.PermissionDenied, "token is not bound to account %s", accountID)
	}

	stub, err := s.banks.StubFor(ctx, tok.Bank)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", tok.Bank, err)
	}

	resp, err := stub.GetBalance(ctx, &rpcpb.GetBalanceRequest{AccountID: accountID})
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", tok.Bank, rpcErrText(err))
	}
	if !resp.Success {
		return nil, status.Error(codes.NotFound, resp.Message)
	}
	return &rpcpb.CheckBalanceResponse{Success: true, BalanceCents: resp.BalanceCents, Message: "ok"}, nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, req *rpcpb.GetGatewayTransactionHistoryRequest) (*rpcpb.GetGatewayTransactionHistoryResponse, error) {
	tok, err := s.callerToken(ctx)
	if err != nil {
		return nil, err
	}

	accountID := req.AccountID
	if accountID == "" {
		accountID = tok.AccountID
	}
	if accountID != tok.AccountID {
		return nil, status.Errorf(codes.PermissionDenied, "token is not bound to account %s", accountID)
	}

	stub, err := s.banks.StubFor(ctx, tok.Bank)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", tok.Bank, err)
	}

	resp, err := stub.GetTransactionHistory(ctx, &rpcpb.GetTransactionHistoryRequest{AccountID: accountID, Limit: req.Limit})
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "bank %s unreachable: %v", tok.Bank, rpcErrText(err))
	}
	if !resp.Success {
		return nil, status.Error(codes.NotFound, resp.Message)
	}
	return &rpcpb.GetGatewayTransactionHistoryResponse{Success: true, Transactions: resp.Transactions, Message: "ok"}, nil
}

// ProcessPayment is the idempotent payment entry point. Order matters:
// authorization, then the idempotency lookup, then validation and the
// upstream funds pre-check, then the 2PC run. The cache is written
// only for terminal outcomes.
func (s *Service) ProcessPayment(ctx context.Context, req *rpcpb.ProcessPaymentRequest) (*rpcpb.ProcessPaymentResponse, error) {
	tok, err := s.callerToken(ctx)
	if err != nil {
		return nil, err
	}

	if req.SenderAccount != "" && req.SenderAccount != "self" && req.SenderAccount != tok.AccountID {
		return nil, status.Errorf(codes.PermissionDenied, "not authorized to pay from account %s", req.SenderAccount)
	}

	if cached, ok := s.cache.Lookup(req.PaymentID); ok {
		s.logger.Info("returning cached outcome for payment", "payment_id", req.PaymentID, "status", cached.Status)
		return paymentResponse(cached), nil
	}

	if req.AmountCents <= 0 {
		result := failed("", domain.NewInvalidAmountError(req.AmountCents).Message, false)
		s.cacheOutcome(req.PaymentID, result)
		return paymentResponse(result), nil
	}

	if _, err := s.banks.StubFor(ctx, req.ReceiverBank); err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeUnknownBank {
			result := failed("", fmt.Sprintf("receiver bank %s not found", req.ReceiverBank), false)
			s.cacheOutcome(req.PaymentID, result)
			return paymentResponse(result), nil
		}
		// Transport-class: not cached, the client may retry.
		return paymentResponse(failed("", fmt.Sprintf("receiver bank %s unavailable: %v", req.ReceiverBank, err), true)), nil
	}

	// Funds pre-check at the sender bank. Advisory only: the
	// authoritative check is the bank's own, at prepare and again at
	// commit. Failing early here turns the common case into a clean
	// refusal before any 2PC state exists. A self-transfer skips the
	// check entirely; it moves no money and must touch no bank.
	isSelfTransfer := req.ReceiverBank == tok.Bank && req.ReceiverAccount == tok.AccountID
	if !isSelfTransfer {
		senderStub, err := s.banks.StubFor(ctx, tok.Bank)
		if err != nil {
			return paymentResponse(failed("", fmt.Sprintf("sender bank %s unavailable: %v", tok.Bank, err), true)), nil
		}
		balance, err := senderStub.GetBalance(ctx, &rpcpb.GetBalanceRequest{AccountID: tok.AccountID})
		if err != nil {
			return paymentResponse(failed("", fmt.Sprintf("could not verify balance: %s", rpcErrText(err)), true)), nil
		}
		if !balance.Success {
			result := failed("", "could not verify balance: "+balance.Message, false)
			s.cacheOutcome(req.PaymentID, result)
			return paymentResponse(result), nil
		}
		if balance.BalanceCents < req.AmountCents {
			result := failed("", fmt.Sprintf("insufficient funds: available %d, required %d", balance.BalanceCents, req.AmountCents), false)
			s.cacheOutcome(req.PaymentID, result)
			return paymentResponse(result), nil
		}
	}

	result := s.coord.Execute(ctx, Payment{
		PaymentID:       req.PaymentID,
		SenderBank:      tok.Bank,
		SenderAccount:   tok.AccountID,
		ReceiverBank:    req.ReceiverBank,
		ReceiverAccount: req.ReceiverAccount,
		AmountCents:     req.AmountCents,
	})

	s.cacheOutcome(req.PaymentID, result)
	return paymentResponse(result), nil
}

func (s *Service) cacheOutcome(paymentID string, result domain.PaymentResult) {
	if err := s.cache.Store(paymentID, result); err != nil {
		s.logger.Error("persisting idempotency cache", "payment_id", paymentID, "error", err)
	}
}

// callerToken resolves the request's token to its record. The
// interceptor has already validated presence and expiry; a miss here
// means the token was swept between the two checks.
func (s *Service) callerToken(ctx context.Context) (domain.Token, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Token{}, status.Error(codes.Unauthenticated, "no request metadata")
	}
	values := md.Get(authinterceptor.TokenMetadataKey)
	if len(values) == 0 {
		return domain.Token{}, status.Error(codes.Unauthenticated, "missing token")
	}
	tok, ok := s.tokens.Lookup(values[0])
	if !ok {
		return domain.Token{}, status.Error(codes.Unauthenticated, "missing, unknown, or expired token")
	}
	return tok, nil
}

func paymentResponse(result domain.PaymentResult) *rpcpb.ProcessPaymentResponse {
	return &rpcpb.ProcessPaymentResponse{
		Success:       result.Success,
		TransactionID: result.GlobalTransactionID,
		Status:        string(result.Status),
		Message:       result.Message,
		Retriable:     result.Retriable,
	}
}
