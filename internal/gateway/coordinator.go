package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// paymentNamespace seeds the deterministic global transaction id: the
// same payment id always derives the same global id, and therefore the
// same per-participant ids, so a retried payment re-Prepares under ids
// the banks have already seen and Prepare stays idempotent end to end.
var paymentNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Payment is one transfer the coordinator drives through 2PC.
type Payment struct {
	PaymentID       string
	SenderBank      string
	SenderAccount   string
	ReceiverBank    string
	ReceiverAccount string
	AmountCents     int64
}

// Coordinator is the 2PC transaction manager: for one payment it
// drives the sender and receiver banks through prepare -> commit or
// prepare -> abort. Amount validation and idempotency lookup happen
// upstream in the service.
type Coordinator struct {
	banks        Stubs
	phaseTimeout time.Duration
	abortTimeout time.Duration
	safetyMargin time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewCoordinator(banks Stubs, phaseTimeout, abortTimeout, safetyMargin time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		banks:        banks,
		phaseTimeout: phaseTimeout,
		abortTimeout: abortTimeout,
		safetyMargin: safetyMargin,
		logger:       logger,
		now:          time.Now,
	}
}

// GlobalTransactionID derives the stable global id for a payment id.
func GlobalTransactionID(paymentID string) string {
	if paymentID == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(paymentNamespace, []byte(paymentID)).String()
}

func failed(globalID, message string, retriable bool) domain.PaymentResult {
	return domain.PaymentResult{
		Success:             false,
		GlobalTransactionID: globalID,
		Status:              domain.StatusFailed,
		Message:             message,
		Retriable:           retriable,
	}
}

func critical(globalID, message string) domain.PaymentResult {
	return domain.PaymentResult{
		Success:             false,
		GlobalTransactionID: globalID,
		Status:              domain.StatusError,
		Message:             message,
		Retriable:           false,
	}
}

// Execute runs the full protocol for one payment.
//
// Outcome classification: transport errors and timeouts before any
// commit are retriable (left uncached upstream so the client's replay
// loop can make progress); an explicit NO vote, a commit-phase
// failure, and the distinguished critical state are terminal.
func (c *Coordinator) Execute(ctx context.Context, p Payment) domain.PaymentResult {
	globalID := GlobalTransactionID(p.PaymentID)

	// Self-transfer bypasses the protocol entirely: no bank is
	// contacted and no balance changes.
	if p.SenderBank == p.ReceiverBank && p.SenderAccount == p.ReceiverAccount {
		c.logger.Info("self-transfer, skipping 2PC", "payment_id", p.PaymentID)
		return domain.PaymentResult{
			Success:             true,
			GlobalTransactionID: globalID,
			Status:              domain.StatusCompleted,
			Message:             "self-transfer processed (no balance change)",
		}
	}

	sender, err := c.banks.StubFor(ctx, p.SenderBank)
	if err != nil {
		return c.stubFailure(globalID, "sender", p.SenderBank, err)
	}
	receiver, err := c.banks.StubFor(ctx, p.ReceiverBank)
	if err != nil {
		return c.stubFailure(globalID, "receiver", p.ReceiverBank, err)
	}

	senderTxID := fmt.Sprintf("%s-sender-%s", globalID, p.PaymentID)
	receiverTxID := fmt.Sprintf("%s-receiver-%s", globalID, p.PaymentID)

	start := c.now()
	c.logger.Info("2PC phase 1: prepare",
		"payment_id", p.PaymentID, "global_id", globalID,
		"sender", p.SenderBank+"/"+p.SenderAccount, "receiver", p.ReceiverBank+"/"+p.ReceiverAccount,
		"amount_cents", p.AmountCents)

	deadline := c.now().Add(c.phaseTimeout)

	// Prepare sender (debit). On transport failure no abort is needed:
	// the sender may never have accepted the prepare, and if it did,
	// an eventual retry re-Prepares under the same id.
	prepCtx, cancel := context.WithDeadline(ctx, deadline)
	senderPrep, err := sender.PrepareTransaction(prepCtx, &rpcpb.PrepareTransactionRequest{
		TransactionID: senderTxID,
		AccountID:     p.SenderAccount,
		Kind:          string(domain.LedgerDebit),
		AmountCents:   p.AmountCents,
		Counterparty:  p.ReceiverBank + "/" + p.ReceiverAccount,
	})
	cancel()
	if err != nil {
		c.logger.Error("prepare failed at sender bank", "payment_id", p.PaymentID, "error", err)
		return failed(globalID, fmt.Sprintf("error preparing with sender bank: %s", rpcErrText(err)), true)
	}
	if !senderPrep.Ready {
		c.logger.Warn("sender bank voted NO", "payment_id", p.PaymentID, "message", senderPrep.Message)
		return failed(globalID, fmt.Sprintf("sender bank cannot process: %s", senderPrep.Message), false)
	}

	if c.now().After(deadline.Add(-c.safetyMargin)) {
		c.logger.Error("approaching deadline after sender prepare, aborting", "payment_id", p.PaymentID)
		c.abort(sender, p.SenderBank, senderTxID)
		return failed(globalID, "transaction timed out during preparation phase", true)
	}

	// Prepare receiver (credit).
	prepCtx, cancel = context.WithDeadline(ctx, deadline)
	receiverPrep, err := receiver.PrepareTransaction(prepCtx, &rpcpb.PrepareTransactionRequest{
		TransactionID: receiverTxID,
		AccountID:     p.ReceiverAccount,
		Kind:          string(domain.LedgerCredit),
		AmountCents:   p.AmountCents,
		Counterparty:  p.SenderBank + "/" + p.SenderAccount,
	})
	cancel()
	if err != nil {
		c.logger.Error("prepare failed at receiver bank", "payment_id", p.PaymentID, "error", err)
		c.abort(sender, p.SenderBank, senderTxID)
		return failed(globalID, fmt.Sprintf("error preparing with receiver bank: %s", rpcErrText(err)), true)
	}
	if !receiverPrep.Ready {
		c.logger.Warn("receiver bank voted NO", "payment_id", p.PaymentID, "message", receiverPrep.Message)
		c.abort(sender, p.SenderBank, senderTxID)
		return failed(globalID, fmt.Sprintf("receiver bank cannot process: %s", receiverPrep.Message), false)
	}

	if c.now().After(deadline.Add(-c.safetyMargin)) {
		c.logger.Error("approaching deadline after prepare phase, aborting both", "payment_id", p.PaymentID)
		c.abort(sender, p.SenderBank, senderTxID)
		c.abort(receiver, p.ReceiverBank, receiverTxID)
		return failed(globalID, "transaction timed out before commit phase", true)
	}

	// Both voted YES: commit, sender first.
	c.logger.Info("2PC phase 2: commit", "payment_id", p.PaymentID, "global_id", globalID)
	deadline = c.now().Add(c.phaseTimeout)

	commitCtx, cancel := context.WithDeadline(ctx, deadline)
	senderCommit, err := sender.CommitTransaction(commitCtx, &rpcpb.CommitTransactionRequest{TransactionID: senderTxID})
	cancel()
	if err != nil {
		if status.Code(err) == codes.DeadlineExceeded {
			// The sender's state is ambiguous; the receiver is still
			// prepared, so aborting it is safe, and aborting the
			// sender is harmless either way (unknown ids succeed).
			c.logger.Error("timeout committing at sender bank", "payment_id", p.PaymentID)
			c.abort(receiver, p.ReceiverBank, receiverTxID)
			c.abort(sender, p.SenderBank, senderTxID)
			return failed(globalID, "transaction timed out during commit phase (sender)", false)
		}
		c.logger.Error("commit failed at sender bank", "payment_id", p.PaymentID, "error", err)
		c.abort(receiver, p.ReceiverBank, receiverTxID)
		return failed(globalID, fmt.Sprintf("error committing to sender bank: %s", rpcErrText(err)), false)
	}
	if !senderCommit.Success {
		c.logger.Error("sender commit rejected after YES vote", "payment_id", p.PaymentID, "message", senderCommit.Message)
		c.abort(receiver, p.ReceiverBank, receiverTxID)
		return failed(globalID, fmt.Sprintf("transaction failed during commit phase: %s", senderCommit.Message), false)
	}

	// From here on the sender has durably committed. No path below may
	// abort anything.
	if c.now().After(deadline.Add(-c.safetyMargin)) {
		c.logger.Error("deadline reached after sender commit, critical state", "payment_id", p.PaymentID, "global_id", globalID)
		return critical(globalID, "transaction timed out after sender committed; receiver credit unconfirmed, operator intervention required")
	}

	commitCtx, cancel = context.WithDeadline(ctx, deadline)
	receiverCommit, err := receiver.CommitTransaction(commitCtx, &rpcpb.CommitTransactionRequest{TransactionID: receiverTxID})
	cancel()
	if err != nil {
		c.logger.Error("receiver commit unconfirmed after sender committed",
			"payment_id", p.PaymentID, "global_id", globalID, "error", err)
		return critical(globalID, fmt.Sprintf("sender debited but receiver credit unconfirmed: %s", rpcErrText(err)))
	}
	if !receiverCommit.Success {
		c.logger.Error("receiver commit rejected after sender committed",
			"payment_id", p.PaymentID, "global_id", globalID, "message", receiverCommit.Message)
		return critical(globalID, fmt.Sprintf("sender debited but receiver credit failed: %s", receiverCommit.Message))
	}

	c.logger.Info("2PC completed", "payment_id", p.PaymentID, "global_id", globalID, "elapsed", c.now().Sub(start))
	return domain.PaymentResult{
		Success:             true,
		GlobalTransactionID: globalID,
		Status:              domain.StatusCompleted,
		Message:             "payment processed successfully",
	}
}

// abort is best-effort with its own short deadline: failure is logged
// and never promoted into the user-visible outcome.
func (c *Coordinator) abort(stub rpcpb.BankServiceClient, bank, txID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.abortTimeout)
	defer cancel()
	if _, err := stub.AbortTransaction(ctx, &rpcpb.AbortTransactionRequest{TransactionID: txID}); err != nil {
		c.logger.Error("abort failed", "bank", bank, "transaction_id", txID, "error", err)
	}
}

// stubFailure maps a bank-resolution error: an unknown bank is a
// terminal validation failure, anything else (open breaker, channel
// setup) is transport-class and retriable.
func (c *Coordinator) stubFailure(globalID, role, bank string, err error) domain.PaymentResult {
	var dErr *domain.DomainError
	if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeUnknownBank {
		return failed(globalID, fmt.Sprintf("%s bank %s not found", role, bank), false)
	}
	c.logger.Error("bank stub unavailable", "role", role, "bank", bank, "error", err)
	return failed(globalID, fmt.Sprintf("%s bank %s unavailable: %v", role, bank, err), true)
}

func rpcErrText(err error) string {
	if s, ok := status.FromError(err); ok {
		return s.Code().String()
	}
	return err.Error()
}
