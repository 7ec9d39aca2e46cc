package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/config"
	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/authinterceptor"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/tlsconf"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

const rpcTimeout = 30 * time.Second

// Client wraps the gateway connection, the session token, and the
// durable pending queue. The client id is minted fresh per instance
// and only partitions the on-disk queue; it has no authentication
// meaning.
type Client struct {
	cfg      *config.ClientConfig
	logger   *slog.Logger
	clientID string
	queue    *Queue

	mu    sync.Mutex
	conn  *grpc.ClientConn
	api   rpcpb.GatewayServiceClient
	token string

	monitorMu      sync.Mutex
	monitorStop    chan struct{}
	monitorRunning bool
}

func New(cfg *config.ClientConfig, logger *slog.Logger) (*Client, error) {
	clientID := uuid.New().String()
	queue, err := NewQueue(cfg.QueueDir, clientID)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		logger:   logger,
		clientID: clientID,
		queue:    queue,
	}, nil
}

func (c *Client) ClientID() string { return c.clientID }

// Connect dials the gateway over mutual TLS. Reconnecting tears down
// the previous channel first.
func (c *Client) Connect() error {
	tlsCfg, err := tlsconf.ClientConfig(c.cfg.TLS, "")
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(c.cfg.GatewayAddr, grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)))
	if err != nil {
		return fmt.Errorf("connecting to gateway at %s: %w", c.cfg.GatewayAddr, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.api = rpcpb.NewGatewayServiceClient(conn)
	c.mu.Unlock()

	c.logger.Info("connected to gateway", "addr", c.cfg.GatewayAddr)
	return nil
}

// Connected reports whether a channel is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Authenticated reports whether a session token is held.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *Client) session() (rpcpb.GatewayServiceClient, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		return nil, "", fmt.Errorf("not connected")
	}
	return c.api, c.token, nil
}

// Authenticate obtains a session token from the gateway.
func (c *Client) Authenticate(username, password, bankName string) (string, error) {
	api, _, err := c.session()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	resp, err := api.Authenticate(ctx, &rpcpb.AuthenticateRequest{
		Username: username,
		Password: password,
		Bank:     bankName,
	})
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("%s", resp.Message)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	c.logger.Info("authenticated", "username", username, "bank", bankName)
	return resp.Token, nil
}

// CheckBalance fetches the authenticated account's balance.
func (c *Client) CheckBalance() (int64, error) {
	api, token, err := c.session()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	resp, err := api.CheckBalance(authinterceptor.WithToken(ctx, token), &rpcpb.CheckBalanceRequest{})
	if err != nil {
		return 0, err
	}
	return resp.BalanceCents, nil
}

// TransactionHistory lists the authenticated account's ledger.
func (c *Client) TransactionHistory(limit int32) ([]rpcpb.TransactionRecord, error) {
	api, token, err := c.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	resp, err := api.GetTransactionHistory(authinterceptor.WithToken(ctx, token), &rpcpb.GetGatewayTransactionHistoryRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// MakePayment enqueues the payment durably, then attempts one send. A
// fixed payment id may be supplied to exercise idempotency; otherwise
// a fresh one is minted.
func (c *Client) MakePayment(receiverAccount, receiverBank string, amountCents int64, fixedPaymentID string) (*rpcpb.ProcessPaymentResponse, error) {
	if !c.Authenticated() {
		return nil, fmt.Errorf("not connected or not authenticated")
	}

	paymentID := fixedPaymentID
	if paymentID == "" {
		paymentID = uuid.New().String()
	}

	if err := c.queue.Add(domain.PendingPayment{
		PaymentID:       paymentID,
		ReceiverAccount: receiverAccount,
		ReceiverBank:    receiverBank,
		AmountCents:     amountCents,
		CreatedAt:       time.Now(),
	}); err != nil {
		return nil, err
	}
	c.logger.Info("enqueued payment", "payment_id", paymentID, "receiver", receiverBank+"/"+receiverAccount, "amount_cents", amountCents)

	resp, err := c.sendPayment(paymentID, receiverAccount, receiverBank, amountCents)
	if err != nil {
		if transportFailure(err) {
			c.logger.Warn("gateway unavailable, payment stays queued", "payment_id", paymentID, "error", err)
			return nil, fmt.Errorf("gateway unavailable, payment %s queued for retry", paymentID)
		}
		return nil, err
	}

	if resp.Success {
		if err := c.queue.Remove(paymentID); err != nil {
			c.logger.Error("removing confirmed payment from queue", "payment_id", paymentID, "error", err)
		}
	}
	return resp, nil
}

func (c *Client) sendPayment(paymentID, receiverAccount, receiverBank string, amountCents int64) (*rpcpb.ProcessPaymentResponse, error) {
	api, token, err := c.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	return api.ProcessPayment(authinterceptor.WithToken(ctx, token), &rpcpb.ProcessPaymentRequest{
		SenderAccount:   "self",
		ReceiverAccount: receiverAccount,
		ReceiverBank:    receiverBank,
		AmountCents:     amountCents,
		PaymentID:       paymentID,
	})
}

// RetryPending replays every queued payment serially under its stored
// payment id. A success removes the record; so does a terminal failure
// on replay, which the gateway's idempotency cache has pinned: keeping
// the record would retry a payment that can never progress. Transport
// failures stop the pass early; the rest of the queue waits for the
// next tick.
func (c *Client) RetryPending() (int, int, error) {
	if !c.Authenticated() {
		return 0, 0, fmt.Errorf("not connected or not authenticated")
	}

	pending, err := c.queue.List()
	if err != nil {
		return 0, 0, err
	}

	retried, resolved := 0, 0
	for _, p := range pending {
		retried++
		resp, err := c.sendPayment(p.PaymentID, p.ReceiverAccount, p.ReceiverBank, p.AmountCents)
		if err != nil {
			if transportFailure(err) {
				c.logger.Warn("gateway unavailable mid-replay, stopping", "payment_id", p.PaymentID)
				return retried, resolved, err
			}
			c.logger.Error("replaying payment", "payment_id", p.PaymentID, "error", err)
			continue
		}

		switch {
		case resp.Success:
			resolved++
			c.logger.Info("queued payment confirmed", "payment_id", p.PaymentID, "transaction_id", resp.TransactionID)
			if err := c.queue.Remove(p.PaymentID); err != nil {
				c.logger.Error("removing confirmed payment", "payment_id", p.PaymentID, "error", err)
			}
		case !resp.Retriable:
			resolved++
			c.logger.Warn("queued payment resolved as terminal failure", "payment_id", p.PaymentID, "message", resp.Message)
			if err := c.queue.Remove(p.PaymentID); err != nil {
				c.logger.Error("removing failed payment", "payment_id", p.PaymentID, "error", err)
			}
		default:
			c.logger.Info("queued payment still transiently failing", "payment_id", p.PaymentID, "message", resp.Message)
		}
	}
	return retried, resolved, nil
}

// Pending lists the queued payments.
func (c *Client) Pending() ([]domain.PendingPayment, error) {
	return c.queue.List()
}

// Close stops the supervisor and tears the channel down. The session
// token is dropped; the pending queue stays on disk.
func (c *Client) Close() {
	c.StopMonitor()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.api = nil
	}
	c.token = ""
}

// transportFailure reports whether err means the gateway could not be
// reached at all, as opposed to a structured refusal.
func transportFailure(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}
