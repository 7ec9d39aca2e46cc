package client

import (
	"context"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/transport/authinterceptor"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
)

// StartMonitor launches the connectivity supervisor: a single
// background task that, every check interval, probes the gateway and
// replays the pending queue while a session token is held. Starting a
// monitor while one is live is a no-op; a second loop would
// double-replay.
func (c *Client) StartMonitor() {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if c.monitorRunning {
		c.logger.Info("connectivity monitor already running")
		return
	}
	c.monitorRunning = true
	c.monitorStop = make(chan struct{})

	go c.monitorLoop(c.monitorStop)
	c.logger.Info("connectivity monitor started", "interval", c.cfg.CheckInterval)
}

// StopMonitor signals the supervisor to exit at its next tick check.
func (c *Client) StopMonitor() {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if !c.monitorRunning {
		return
	}
	close(c.monitorStop)
	c.monitorRunning = false
	c.logger.Info("connectivity monitor stopped")
}

func (c *Client) monitorLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick is one supervisor pass: probe, reconnect if the probe shows the
// channel dead, then replay whatever is queued.
func (c *Client) tick() {
	if !c.Authenticated() {
		return
	}

	if err := c.probe(); err != nil {
		c.logger.Warn("gateway probe failed, reconnecting", "error", err)
		if err := c.Connect(); err != nil {
			c.logger.Error("reconnect failed", "error", err)
			return
		}
		if err := c.probe(); err != nil {
			c.logger.Warn("gateway still unreachable after reconnect", "error", err)
			return
		}
	}

	if c.queue.Len() == 0 {
		return
	}

	retried, resolved, err := c.RetryPending()
	if err != nil {
		c.logger.Warn("pending replay interrupted", "retried", retried, "resolved", resolved, "error", err)
		return
	}
	if retried > 0 {
		c.logger.Info("pending replay pass finished", "retried", retried, "resolved", resolved)
	}
}

// probe is the cheap reachability call: a balance check under a short
// deadline. A structured refusal still proves the channel is alive.
func (c *Client) probe() error {
	api, token, err := c.session()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = api.CheckBalance(authinterceptor.WithToken(ctx, token), &rpcpb.CheckBalanceRequest{})
	if err != nil && transportFailure(err) {
		return err
	}
	return nil
}
