// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledger reads Sui ledger state over the fullnode JSON-RPC API and
// submits signed transactions for the self-paid path. The reader never
// retries; callers own retry policy.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultRequestTimeout = 30 * time.Second

// Client is a LedgerReader backed by a Sui fullnode
type Client struct {
	rpc          *rpc.Client
	logger       *slog.Logger
	httpClient   *http.Client
	promRegistry prometheus.Registerer
	metrics      *clientMetrics
	pollInterval time.Duration
}

// ClientOption is a functional option for configuring a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for JSON-RPC requests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPromRegistry registers client metrics with the given registry
func WithPromRegistry(reg prometheus.Registerer) ClientOption {
	return func(c *Client) {
		c.promRegistry = reg
	}
}

// WithPollInterval sets the interval used while waiting for a transaction
// to become readable
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient creates a ledger client for the fullnode at rpcURL. No request
// is made until the first call.
func NewClient(rpcURL string, opts ...ClientOption) (*Client, error) {
	if rpcURL == "" {
		return nil, errs.Config("ledger RPC URL is required")
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("component", "ledger")
	rpcClient, err := rpc.DialHTTPWithClient(rpcURL, c.httpClient)
	if err != nil {
		return nil, errs.Config("ledger RPC URL %q: %v", rpcURL, err)
	}
	c.rpc = rpcClient
	if c.promRegistry != nil {
		c.initMetrics()
	}
	return c, nil
}

// Close releases the underlying RPC client
func (c *Client) Close() {
	c.rpc.Close()
}

// call performs a single JSON-RPC request and maps failures onto the
// pipeline error kinds
func (c *Client) call(
	ctx context.Context,
	result any,
	method string,
	args ...any,
) error {
	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	c.observe(method, start, err)
	if err == nil {
		return nil
	}
	c.logger.Debug(
		"RPC call failed",
		"method", method,
		"error", err,
	)
	return classifyError(method, err)
}

func classifyError(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		msg := rpcErr.Error()
		if isNotFoundMessage(msg) {
			return fmt.Errorf("%w: %s: %s", errs.ErrNotFound, method, msg)
		}
		return fmt.Errorf(
			"%w: %s: rpc error %d: %s",
			errs.ErrNetwork,
			method,
			rpcErr.ErrorCode(),
			msg,
		)
	}
	return errs.Network(method, err)
}

func isNotFoundMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "could not find") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "notexists")
}
