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

// Package zkvote wires the credential session, ledger reader, transaction
// builder, sponsored executor and vote workflow into one service.
package zkvote

import (
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/session"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultShutdownTimeout = 30 * time.Second

type Config struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	dataDir      string
	network      string
	// fullnodeURL overrides the network's default fullnode
	fullnodeURL      string
	enokiURL         string
	enokiAPIKey      string
	clientID         string
	provider         session.Provider
	packageID        string
	votesObjectID    string
	appURL           string
	apiListenAddress string
	apiMaxPerIP      int
	maxSelections    int
	additionalEpochs int
	proofTTL         time.Duration
	readTimeout      time.Duration
	submitTimeout    time.Duration
	confirmTimeout   time.Duration
	gasBudget        uint64
	keyFile          string
	keyAddress       string
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the
// service config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new service config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		network:  "testnet",
		provider: session.ProviderGoogle,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// validate checks the settings every command needs. Settings that only
// some commands need are checked where they are used.
func (c *Config) validate() error {
	if _, ok := sui.NetworkByName(c.network); !ok {
		return errs.Config("unknown network %q", c.network)
	}
	if c.enokiAPIKey == "" {
		return errs.Config("ENOKI_PUB_KEY is required")
	}
	if c.packageID != "" {
		if _, err := sui.ParseAddress(c.packageID); err != nil {
			return errs.Config("VOTING_MODULE_ADDRESS: %v", err)
		}
	}
	if c.votesObjectID != "" {
		if _, err := sui.ParseAddress(c.votesObjectID); err != nil {
			return errs.Config("VOTES_OBJECT_ADDRESS: %v", err)
		}
	}
	if c.keyAddress != "" {
		if _, err := sui.ParseAddress(c.keyAddress); err != nil {
			return errs.Config("key address: %v", err)
		}
	}
	return nil
}

// WithLogger specifies the logger to use. The default discards all output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add
// metrics to. Metrics are disabled when unset
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDataDir specifies the persistent data directory. The default is to
// keep everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithNetwork specifies the named ledger network. The default is testnet
func WithNetwork(network string) ConfigOptionFunc {
	return func(c *Config) {
		c.network = network
	}
}

// WithFullnodeURL overrides the JSON-RPC endpoint of the network
func WithFullnodeURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.fullnodeURL = url
	}
}

// WithEnoki specifies the identity/sponsor service endpoint and public API
// key. An empty URL selects the public service
func WithEnoki(url string, apiKey string) ConfigOptionFunc {
	return func(c *Config) {
		c.enokiURL = url
		c.enokiAPIKey = apiKey
	}
}

// WithOAuth specifies the OAuth provider and client id used for login
func WithOAuth(provider session.Provider, clientID string) ConfigOptionFunc {
	return func(c *Config) {
		if provider != "" {
			c.provider = provider
		}
		c.clientID = clientID
	}
}

// WithVoting specifies the voting package and the shared votes object
func WithVoting(packageID string, votesObjectID string) ConfigOptionFunc {
	return func(c *Config) {
		c.packageID = packageID
		c.votesObjectID = votesObjectID
	}
}

// WithMaxSelections lowers the number of projects a vote may include
func WithMaxSelections(maxSelections int) ConfigOptionFunc {
	return func(c *Config) {
		c.maxSelections = maxSelections
	}
}

// WithAppURL specifies the public URL linked from share messages and used
// to derive the OAuth redirect
func WithAppURL(appURL string) ConfigOptionFunc {
	return func(c *Config) {
		c.appURL = appURL
	}
}

// WithAPIListenAddress specifies the HTTP API listen address
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithAPIRequestLimit bounds in-flight POST requests per client address
func WithAPIRequestLimit(perIP int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiMaxPerIP = perIP
	}
}

// WithAdditionalEpochs extends the validity of new ephemeral keys
func WithAdditionalEpochs(epochs int) ConfigOptionFunc {
	return func(c *Config) {
		c.additionalEpochs = epochs
	}
}

// WithProofTTL bounds how long a proof is reused
func WithProofTTL(ttl time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.proofTTL = ttl
	}
}

// WithTimeouts specifies the ledger read, vote submission and confirmation
// timeouts. Zero values keep the defaults
func WithTimeouts(read, submit, confirm time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.readTimeout = read
		c.submitTimeout = submit
		c.confirmTimeout = confirm
	}
}

// WithGasBudget specifies the budget of self-paid transactions
func WithGasBudget(budget uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.gasBudget = budget
	}
}

// WithKeyFile specifies the key file used for self-paid transactions and
// optionally the address of the key to use from it
func WithKeyFile(path string, address string) ConfigOptionFunc {
	return func(c *Config) {
		c.keyFile = path
		c.keyAddress = address
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s)
// endpoint using OTLP. This can be configured using the
// OTEL_EXPORTER_OTLP_* env vars documented in the README for
// [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires
// tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
