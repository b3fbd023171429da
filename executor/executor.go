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

// Package executor submits built intents to the ledger, either through the
// sponsor service with zkLogin credentials or paid by a local account key.
package executor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/prometheus/client_golang/prometheus"
)

const tracerName = "github.com/blinklabs-io/zkvote/executor"

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultGasBudget      = 50_000_000
	// maxGasPayment is the most coin objects a transaction may pay with
	maxGasPayment = 255
)

// Sponsor attaches gas to a transaction kind and executes it once signed
type Sponsor interface {
	CreateSponsoredTransaction(
		ctx context.Context,
		jwt string,
		req enoki.SponsorRequest,
	) (*enoki.SponsoredTransaction, error)
	ExecuteSponsoredTransaction(
		ctx context.Context,
		digest string,
		signature string,
	) (string, error)
}

// Ledger is the subset of the ledger reader used for submission
type Ledger interface {
	WaitForTransaction(ctx context.Context, digest string) (*ledger.Receipt, error)
	GetCoins(ctx context.Context, address sui.Address, limit int) ([]ledger.Coin, error)
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
	ExecuteTransaction(
		ctx context.Context,
		txBytesB64 string,
		signatures []string,
	) (*ledger.Receipt, error)
}

// Signer produces a serialized signature over transaction bytes for the
// account at Address
type Signer interface {
	Address() sui.Address
	Sign(txBytes []byte) (string, error)
}

// ZkLoginSigner is a Signer backed by a zkLogin identity and proof
type ZkLoginSigner interface {
	Signer
	Network() string
	ProviderToken() string
}

type Config struct {
	Sponsor Sponsor
	Ledger  Ledger
	// Network name passed to the sponsor service
	Network      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// ConfirmTimeout bounds the wait for an executed transaction to become
	// readable
	ConfirmTimeout time.Duration
	// GasBudget is the budget of self-paid transactions, in MIST
	GasBudget uint64
}

type Executor struct {
	config  Config
	logger  *slog.Logger
	metrics *executorMetrics
}

func New(cfg Config) (*Executor, error) {
	if cfg.Ledger == nil {
		return nil, errs.Config("executor requires a ledger")
	}
	if cfg.Network == "" {
		return nil, errs.Config("executor requires a network")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &Executor{
		config: cfg,
		logger: logger.With("component", "executor"),
	}
	if cfg.PromRegistry != nil {
		e.initMetrics()
	}
	return e, nil
}

// checkReceipt turns a non-success receipt into an ExecutionError
func checkReceipt(receipt *ledger.Receipt) error {
	if receipt.Success() {
		return nil
	}
	reason := receipt.Error
	if reason == "" {
		reason = "status " + receipt.Status
	}
	return &errs.ExecutionError{
		Digest:  receipt.Digest,
		Reason:  reason,
		Receipt: receipt,
	}
}
