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

// Package workflow drives a single account through project selection,
// one sponsored vote submission and the confirmation view.
package workflow

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/executor"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
)

const (
	DefaultReadTimeout   = 15 * time.Second
	DefaultSubmitTimeout = 2 * time.Minute
)

type State string

const (
	StateIdle       State = "Idle"
	StateSelecting  State = "Selecting"
	StateSubmitting State = "Submitting"
	StateConfirmed  State = "Confirmed"
	StateFailed     State = "Failed"
)

// Credentials can sign a vote as the zkLogin address
type Credentials interface {
	executor.ZkLoginSigner
	AddressSeed() string
}

// Session supplies the signed-in account
type Session interface {
	// Address returns the current account, or an errs.ErrAuth error
	Address(ctx context.Context) (sui.Address, error)
	Credentials(ctx context.Context, network string) (Credentials, error)
}

type Ledger interface {
	GetProjects(ctx context.Context, votesObjectID sui.ObjectID) (*ledger.VotesObject, error)
	GetBalance(ctx context.Context, address sui.Address) (*big.Int, error)
	GetTransaction(ctx context.Context, digest string) (*ledger.Receipt, error)
}

type Executor interface {
	ExecuteSponsored(
		ctx context.Context,
		intent *txbuilder.Intent,
		signer executor.ZkLoginSigner,
	) (*ledger.Receipt, error)
}

// Store persists the local vote record
type Store interface {
	VoteRecord(ctx context.Context, owner string) (*database.VoteRecord, error)
	SaveVoteRecord(ctx context.Context, owner string, rec database.VoteRecord) error
	SetPendingVote(ctx context.Context, owner string, rec database.VoteRecord) error
	PendingVote(ctx context.Context, owner string) (*database.VoteRecord, error)
	ClearPendingVote(ctx context.Context, owner string) error
}

type Config struct {
	Session  Session
	Ledger   Ledger
	Executor Executor
	Store    Store
	// EventBus receives state transitions. Optional.
	EventBus *event.EventBus
	Logger   *slog.Logger

	Network       sui.Network
	PackageID     sui.Address
	VotesObjectID sui.ObjectID
	// AppURL is linked from the share message
	AppURL        string
	MaxSelections int
	ReadTimeout   time.Duration
	// SubmitTimeout bounds a submission. A pending vote the ledger does not
	// know yet is kept for this long after it was submitted.
	SubmitTimeout time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

// View is a snapshot of the workflow for presentation
type View struct {
	State       State
	Address     string
	Projects    []ledger.Project
	ProjectsErr error
	Balance     *big.Int
	BalanceErr  error
	Record      *database.VoteRecord
	// Pending is the digest of a submission with unknown outcome
	Pending string
	LastErr error
}

// Outcome is the result of a submission
type Outcome struct {
	State   State
	Receipt *ledger.Receipt
	Record  *database.VoteRecord
	Err     error
}

type Workflow struct {
	config     Config
	logger     *slog.Logger
	submitting atomic.Bool

	mu          sync.Mutex
	state       State
	owner       string
	votes       sui.SharedObject
	projects    []ledger.Project
	projectsErr error
	balance     *big.Int
	balanceErr  error
	record      *database.VoteRecord
	pending     string
	lastErr     error
}

func New(cfg Config) (*Workflow, error) {
	if cfg.Session == nil || cfg.Ledger == nil || cfg.Executor == nil || cfg.Store == nil {
		return nil, errs.Config("workflow requires session, ledger, executor and store")
	}
	if cfg.Network.Name == "" {
		return nil, errs.Config("workflow requires a network")
	}
	if cfg.PackageID.IsZero() {
		return nil, errs.Config("voting package address is required")
	}
	if cfg.VotesObjectID.IsZero() {
		return nil, errs.Config("votes object address is required")
	}
	if cfg.MaxSelections <= 0 || cfg.MaxSelections > txbuilder.MaxSelections {
		cfg.MaxSelections = txbuilder.MaxSelections
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Workflow{
		config: cfg,
		logger: logger.With("component", "workflow"),
		state:  StateIdle,
	}, nil
}

// transition moves to state and publishes the change. Caller holds w.mu.
func (w *Workflow) transition(to State, digest string, cause error) {
	from := w.state
	w.state = to
	w.lastErr = cause
	w.logger.Debug(
		"state changed",
		"from", string(from),
		"to", string(to),
		"digest", digest,
	)
	if w.config.EventBus == nil {
		return
	}
	w.config.EventBus.Publish(
		event.WorkflowStateChangedEventType,
		event.NewEvent(
			event.WorkflowStateChangedEventType,
			event.WorkflowStateChangedEvent{
				From:   string(from),
				To:     string(to),
				Digest: digest,
				Err:    cause,
			},
		),
	)
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) View() *View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Workflow) viewLocked() *View {
	ret := &View{
		State:       w.state,
		Address:     w.owner,
		Projects:    slices.Clone(w.projects),
		ProjectsErr: w.projectsErr,
		BalanceErr:  w.balanceErr,
		Pending:     w.pending,
		LastErr:     w.lastErr,
	}
	if w.balance != nil {
		ret.Balance = new(big.Int).Set(w.balance)
	}
	if w.record != nil {
		rec := *w.record
		rec.ProjectNames = slices.Clone(rec.ProjectNames)
		ret.Record = &rec
	}
	return ret
}

// submitInFlightLocked reports whether a Submit has claimed the workflow.
// Caller holds w.mu.
func (w *Workflow) submitInFlightLocked() bool {
	return w.submitting.Load() || w.state == StateSubmitting
}

// reset clears per-account state when the signed-in account changes.
// Caller holds w.mu.
func (w *Workflow) reset(owner string) {
	if w.owner == owner {
		return
	}
	w.owner = owner
	w.projects = nil
	w.projectsErr = nil
	w.balance = nil
	w.balanceErr = nil
	w.record = nil
	w.pending = ""
	if w.state != StateIdle {
		w.transition(StateIdle, "", nil)
	}
}
