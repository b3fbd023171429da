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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
)

// Submit votes for the projects in ids, in the given order. Only one
// submission runs at a time; a concurrent call fails immediately with
// errs.ErrConcurrentSubmission. Invalid selections are rejected before any
// network call.
//
// On failure the workflow publishes Failed and returns to Selecting,
// except when the outcome is unknown: it then stays Failed until the next
// Load has read the ledger.
func (w *Workflow) Submit(ctx context.Context, ids []uint64) (*Outcome, error) {
	if !w.submitting.CompareAndSwap(false, true) {
		return nil, errs.ErrConcurrentSubmission
	}
	defer w.submitting.Store(false)

	w.mu.Lock()
	sel, names, err := w.prepareLocked(ids)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	owner := w.owner
	votes := w.votes
	w.transition(StateSubmitting, "", nil)
	w.mu.Unlock()

	// not tied to the caller: an abandoned request must not abort a
	// submission that may already be with the sponsor
	submitCtx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		w.config.SubmitTimeout,
	)
	defer cancel()
	started := w.config.Now()
	receipt, err := w.execute(submitCtx, owner, sel, votes)
	if err != nil {
		return w.fail(submitCtx, owner, names, started, err), err
	}

	rec, err := w.saveRecord(submitCtx, owner, database.VoteRecord{
		ProjectNames: names,
		Digest:       receipt.Digest,
	})
	if err != nil {
		// the vote is on chain even though the local record is not
		w.logger.Error(
			"failed to save vote record",
			"digest", receipt.Digest,
			"error", err,
		)
		rec = &database.VoteRecord{ProjectNames: names, Digest: receipt.Digest}
	}
	w.mu.Lock()
	// the record is stored for owner either way; the view belongs to
	// whoever is signed in now
	current := w.owner == owner
	if current {
		w.record = rec
		w.reconcileLocked(owner, receipt)
		w.transition(StateConfirmed, receipt.Digest, nil)
	}
	w.mu.Unlock()

	if addr, err := sui.ParseAddress(owner); err == nil && current {
		w.refresh(submitCtx, addr)
	}
	return &Outcome{State: StateConfirmed, Receipt: receipt, Record: rec}, nil
}

// prepareLocked checks the workflow can submit and validates the
// selection. Caller holds w.mu.
func (w *Workflow) prepareLocked(ids []uint64) (txbuilder.Selection, []string, error) {
	switch w.state {
	case StateSelecting:
	case StateConfirmed:
		return txbuilder.Selection{}, nil, errs.ErrAlreadyVoted
	case StateFailed:
		if w.pending != "" {
			return txbuilder.Selection{}, nil, &errs.UnknownOutcomeError{
				Digest: w.pending,
				Err:    errors.New("reload before voting again"),
			}
		}
	default:
		return txbuilder.Selection{}, nil, errs.Validation(
			"projects are not loaded",
		)
	}
	if w.record != nil {
		return txbuilder.Selection{}, nil, errs.ErrAlreadyVoted
	}
	available := make([]uint64, 0, len(w.projects))
	byID := make(map[uint64]string, len(w.projects))
	for _, p := range w.projects {
		available = append(available, p.ID)
		byID[p.ID] = p.Name
	}
	sel, err := txbuilder.NewSelection(ids, available, w.config.MaxSelections)
	if err != nil {
		return txbuilder.Selection{}, nil, err
	}
	names := make([]string, 0, sel.Len())
	for _, id := range sel.IDs() {
		names = append(names, byID[id])
	}
	return sel, names, nil
}

func (w *Workflow) execute(
	ctx context.Context,
	owner string,
	sel txbuilder.Selection,
	votes sui.SharedObject,
) (*ledger.Receipt, error) {
	creds, err := w.config.Session.Credentials(ctx, w.config.Network.Name)
	if err != nil {
		return nil, err
	}
	if creds.Address().String() != owner {
		return nil, errs.Auth("signed-in account changed")
	}
	intent, err := txbuilder.BuildVote(
		sel,
		votes,
		w.config.PackageID,
		creds.AddressSeed(),
	)
	if err != nil {
		return nil, err
	}
	w.logger.Info(
		"submitting vote",
		"owner", owner,
		"projects", fmt.Sprint(sel.IDs()),
	)
	return w.config.Executor.ExecuteSponsored(ctx, intent, creds)
}

// fail records a failed submission and picks the resulting state
func (w *Workflow) fail(
	ctx context.Context,
	owner string,
	names []string,
	started time.Time,
	cause error,
) *Outcome {
	var unknown *errs.UnknownOutcomeError
	if errors.As(cause, &unknown) && unknown.Digest != "" {
		err := w.config.Store.SetPendingVote(ctx, owner, database.VoteRecord{
			ProjectNames: names,
			Digest:       unknown.Digest,
			SubmittedAt:  started,
		})
		if err != nil {
			w.logger.Error(
				"failed to save pending vote",
				"digest", unknown.Digest,
				"error", err,
			)
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.owner == owner {
			w.pending = unknown.Digest
			w.transition(StateFailed, unknown.Digest, cause)
		}
		return &Outcome{State: StateFailed, Err: cause}
	}

	var receipt *ledger.Receipt
	var execErr *errs.ExecutionError
	if errors.As(cause, &execErr) {
		receipt, _ = execErr.Receipt.(*ledger.Receipt)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	digest := ""
	if receipt != nil {
		digest = receipt.Digest
		w.reconcileLocked(owner, receipt)
	}
	w.logger.Warn("vote submission failed", "digest", digest, "error", cause)
	if w.owner != owner {
		return &Outcome{State: StateSelecting, Receipt: receipt, Err: cause}
	}
	w.transition(StateFailed, digest, cause)
	w.transition(StateSelecting, digest, cause)
	return &Outcome{State: StateSelecting, Receipt: receipt, Err: cause}
}

// reconcileLocked applies the receipt's balance changes for owner to the
// known balance. Caller holds w.mu.
func (w *Workflow) reconcileLocked(owner string, receipt *ledger.Receipt) {
	if w.balance == nil || receipt == nil || w.owner != owner {
		return
	}
	addr, err := sui.ParseAddress(owner)
	if err != nil {
		return
	}
	delta := receipt.BalanceDelta(addr, sui.SuiCoinType)
	w.balance = new(big.Int).Add(w.balance, delta)
}
