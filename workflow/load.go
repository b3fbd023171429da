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
	"math/big"

	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"golang.org/x/sync/errgroup"
)

// Load is the workflow entry point. An account that already has a vote
// record goes straight to Confirmed. A pending submission is resolved by
// reading the ledger before anything else. Otherwise projects and balance
// are fetched and the workflow moves to Selecting.
//
// The returned error is the project fetch failure, if any; a balance
// failure is reported only in the view.
func (w *Workflow) Load(ctx context.Context) (*View, error) {
	if w.submitting.Load() {
		return w.View(), nil
	}
	addr, err := w.config.Session.Address(ctx)
	if err != nil {
		return nil, err
	}
	owner := addr.String()
	w.mu.Lock()
	if w.submitInFlightLocked() {
		defer w.mu.Unlock()
		return w.viewLocked(), nil
	}
	w.reset(owner)
	w.mu.Unlock()

	rec, err := w.config.Store.VoteRecord(ctx, owner)
	switch {
	case err == nil:
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.owner != owner || w.submitInFlightLocked() {
			return w.viewLocked(), nil
		}
		w.record = rec
		if w.state != StateConfirmed {
			w.transition(StateConfirmed, rec.Digest, nil)
		}
		return w.viewLocked(), nil
	case !errors.Is(err, database.ErrRecordNotFound):
		return nil, err
	}

	confirmed, err := w.resolvePending(ctx, owner)
	if err != nil {
		return w.View(), err
	}
	if confirmed {
		return w.View(), nil
	}

	w.refresh(ctx, addr)

	w.mu.Lock()
	defer w.mu.Unlock()
	// a Submit that started while the ledger was being read owns the state
	if w.owner != owner || w.submitInFlightLocked() {
		return w.viewLocked(), nil
	}
	if w.projectsErr != nil {
		return w.viewLocked(), w.projectsErr
	}
	if w.state != StateSelecting {
		w.transition(StateSelecting, "", nil)
	}
	return w.viewLocked(), nil
}

// resolvePending settles a submission whose outcome was unknown. It
// reports true when the submission turned out to have succeeded.
func (w *Workflow) resolvePending(ctx context.Context, owner string) (bool, error) {
	pending, err := w.config.Store.PendingVote(ctx, owner)
	if err != nil {
		return false, err
	}
	if pending == nil {
		return false, nil
	}
	readCtx, cancel := context.WithTimeout(ctx, w.config.ReadTimeout)
	defer cancel()
	receipt, err := w.config.Ledger.GetTransaction(readCtx, pending.Digest)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		// a transaction can stay unindexed for a while after it was
		// accepted, so only a marker older than a full submission is
		// taken as never executed
		if settled := pending.SubmittedAt.Add(w.config.SubmitTimeout); w.config.Now().Before(settled) {
			return false, w.keepPending(owner, pending.Digest, err)
		}
		w.logger.Info("pending vote was not executed", "digest", pending.Digest)
		return false, w.clearPending(ctx, owner)
	default:
		return false, w.keepPending(owner, pending.Digest, err)
	}
	if !receipt.Success() {
		w.logger.Info(
			"pending vote failed",
			"digest", pending.Digest,
			"reason", receipt.Error,
		)
		return false, w.clearPending(ctx, owner)
	}
	rec, err := w.saveRecord(ctx, owner, *pending)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owner != owner || w.submitInFlightLocked() {
		return true, nil
	}
	w.record = rec
	w.pending = ""
	w.transition(StateConfirmed, rec.Digest, nil)
	return true, nil
}

// keepPending leaves the workflow in Failed until the outcome of digest can
// be read
func (w *Workflow) keepPending(owner string, digest string, cause error) error {
	unknown := &errs.UnknownOutcomeError{Digest: digest, Err: cause}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owner != owner || w.submitInFlightLocked() {
		return unknown
	}
	w.pending = digest
	if w.state != StateFailed {
		w.transition(StateFailed, digest, unknown)
	}
	return unknown
}

func (w *Workflow) clearPending(ctx context.Context, owner string) error {
	if err := w.config.Store.ClearPendingVote(ctx, owner); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owner == owner {
		w.pending = ""
	}
	return nil
}

// saveRecord writes rec once. If a record already exists, the stored one
// is returned.
func (w *Workflow) saveRecord(
	ctx context.Context,
	owner string,
	rec database.VoteRecord,
) (*database.VoteRecord, error) {
	err := w.config.Store.SaveVoteRecord(ctx, owner, rec)
	if errors.Is(err, database.ErrRecordExists) {
		return w.config.Store.VoteRecord(ctx, owner)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// refresh fetches projects and balance concurrently. Each result is kept
// independently of the other's failure.
func (w *Workflow) refresh(ctx context.Context, addr sui.Address) {
	readCtx, cancel := context.WithTimeout(ctx, w.config.ReadTimeout)
	defer cancel()
	owner := addr.String()
	var (
		votes      *ledger.VotesObject
		projectErr error
		balance    *big.Int
		balanceErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		votes, projectErr = w.config.Ledger.GetProjects(readCtx, w.config.VotesObjectID)
		return nil
	})
	g.Go(func() error {
		balance, balanceErr = w.config.Ledger.GetBalance(readCtx, addr)
		return nil
	})
	_ = g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owner != owner {
		return
	}
	if projectErr != nil {
		w.projectsErr = projectErr
		w.logger.Warn("failed to fetch projects", "error", projectErr)
	} else {
		w.projectsErr = nil
		w.projects = votes.Projects
		w.votes = votes.Ref
	}
	if balanceErr != nil {
		w.balanceErr = balanceErr
		w.logger.Warn("failed to fetch balance", "error", balanceErr)
	} else {
		w.balanceErr = nil
		w.balance = balance
	}
}
