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

package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"gorm.io/gorm"
)

const (
	keyVotedProjects   = "votedProjects"
	keyVoteDigest      = "voteDigest"
	keyPendingDigest   = "pendingVoteDigest"
	keyPendingProjects = "pendingVotedProjects"
	keyPendingSince    = "pendingVoteSince"

	projectSeparator = ";;"
)

// VoteRecord remembers a confirmed vote for an account
type VoteRecord struct {
	ProjectNames []string
	Digest       string
	// SubmittedAt is when a pending submission was handed to the sponsor.
	// Zero for confirmed records.
	SubmittedAt time.Time
}

// SaveVoteRecord stores rec for owner. A record can only be written once;
// later writes fail with ErrRecordExists and leave the first record
// untouched. The pending vote, if any, is cleared in the same
// transaction.
func (d *Database) SaveVoteRecord(ctx context.Context, owner string, rec VoteRecord) error {
	if len(rec.ProjectNames) == 0 {
		return errs.Validation("vote record has no projects")
	}
	if rec.Digest == "" {
		return errs.Validation("vote record has no digest")
	}
	for _, name := range rec.ProjectNames {
		if strings.Contains(name, projectSeparator) {
			return errs.Validation("project name %q contains %q", name, projectSeparator)
		}
	}
	err := d.db.Transaction(func(tx *gorm.DB) error {
		err := d.insert(ctx, tx, owner, keyVotedProjects, strings.Join(rec.ProjectNames, projectSeparator))
		if err != nil {
			return err
		}
		if err := d.insert(ctx, tx, owner, keyVoteDigest, rec.Digest); err != nil {
			return err
		}
		return d.delete(ctx, tx, owner, keyPendingDigest, keyPendingProjects, keyPendingSince)
	})
	if err != nil {
		return err
	}
	d.logger.Debug("saved vote record", "owner", owner, "digest", rec.Digest)
	return nil
}

// VoteRecord returns the record for owner or ErrRecordNotFound
func (d *Database) VoteRecord(ctx context.Context, owner string) (*VoteRecord, error) {
	names, err := d.get(ctx, d.db, owner, keyVotedProjects)
	if err != nil {
		return nil, err
	}
	digest, err := d.get(ctx, d.db, owner, keyVoteDigest)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	return &VoteRecord{
		ProjectNames: strings.Split(names, projectSeparator),
		Digest:       digest,
	}, nil
}

// SetPendingVote marks a submission whose outcome is not known yet. The
// names are kept so the record can be completed once the outcome is read.
func (d *Database) SetPendingVote(ctx context.Context, owner string, rec VoteRecord) error {
	if rec.Digest == "" {
		return errs.Validation("pending digest is empty")
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := d.put(ctx, tx, owner, keyPendingDigest, rec.Digest); err != nil {
			return err
		}
		if err := d.put(ctx, tx, owner, keyPendingProjects, strings.Join(rec.ProjectNames, projectSeparator)); err != nil {
			return err
		}
		if rec.SubmittedAt.IsZero() {
			return d.delete(ctx, tx, owner, keyPendingSince)
		}
		return d.put(ctx, tx, owner, keyPendingSince, strconv.FormatInt(rec.SubmittedAt.UnixMilli(), 10))
	})
}

// PendingVote returns the pending submission for owner, or nil
func (d *Database) PendingVote(ctx context.Context, owner string) (*VoteRecord, error) {
	digest, err := d.get(ctx, d.db, owner, keyPendingDigest)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ret := &VoteRecord{Digest: digest}
	names, err := d.get(ctx, d.db, owner, keyPendingProjects)
	switch {
	case err == nil:
		if names != "" {
			ret.ProjectNames = strings.Split(names, projectSeparator)
		}
	case !errors.Is(err, ErrRecordNotFound):
		return nil, err
	}
	since, err := d.get(ctx, d.db, owner, keyPendingSince)
	switch {
	case err == nil:
		ms, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keyPendingSince, err)
		}
		ret.SubmittedAt = time.UnixMilli(ms)
	case !errors.Is(err, ErrRecordNotFound):
		return nil, err
	}
	return ret, nil
}

func (d *Database) ClearPendingVote(ctx context.Context, owner string) error {
	return d.delete(ctx, d.db, owner, keyPendingDigest, keyPendingProjects, keyPendingSince)
}

// ResetVoteRecord removes every stored key for owner
func (d *Database) ResetVoteRecord(ctx context.Context, owner string) error {
	err := d.delete(
		ctx,
		d.db,
		owner,
		keyVotedProjects,
		keyVoteDigest,
		keyPendingDigest,
		keyPendingProjects,
		keyPendingSince,
	)
	if err != nil {
		return fmt.Errorf("reset vote record: %w", err)
	}
	return nil
}
