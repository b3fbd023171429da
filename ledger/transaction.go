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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
)

// GetTransaction reads an executed transaction with its effects and balance
// changes. A transaction that the fullnode has not indexed yet yields
// errs.ErrNotFound.
func (c *Client) GetTransaction(
	ctx context.Context,
	digest string,
) (*Receipt, error) {
	var resp transactionResponse
	if err := c.call(
		ctx,
		&resp,
		"sui_getTransactionBlock",
		digest,
		receiptOptions,
	); err != nil {
		return nil, err
	}
	ret, err := resp.receipt()
	if err != nil {
		return nil, &errs.DecodeError{Field: "effects", Reason: err.Error()}
	}
	return ret, nil
}

// ExecuteTransaction submits signed transaction bytes and waits for local
// execution on the fullnode
func (c *Client) ExecuteTransaction(
	ctx context.Context,
	txBytesB64 string,
	signatures []string,
) (*Receipt, error) {
	var resp transactionResponse
	if err := c.call(
		ctx,
		&resp,
		"sui_executeTransactionBlock",
		txBytesB64,
		signatures,
		receiptOptions,
		"WaitForLocalExecution",
	); err != nil {
		return nil, err
	}
	ret, err := resp.receipt()
	if err != nil {
		return nil, &errs.DecodeError{Field: "effects", Reason: err.Error()}
	}
	return ret, nil
}

// WaitForTransaction polls until the transaction is readable or ctx ends.
// Only not-found results are retried; other failures return immediately.
func (c *Client) WaitForTransaction(
	ctx context.Context,
	digest string,
) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.GetTransaction(ctx, digest)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf(
				"waiting for transaction %s: %w",
				digest,
				ctx.Err(),
			)
		case <-ticker.C:
		}
	}
}
