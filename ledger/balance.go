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
	"math/big"

	"github.com/blinklabs-io/zkvote/sui"
)

// GetBalance returns the native token balance held by address
func (c *Client) GetBalance(
	ctx context.Context,
	address sui.Address,
) (*big.Int, error) {
	var resp balanceResponse
	if err := c.call(
		ctx,
		&resp,
		"suix_getBalance",
		address.String(),
		sui.SuiCoinType,
	); err != nil {
		return nil, err
	}
	return new(big.Int).Set(&resp.TotalBalance.Int), nil
}

// GetCoins returns every native token coin owned by address, following
// pagination until exhausted or limit coins are collected. A limit of zero
// means no limit.
func (c *Client) GetCoins(
	ctx context.Context,
	address sui.Address,
	limit int,
) ([]Coin, error) {
	var ret []Coin
	var cursor *string
	for {
		var page coinPage
		if err := c.call(
			ctx,
			&page,
			"suix_getCoins",
			address.String(),
			sui.SuiCoinType,
			cursor,
			nil,
		); err != nil {
			return nil, err
		}
		for _, coin := range page.Data {
			ret = append(ret, Coin{
				CoinType: coin.CoinType,
				Ref: sui.ObjectRef{
					ObjectID: coin.CoinObjectID,
					Version:  uint64(coin.Version),
					Digest:   coin.Digest,
				},
				Balance: uint64(coin.Balance),
			})
			if limit > 0 && len(ret) >= limit {
				return ret, nil
			}
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return ret, nil
		}
		cursor = page.NextCursor
	}
}

// GetReferenceGasPrice returns the gas price for the current epoch
func (c *Client) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	var resp Uint64
	if err := c.call(ctx, &resp, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	return uint64(resp), nil
}
