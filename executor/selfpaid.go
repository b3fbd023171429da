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

package executor

import (
	"cmp"
	"context"
	"encoding/base64"
	"math/big"
	"slices"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const pathSelfPaid = "self_paid"

// ExecuteSelfPaid submits intent with gas paid from the signer's own coins
func (e *Executor) ExecuteSelfPaid(
	ctx context.Context,
	intent *txbuilder.Intent,
	signer Signer,
) (receipt *ledger.Receipt, err error) {
	start := time.Now()
	defer func() { e.observe(pathSelfPaid, start, err) }()

	sender := signer.Address()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "executor.ExecuteSelfPaid")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(intent.Kind())),
		attribute.String("sender", sender.String()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "self-paid submission failed")
		}
	}()

	price, err := e.config.Ledger.GetReferenceGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	coins, err := e.config.Ledger.GetCoins(ctx, sender, 0)
	if err != nil {
		return nil, err
	}
	need := new(big.Int).SetUint64(e.config.GasBudget)
	need.Add(need, intent.TotalCoins())
	payment, err := selectGasCoins(coins, need)
	if err != nil {
		return nil, err
	}
	txBytes, err := intent.TransactionData(sender, txbuilder.GasData{
		Payment: payment,
		Owner:   sender,
		Price:   price,
		Budget:  e.config.GasBudget,
	})
	if err != nil {
		return nil, err
	}
	digest := sui.TransactionDigest(txBytes).String()
	span.SetAttributes(attribute.String("digest", digest))
	signature, err := signer.Sign(txBytes)
	if err != nil {
		return nil, err
	}

	e.logger.Debug(
		"submitting transaction",
		"digest", digest,
		"kind", string(intent.Kind()),
		"gas_coins", len(payment),
	)
	receipt, err = e.config.Ledger.ExecuteTransaction(
		ctx,
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{signature},
	)
	if err != nil {
		// Always wait out ConfirmTimeout: a rejection and a lost response
		// look the same here, and only the digest lookup tells them apart.
		return e.confirm(ctx, digest)
	}
	if err := checkReceipt(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// selectGasCoins picks the largest coins until need is covered
func selectGasCoins(coins []ledger.Coin, need *big.Int) ([]sui.ObjectRef, error) {
	sorted := slices.Clone(coins)
	slices.SortFunc(sorted, func(a, b ledger.Coin) int {
		return cmp.Compare(b.Balance, a.Balance)
	})
	total := new(big.Int)
	var ret []sui.ObjectRef
	for _, c := range sorted {
		if total.Cmp(need) >= 0 || len(ret) >= maxGasPayment {
			break
		}
		ret = append(ret, c.Ref)
		total.Add(total, new(big.Int).SetUint64(c.Balance))
	}
	if total.Cmp(need) < 0 {
		return nil, errs.Validation(
			"insufficient balance: need %s, have %s",
			need.String(),
			total.String(),
		)
	}
	return ret, nil
}
