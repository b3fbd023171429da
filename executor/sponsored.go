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
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const pathSponsored = "sponsored"

// ExecuteSponsored submits intent with gas paid by the sponsor service.
// The transaction is signed as the zkLogin address of signer.
//
// A rejection before execution is a *errs.SponsorError. Once the signed
// transaction has been handed to the service, any failure to observe the
// result is a *errs.UnknownOutcomeError carrying the digest.
func (e *Executor) ExecuteSponsored(
	ctx context.Context,
	intent *txbuilder.Intent,
	signer ZkLoginSigner,
) (receipt *ledger.Receipt, err error) {
	start := time.Now()
	defer func() { e.observe(pathSponsored, start, err) }()

	if e.config.Sponsor == nil {
		return nil, errs.Config("no sponsor service configured")
	}
	if intent.UsesGasCoin() {
		return nil, errs.Validation(
			"%s intent spends the gas coin and cannot be sponsored",
			intent.Kind(),
		)
	}
	if signer.Network() != e.config.Network {
		return nil, errs.Auth(
			"credentials are for %s, not %s",
			signer.Network(),
			e.config.Network,
		)
	}
	sender := signer.Address()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "executor.ExecuteSponsored")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(intent.Kind())),
		attribute.String("sender", sender.String()),
		attribute.String("network", e.config.Network),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sponsored submission failed")
		}
	}()

	req := enoki.SponsorRequest{
		Network:                e.config.Network,
		TransactionKindBytes:   intent.KindBase64(),
		Sender:                 sender.String(),
		AllowedMoveCallTargets: intent.MoveCallTargets(),
	}
	if recipient := intent.Recipient(); !recipient.IsZero() {
		req.AllowedAddresses = []string{recipient.String()}
	}
	sponsored, err := e.config.Sponsor.CreateSponsoredTransaction(
		ctx,
		signer.ProviderToken(),
		req,
	)
	if err != nil {
		return nil, err
	}
	txBytes, err := base64.StdEncoding.DecodeString(sponsored.Bytes)
	if err != nil {
		return nil, &errs.DecodeError{Field: "bytes", Reason: err.Error()}
	}
	digest := sui.TransactionDigest(txBytes).String()
	if sponsored.Digest != "" && sponsored.Digest != digest {
		return nil, &errs.DecodeError{
			Field:  "digest",
			Reason: "does not match sponsored transaction bytes",
		}
	}
	span.SetAttributes(attribute.String("digest", digest))
	signature, err := signer.Sign(txBytes)
	if err != nil {
		return nil, err
	}

	e.logger.Debug(
		"submitting sponsored transaction",
		"digest", digest,
		"kind", string(intent.Kind()),
	)
	executed, err := e.config.Sponsor.ExecuteSponsoredTransaction(
		ctx,
		digest,
		signature,
	)
	if err != nil {
		// A definite rejection means nothing was executed
		var sponsorErr *errs.SponsorError
		if errors.As(err, &sponsorErr) {
			return nil, err
		}
		return nil, &errs.UnknownOutcomeError{Digest: digest, Err: err}
	}
	if executed != "" {
		digest = executed
	}
	return e.confirm(ctx, digest)
}

// confirm waits for an executed transaction to become readable
func (e *Executor) confirm(ctx context.Context, digest string) (*ledger.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.config.ConfirmTimeout)
	defer cancel()
	receipt, err := e.config.Ledger.WaitForTransaction(waitCtx, digest)
	if err != nil {
		e.logger.Warn(
			"transaction outcome unknown",
			"digest", digest,
			"error", err,
		)
		return nil, &errs.UnknownOutcomeError{Digest: digest, Err: err}
	}
	if err := checkReceipt(receipt); err != nil {
		return nil, err
	}
	e.logger.Info(
		"transaction confirmed",
		"digest", receipt.Digest,
		"checkpoint", receipt.Checkpoint,
	)
	return receipt, nil
}
