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

package enoki

import (
	"context"
	"net/http"
	"net/url"
)

// SponsorRequest asks the service to attach gas to a transaction kind
type SponsorRequest struct {
	Network string `json:"network"`
	// TransactionKindBytes is the base64 BCS TransactionKind
	TransactionKindBytes   string   `json:"transactionBlockKindBytes"`
	Sender                 string   `json:"sender"`
	AllowedMoveCallTargets []string `json:"allowedMoveCallTargets,omitempty"`
	AllowedAddresses       []string `json:"allowedAddresses,omitempty"`
}

// SponsoredTransaction is the gas-complete transaction to be signed by the
// sender
type SponsoredTransaction struct {
	// Bytes is the base64 BCS TransactionData
	Bytes  string `json:"bytes"`
	Digest string `json:"digest"`
}

// CreateSponsoredTransaction requests sponsorship. Rejections are returned
// as *errs.SponsorError.
func (c *Client) CreateSponsoredTransaction(
	ctx context.Context,
	jwt string,
	req SponsorRequest,
) (*SponsoredTransaction, error) {
	var ret SponsoredTransaction
	err := c.do(
		ctx,
		http.MethodPost,
		"/transaction-blocks/sponsor",
		jwt,
		req,
		&ret,
	)
	if err != nil {
		return nil, asSponsorError("creating sponsored transaction", err)
	}
	return &ret, nil
}

type executeRequest struct {
	Signature string `json:"signature"`
}

type executeResponse struct {
	Digest string `json:"digest"`
}

// ExecuteSponsoredTransaction submits the sender signature for a previously
// sponsored transaction and returns the executed digest
func (c *Client) ExecuteSponsoredTransaction(
	ctx context.Context,
	digest string,
	signature string,
) (string, error) {
	var ret executeResponse
	err := c.do(
		ctx,
		http.MethodPost,
		"/transaction-blocks/sponsor/"+url.PathEscape(digest),
		"",
		executeRequest{Signature: signature},
		&ret,
	)
	if err != nil {
		return "", asSponsorError("executing sponsored transaction", err)
	}
	if ret.Digest == "" {
		ret.Digest = digest
	}
	return ret.Digest, nil
}
