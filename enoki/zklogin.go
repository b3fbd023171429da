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
	"time"

	"github.com/blinklabs-io/zkvote/sui"
)

// Nonce binds an ephemeral public key to an epoch window
type Nonce struct {
	Nonce      string `json:"nonce"`
	Randomness string `json:"randomness"`
	Epoch      uint64 `json:"epoch"`
	MaxEpoch   uint64 `json:"maxEpoch"`
	// EstimatedExpiration is a unix timestamp in milliseconds
	EstimatedExpiration int64 `json:"estimatedExpiration"`
}

// Expiry returns EstimatedExpiration as a time
func (n *Nonce) Expiry() time.Time {
	return time.UnixMilli(n.EstimatedExpiration)
}

type nonceRequest struct {
	Network            string `json:"network"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
	AdditionalEpochs   int    `json:"additionalEpochs,omitempty"`
}

// CreateNonce requests a zkLogin nonce for the ephemeral public key
func (c *Client) CreateNonce(
	ctx context.Context,
	network string,
	ephemeralPublicKey string,
	additionalEpochs int,
) (*Nonce, error) {
	var ret Nonce
	err := c.do(
		ctx,
		http.MethodPost,
		"/zklogin/nonce",
		"",
		nonceRequest{
			Network:            network,
			EphemeralPublicKey: ephemeralPublicKey,
			AdditionalEpochs:   additionalEpochs,
		},
		&ret,
	)
	if err != nil {
		return nil, asAuthError("creating nonce", err)
	}
	return &ret, nil
}

// ZkLoginAccount is the account the service derived for a JWT
type ZkLoginAccount struct {
	Salt    string `json:"salt"`
	Address string `json:"address"`
}

// GetZkLogin resolves the salt and address for the given JWT
func (c *Client) GetZkLogin(
	ctx context.Context,
	jwt string,
) (*ZkLoginAccount, error) {
	var ret ZkLoginAccount
	if err := c.do(ctx, http.MethodGet, "/zklogin", jwt, nil, &ret); err != nil {
		return nil, asAuthError("resolving zkLogin account", err)
	}
	return &ret, nil
}

// ProofRequest identifies the ephemeral key and epoch window a proof is for
type ProofRequest struct {
	Network            string `json:"network"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
	MaxEpoch           uint64 `json:"maxEpoch"`
	Randomness         string `json:"randomness"`
}

// CreateZkLoginProof requests a zero-knowledge proof for the JWT
func (c *Client) CreateZkLoginProof(
	ctx context.Context,
	jwt string,
	req ProofRequest,
) (*sui.ZkLoginInputs, error) {
	var ret sui.ZkLoginInputs
	if err := c.do(ctx, http.MethodPost, "/zklogin/zkp", jwt, req, &ret); err != nil {
		return nil, asAuthError("creating zkLogin proof", err)
	}
	return &ret, nil
}
