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

package session

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/blinklabs-io/zkvote/session"

func proofKey(id *Identity, network string) string {
	return id.ID + "/" + network
}

// GetProof returns a zkLogin proof for the current identity on network.
// A cached proof is returned while it is unexpired and bound to the current
// address and ephemeral key. Concurrent callers share one outbound request.
func (s *Session) GetProof(
	ctx context.Context,
	network string,
) (*LedgerProof, error) {
	s.mu.Lock()
	id, err := s.currentIdentity()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if network != id.Network {
		s.mu.Unlock()
		return nil, errs.Auth(
			"identity is bound to network %s, not %s",
			id.Network,
			network,
		)
	}
	key := proofKey(id, network)
	if proof := s.proofs[key]; proof.usableFor(id, s.config.Now()) {
		s.mu.Unlock()
		s.countCacheHit()
		return proof, nil
	}
	s.mu.Unlock()

	ch := s.flight.DoChan(key, func() (any, error) {
		return s.fetchProof(id, network)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LedgerProof), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for proof: %w", ctx.Err())
	}
}

// fetchProof runs at most once per key at a time. The request is detached
// from any single caller so an abandoned waiter does not fail the others.
func (s *Session) fetchProof(id *Identity, network string) (*LedgerProof, error) {
	key := proofKey(id, network)
	// Another flight may have completed between the cache check and here
	s.mu.Lock()
	if proof := s.proofs[key]; proof.usableFor(id, s.config.Now()) {
		s.mu.Unlock()
		s.countCacheHit()
		return proof, nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ProofTimeout)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "session.fetchProof")
	defer span.End()
	span.SetAttributes(
		attribute.String("network", network),
		attribute.String("address", id.Address.String()),
	)

	s.countProofRequest()
	pub := id.EphemeralPublicKey()
	inputs, err := s.config.Service.CreateZkLoginProof(
		ctx,
		id.ProviderToken,
		enoki.ProofRequest{
			Network:            network,
			EphemeralPublicKey: sui.PublicKeyBase64(pub),
			MaxEpoch:           id.MaxEpoch,
			Randomness:         id.Randomness,
		},
	)
	if err != nil {
		s.countProofError()
		span.RecordError(err)
		span.SetStatus(codes.Error, "proof request failed")
		return nil, err
	}
	bound, err := sui.ZkLoginAddress(id.Issuer, inputs.AddressSeed)
	if err != nil {
		s.countProofError()
		return nil, fmt.Errorf("%w: proof address seed: %w", errs.ErrDecode, err)
	}
	if bound != id.Address {
		s.countProofError()
		return nil, errs.Auth(
			"proof is bound to %s, identity address is %s",
			bound,
			id.Address,
		)
	}
	expiry := id.Expiry
	if ttl := s.config.ProofTTL; ttl > 0 {
		if limit := s.config.Now().Add(ttl); limit.Before(expiry) {
			expiry = limit
		}
	}
	proof := &LedgerProof{
		AddressSeed:        inputs.AddressSeed,
		Inputs:             *inputs,
		BoundAddress:       bound,
		EphemeralPublicKey: append([]byte(nil), pub...),
		MaxEpoch:           id.MaxEpoch,
		Network:            network,
		Expiry:             expiry,
		CreatedAt:          s.config.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Drop the result if the identity changed while the request was out
	if s.identity == nil || s.identity.ID != id.ID {
		return nil, errs.Auth("session ended while the proof was requested")
	}
	s.proofs[key] = proof
	if err := s.store.put(storeKeyProofPrefix+network, proof); err != nil {
		s.logger.Warn("failed to persist proof", "error", err)
	}
	s.logger.Debug(
		"proof obtained",
		"network", network,
		"address", bound.String(),
	)
	return proof, nil
}

// Credentials is an identity together with a proof that can sign
// transactions as the zkLogin address
type Credentials struct {
	identity *Identity
	proof    *LedgerProof
}

// Credentials returns signing credentials for network
func (s *Session) Credentials(
	ctx context.Context,
	network string,
) (*Credentials, error) {
	proof, err := s.GetProof(ctx, network)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.currentIdentity()
	if err != nil {
		return nil, err
	}
	if !proof.usableFor(id, s.config.Now()) {
		return nil, errs.Auth("identity changed while obtaining proof")
	}
	return &Credentials{identity: id, proof: proof}, nil
}

// NewCredentials pairs an identity with a proof obtained for it
func NewCredentials(id *Identity, proof *LedgerProof) *Credentials {
	return &Credentials{identity: id, proof: proof}
}

func (c *Credentials) Address() sui.Address {
	return c.proof.BoundAddress
}

func (c *Credentials) Network() string {
	return c.proof.Network
}

// AddressSeed is the decimal address seed the proof was computed for
func (c *Credentials) AddressSeed() string {
	return c.proof.AddressSeed
}

// ProviderToken is the JWT the identity was established with
func (c *Credentials) ProviderToken() string {
	return c.identity.ProviderToken
}

// Sign produces the serialized zkLogin signature for transaction bytes
func (c *Credentials) Sign(txBytes []byte) (string, error) {
	key := c.identity.EphemeralKey
	if len(key) != ed25519.PrivateKeySize {
		return "", errs.Auth("identity has no ephemeral key")
	}
	sig := sui.SignTransaction(key, txBytes)
	userSig := make([]byte, 0, 1+len(sig)+ed25519.PublicKeySize)
	userSig = append(userSig, byte(sui.SchemeEd25519))
	userSig = append(userSig, sig...)
	userSig = append(userSig, c.identity.EphemeralPublicKey()...)
	zk := sui.ZkLoginSignature{
		Inputs:        c.proof.Inputs,
		MaxEpoch:      c.proof.MaxEpoch,
		UserSignature: userSig,
	}
	return zk.Serialize()
}
