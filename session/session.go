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

// Package session owns the authenticated identity and the zkLogin proofs
// derived from it. A Session holds at most one identity; proofs are cached
// per network and coalesced so concurrent callers share one request.
package session

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const defaultProofTimeout = 60 * time.Second

// IdentityService is the subset of the identity/proof service used here
type IdentityService interface {
	CreateNonce(
		ctx context.Context,
		network string,
		ephemeralPublicKey string,
		additionalEpochs int,
	) (*enoki.Nonce, error)
	GetZkLogin(ctx context.Context, jwt string) (*enoki.ZkLoginAccount, error)
	CreateZkLoginProof(
		ctx context.Context,
		jwt string,
		req enoki.ProofRequest,
	) (*sui.ZkLoginInputs, error)
}

// Identity is an authenticated user with the ephemeral key their provider
// token was issued for
type Identity struct {
	ID            string             `json:"id"`
	Provider      Provider           `json:"provider"`
	ProviderToken string             `json:"providerToken"`
	Issuer        string             `json:"issuer"`
	Subject       string             `json:"subject"`
	Audience      string             `json:"audience"`
	EphemeralKey  ed25519.PrivateKey `json:"ephemeralKey"`
	Randomness    string             `json:"randomness"`
	MaxEpoch      uint64             `json:"maxEpoch"`
	Network       string             `json:"network"`
	Address       sui.Address        `json:"address"`
	Salt          string             `json:"salt"`
	Expiry        time.Time          `json:"expiry"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// EphemeralPublicKey returns the public half of the ephemeral key
func (i *Identity) EphemeralPublicKey() ed25519.PublicKey {
	return i.EphemeralKey.Public().(ed25519.PublicKey)
}

func (i *Identity) expired(now time.Time) bool {
	return !now.Before(i.Expiry)
}

// LedgerProof is a zkLogin proof bound to one address and ephemeral key.
// Proofs are replaced when they expire, never modified.
type LedgerProof struct {
	AddressSeed        string            `json:"addressSeed"`
	Inputs             sui.ZkLoginInputs `json:"inputs"`
	BoundAddress       sui.Address       `json:"boundAddress"`
	EphemeralPublicKey []byte            `json:"ephemeralPublicKey"`
	MaxEpoch           uint64            `json:"maxEpoch"`
	Network            string            `json:"network"`
	Expiry             time.Time         `json:"expiry"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// usableFor reports whether the proof may be used by identity at now
func (p *LedgerProof) usableFor(id *Identity, now time.Time) bool {
	if p == nil || id == nil {
		return false
	}
	if !now.Before(p.Expiry) {
		return false
	}
	if p.BoundAddress != id.Address || p.MaxEpoch != id.MaxEpoch {
		return false
	}
	return ed25519.PublicKey(p.EphemeralPublicKey).Equal(id.EphemeralPublicKey())
}

// SessionInfo is a read-only summary of the current session
type SessionInfo struct {
	ID          string    `json:"id"`
	Provider    Provider  `json:"provider"`
	Address     string    `json:"address"`
	Network     string    `json:"network"`
	Expiry      time.Time `json:"expiry"`
	ProofCached bool      `json:"proofCached"`
}

// Config configures a Session
type Config struct {
	Service IdentityService
	// DataDir holds the persisted session. Empty keeps it in memory.
	DataDir string
	Logger  *slog.Logger
	// PromRegistry enables metrics when set
	PromRegistry prometheus.Registerer
	// AdditionalEpochs extends the ephemeral key validity window
	AdditionalEpochs int
	ProofTimeout     time.Duration
	// ProofTTL bounds how long a proof is reused. Zero reuses it until the
	// identity expires.
	ProofTTL time.Duration
	// Now overrides the clock
	Now func() time.Time
}

// Session is the CredentialSession for a single user
type Session struct {
	config   Config
	logger   *slog.Logger
	store    *store
	metrics  *sessionMetrics
	flight   singleflight.Group
	mu       sync.Mutex
	identity *Identity
	pending  *pendingAuthorization
	proofs   map[string]*LedgerProof
}

// New opens the session store and restores any persisted identity
func New(cfg Config) (*Session, error) {
	if cfg.Service == nil {
		return nil, errs.Config("session requires an identity service")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ProofTimeout <= 0 {
		cfg.ProofTimeout = defaultProofTimeout
	}
	s := &Session{
		config: cfg,
		logger: cfg.Logger.With("component", "session"),
		proofs: make(map[string]*LedgerProof),
	}
	st, err := openStore(cfg.DataDir, s.logger)
	if err != nil {
		return nil, err
	}
	s.store = st
	if cfg.PromRegistry != nil {
		s.initMetrics()
	}
	if err := s.restore(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the session store
func (s *Session) Close() error {
	return s.store.Close()
}

func (s *Session) restore() error {
	var id Identity
	err := s.store.get(storeKeyIdentity, &id)
	switch {
	case errors.Is(err, errStoreKeyNotFound):
	case err != nil:
		return fmt.Errorf("restoring identity: %w", err)
	case id.expired(s.config.Now()):
		s.logger.Info("discarding expired session", "address", id.Address.String())
		if err := s.clearStore(); err != nil {
			return err
		}
	default:
		s.identity = &id
		var proof LedgerProof
		err := s.store.get(storeKeyProofPrefix+id.Network, &proof)
		if err == nil && proof.usableFor(&id, s.config.Now()) {
			s.proofs[proofKey(&id, id.Network)] = &proof
		}
	}
	var pending pendingAuthorization
	err = s.store.get(storeKeyPending, &pending)
	switch {
	case errors.Is(err, errStoreKeyNotFound):
	case err != nil:
		return fmt.Errorf("restoring pending authorization: %w", err)
	default:
		s.pending = &pending
	}
	return nil
}

func (s *Session) clearStore() error {
	if err := s.store.delete(storeKeyIdentity, storeKeyPending); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if err := s.store.deletePrefix(storeKeyProofPrefix); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// currentIdentity returns the identity or an auth error. An expired
// identity is dropped. Must be called with s.mu held.
func (s *Session) currentIdentity() (*Identity, error) {
	if s.identity == nil {
		return nil, errs.Auth("not logged in")
	}
	if s.identity.expired(s.config.Now()) {
		s.logger.Info(
			"session expired",
			"address", s.identity.Address.String(),
		)
		s.identity = nil
		clear(s.proofs)
		if err := s.clearStore(); err != nil {
			s.logger.Warn("failed to clear expired session", "error", err)
		}
		return nil, errs.Auth("session expired")
	}
	return s.identity, nil
}

// GetSession returns a summary of the current identity, if any
func (s *Session) GetSession(_ context.Context) (*SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.identity
	if id == nil || id.expired(s.config.Now()) {
		return nil, false
	}
	_, cached := s.proofs[proofKey(id, id.Network)]
	return &SessionInfo{
		ID:          id.ID,
		Provider:    id.Provider,
		Address:     id.Address.String(),
		Network:     id.Network,
		Expiry:      id.Expiry,
		ProofCached: cached,
	}, true
}

// Logout drops the identity, any authorization in progress, and all cached
// proofs
func (s *Session) Logout(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		s.logger.Info("logged out", "address", s.identity.Address.String())
	}
	s.identity = nil
	s.pending = nil
	clear(s.proofs)
	return s.clearStore()
}
