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
	"crypto/rand"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Provider is an OAuth identity provider supported by zkLogin
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderTwitch   Provider = "twitch"
)

var providerAuthURLs = map[Provider]string{
	ProviderGoogle:   "https://accounts.google.com/o/oauth2/v2/auth",
	ProviderFacebook: "https://www.facebook.com/v17.0/dialog/oauth",
	ProviderTwitch:   "https://id.twitch.tv/oauth2/authorize",
}

// AuthorizationRequest describes the login the user is about to perform
type AuthorizationRequest struct {
	Provider    Provider
	ClientID    string
	RedirectURL string
	Network     string
	ExtraScopes []string
}

func (r AuthorizationRequest) validate() error {
	if _, ok := providerAuthURLs[r.Provider]; !ok {
		return errs.Config("unsupported provider %q", r.Provider)
	}
	if r.ClientID == "" {
		return errs.Config("OAuth client id is required")
	}
	if r.RedirectURL == "" {
		return errs.Config("redirect URL is required")
	}
	u, err := url.Parse(r.RedirectURL)
	if err != nil || !u.IsAbs() {
		return errs.Config("redirect URL %q is not absolute", r.RedirectURL)
	}
	if r.Network == "" {
		return errs.Config("network is required")
	}
	if _, ok := sui.NetworkByName(r.Network); !ok {
		return errs.Config("unknown network %q", r.Network)
	}
	return nil
}

// pendingAuthorization is the ephemeral key material waiting for the
// provider callback
type pendingAuthorization struct {
	Provider     Provider           `json:"provider"`
	ClientID     string             `json:"clientId"`
	Network      string             `json:"network"`
	State        string             `json:"state"`
	Nonce        string             `json:"nonce"`
	Randomness   string             `json:"randomness"`
	MaxEpoch     uint64             `json:"maxEpoch"`
	Expiry       time.Time          `json:"expiry"`
	EphemeralKey ed25519.PrivateKey `json:"ephemeralKey"`
}

// StartAuthorization generates the ephemeral key for a new login and
// returns the provider URL the user must visit. The only remote call is the
// nonce request that binds the key to an epoch window.
func (s *Session) StartAuthorization(
	ctx context.Context,
	req AuthorizationRequest,
) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generating ephemeral key: %w", err)
	}
	nonce, err := s.config.Service.CreateNonce(
		ctx,
		req.Network,
		sui.PublicKeyBase64(pub),
		s.config.AdditionalEpochs,
	)
	if err != nil {
		return "", err
	}
	pending := &pendingAuthorization{
		Provider:     req.Provider,
		ClientID:     req.ClientID,
		Network:      req.Network,
		State:        uuid.NewString(),
		Nonce:        nonce.Nonce,
		Randomness:   nonce.Randomness,
		MaxEpoch:     nonce.MaxEpoch,
		Expiry:       nonce.Expiry(),
		EphemeralKey: key,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.put(storeKeyPending, pending); err != nil {
		return "", fmt.Errorf("saving pending authorization: %w", err)
	}
	s.pending = pending
	s.logger.Debug(
		"authorization started",
		"provider", string(req.Provider),
		"network", req.Network,
		"max_epoch", nonce.MaxEpoch,
	)
	return authorizationURL(req, pending), nil
}

func authorizationURL(req AuthorizationRequest, p *pendingAuthorization) string {
	scopes := append([]string{"openid"}, req.ExtraScopes...)
	params := url.Values{}
	params.Set("client_id", req.ClientID)
	params.Set("redirect_uri", req.RedirectURL)
	params.Set("response_type", "id_token")
	params.Set("scope", strings.Join(slices.Compact(scopes), " "))
	params.Set("nonce", p.Nonce)
	params.Set("state", p.State)
	return providerAuthURLs[req.Provider] + "?" + params.Encode()
}

// CompleteAuthorization consumes the provider redirect fragment and
// establishes the identity. The fragment may be given with or without the
// leading '#', or as the full redirect URL.
func (s *Session) CompleteAuthorization(
	ctx context.Context,
	fragment string,
) (*Identity, error) {
	params, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}
	if e := params.Get("error"); e != "" {
		desc := params.Get("error_description")
		if desc == "" {
			desc = e
		}
		return nil, errs.Auth("provider returned error: %s", desc)
	}
	token := params.Get("id_token")
	if token == "" {
		return nil, errs.Auth("callback has no id_token")
	}
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return nil, errs.Auth("no authorization in progress")
	}
	if state := params.Get("state"); state != "" && state != pending.State {
		return nil, errs.Auth("callback state does not match")
	}
	claims, err := parseTokenClaims(token)
	if err != nil {
		return nil, err
	}
	if claims.Nonce != pending.Nonce {
		return nil, errs.Auth("token nonce does not match the ephemeral key")
	}
	now := s.config.Now()
	if !now.Before(pending.Expiry) {
		return nil, errs.Auth("ephemeral key expired before login completed")
	}
	// the identity lives no longer than the provider token it carries
	expiry := pending.Expiry
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(expiry) {
		expiry = claims.ExpiresAt.Time
		if !now.Before(expiry) {
			return nil, errs.Auth("provider token expired before login completed")
		}
	}
	account, err := s.config.Service.GetZkLogin(ctx, token)
	if err != nil {
		return nil, err
	}
	address, err := sui.ParseAddress(account.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: service address: %w", errs.ErrDecode, err)
	}
	id := &Identity{
		ID:            uuid.NewString(),
		Provider:      pending.Provider,
		ProviderToken: token,
		Issuer:        claims.Issuer,
		Subject:       claims.Subject,
		Audience:      claims.audience(),
		EphemeralKey:  pending.EphemeralKey,
		Randomness:    pending.Randomness,
		MaxEpoch:      pending.MaxEpoch,
		Network:       pending.Network,
		Address:       address,
		Salt:          account.Salt,
		Expiry:        expiry,
		CreatedAt:     now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != pending {
		return nil, errs.Auth("authorization was superseded")
	}
	if err := s.store.deletePrefix(storeKeyProofPrefix); err != nil {
		return nil, fmt.Errorf("clearing proofs: %w", err)
	}
	if err := s.store.put(storeKeyIdentity, id); err != nil {
		return nil, fmt.Errorf("saving identity: %w", err)
	}
	if err := s.store.delete(storeKeyPending); err != nil {
		s.logger.Warn("failed to remove pending authorization", "error", err)
	}
	s.identity = id
	s.pending = nil
	clear(s.proofs)
	s.logger.Info(
		"logged in",
		"provider", string(id.Provider),
		"address", id.Address.String(),
		"network", id.Network,
	)
	return id, nil
}

func parseFragment(fragment string) (url.Values, error) {
	if idx := strings.Index(fragment, "#"); idx >= 0 {
		fragment = fragment[idx+1:]
	}
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, errs.Auth("empty callback fragment")
	}
	params, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, errs.Auth("malformed callback fragment: %v", err)
	}
	return params, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

func (c *tokenClaims) audience() string {
	if len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}

// parseTokenClaims reads the JWT claims without verifying the signature.
// The proving service verifies the token against the provider keys.
func parseTokenClaims(token string) (*tokenClaims, error) {
	var claims tokenClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return nil, errs.Auth("malformed id_token: %v", err)
	}
	if claims.Issuer == "" || claims.Subject == "" {
		return nil, errs.Auth("id_token is missing iss or sub")
	}
	if claims.Nonce == "" {
		return nil, errs.Auth("id_token is missing nonce")
	}
	return &claims, nil
}
