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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "enoki_public_test")
	require.NoError(t, err)
	return c
}

func writeData(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
}

func TestCreateNonce(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/zklogin/nonce", r.URL.Path)
		assert.Equal(t, "Bearer enoki_public_test", r.Header.Get("Authorization"))
		var req nonceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testnet", req.Network)
		assert.Equal(t, "AEpk", req.EphemeralPublicKey)
		writeData(t, w, map[string]any{
			"nonce":               "n0nce",
			"randomness":          "1234",
			"epoch":               100,
			"maxEpoch":            102,
			"estimatedExpiration": 1760000000000,
		})
	})
	nonce, err := c.CreateNonce(context.Background(), "testnet", "AEpk", 2)
	require.NoError(t, err)
	assert.Equal(t, "n0nce", nonce.Nonce)
	assert.Equal(t, uint64(102), nonce.MaxEpoch)
	assert.Equal(t, int64(1760000000000), nonce.Expiry().UnixMilli())
}

func TestGetZkLoginSendsJWT(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "header.payload.sig", r.Header.Get("zklogin-jwt"))
		writeData(t, w, map[string]any{"salt": "5", "address": "0xabc"})
	})
	acct, err := c.GetZkLogin(context.Background(), "header.payload.sig")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", acct.Address)
}

func TestCreateZkLoginProof(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zklogin/zkp", r.URL.Path)
		var req ProofRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(102), req.MaxEpoch)
		writeData(t, w, map[string]any{
			"proofPoints": map[string]any{
				"a": []string{"1", "2", "1"},
				"b": [][]string{{"1", "2"}, {"3", "4"}, {"1", "0"}},
				"c": []string{"5", "6", "1"},
			},
			"issBase64Details": map[string]any{"value": "aXNz", "indexMod4": 1},
			"headerBase64":     "aGVhZGVy",
			"addressSeed":      "99",
		})
	})
	proof, err := c.CreateZkLoginProof(context.Background(), "jwt", ProofRequest{
		Network:            "testnet",
		EphemeralPublicKey: "AEpk",
		MaxEpoch:           102,
		Randomness:         "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "99", proof.AddressSeed)
	assert.Len(t, proof.ProofPoints.B, 3)
	assert.Equal(t, uint8(1), proof.IssBase64Details.IndexMod4)
}

func TestAuthRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_jwt","message":"JWT expired"}]}`))
	})
	_, err := c.GetZkLogin(context.Background(), "jwt")
	require.ErrorIs(t, err, errs.ErrAuth)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_jwt", apiErr.Code)
}

func TestServerFailureIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := c.CreateNonce(context.Background(), "testnet", "AEpk", 0)
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestSponsorFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transaction-blocks/sponsor":
			var req SponsorRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"0xbb::voting::vote"}, req.AllowedMoveCallTargets)
			assert.Equal(t, "a2luZA==", req.TransactionKindBytes)
			writeData(t, w, map[string]any{"bytes": "dHhieXRlcw==", "digest": "D1"})
		case "/transaction-blocks/sponsor/D1":
			var req executeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "sig", req.Signature)
			writeData(t, w, map[string]any{"digest": "D1"})
		default:
			http.NotFound(w, r)
		}
	})
	sponsored, err := c.CreateSponsoredTransaction(context.Background(), "jwt", SponsorRequest{
		Network:                "testnet",
		TransactionKindBytes:   "a2luZA==",
		Sender:                 "0x1",
		AllowedMoveCallTargets: []string{"0xbb::voting::vote"},
	})
	require.NoError(t, err)
	assert.Equal(t, "D1", sponsored.Digest)

	digest, err := c.ExecuteSponsoredTransaction(context.Background(), "D1", "sig")
	require.NoError(t, err)
	assert.Equal(t, "D1", digest)
}

func TestSponsorRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_move_call","message":"target not allowed"}]}`))
	})
	_, err := c.CreateSponsoredTransaction(context.Background(), "", SponsorRequest{})
	require.ErrorIs(t, err, errs.ErrSponsor)
	var se *errs.SponsorError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "target not allowed", se.Message)
}

func TestMalformedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": null}`))
	})
	_, err := c.GetZkLogin(context.Background(), "jwt")
	assert.ErrorIs(t, err, errs.ErrDecode)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "")
	assert.ErrorIs(t, err, errs.ErrConfig)
}
