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
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/keystore"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNetwork = "testnet"

var (
	testPackage = sui.MustParseAddress("0xb0b")
	testVotes   = sui.SharedObject{ObjectID: sui.MustParseAddress("0xaa"), InitialSharedVersion: 3}
	sponsorAddr = sui.MustParseAddress("0x5905")
)

type fakeSponsor struct {
	mu          sync.Mutex
	requests    []enoki.SponsorRequest
	jwts        []string
	signatures  []string
	createErr   error
	executeErr  error
	badDigest   bool
	lastTxBytes []byte
}

func (f *fakeSponsor) CreateSponsoredTransaction(
	_ context.Context,
	jwt string,
	req enoki.SponsorRequest,
) (*enoki.SponsoredTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.jwts = append(f.jwts, jwt)
	if f.createErr != nil {
		return nil, f.createErr
	}
	kind, err := base64.StdEncoding.DecodeString(req.TransactionKindBytes)
	if err != nil {
		return nil, err
	}
	sender, err := sui.ParseAddress(req.Sender)
	if err != nil {
		return nil, err
	}
	// TransactionData V1 around the kind with sponsor gas
	txBytes := append([]byte{0}, kind...)
	txBytes = append(txBytes, sender[:]...)
	txBytes = append(txBytes, 0)
	txBytes = append(txBytes, sponsorAddr[:]...)
	f.lastTxBytes = txBytes
	digest := sui.TransactionDigest(txBytes).String()
	if f.badDigest {
		digest = sui.Digest{1}.String()
	}
	return &enoki.SponsoredTransaction{
		Bytes:  base64.StdEncoding.EncodeToString(txBytes),
		Digest: digest,
	}, nil
}

func (f *fakeSponsor) ExecuteSponsoredTransaction(
	_ context.Context,
	digest string,
	signature string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signatures = append(f.signatures, signature)
	if f.executeErr != nil {
		return "", f.executeErr
	}
	return digest, nil
}

type fakeLedger struct {
	mu         sync.Mutex
	status     string
	waitErr    error
	coins      []ledger.Coin
	gasPrice   uint64
	executeErr error
	waited     []string
	executed   [][]byte
	signatures []string
}

func (f *fakeLedger) receipt(digest string) *ledger.Receipt {
	status := f.status
	if status == "" {
		status = ledger.StatusSuccess
	}
	ret := &ledger.Receipt{Digest: digest, Status: status, Checkpoint: 42}
	if status != ledger.StatusSuccess {
		ret.Error = "MoveAbort(vote, 1)"
	}
	return ret
}

func (f *fakeLedger) WaitForTransaction(ctx context.Context, digest string) (*ledger.Receipt, error) {
	f.mu.Lock()
	f.waited = append(f.waited, digest)
	waitErr := f.waitErr
	f.mu.Unlock()
	if waitErr != nil {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", waitErr, ctx.Err())
	}
	return f.receipt(digest), nil
}

func (f *fakeLedger) GetCoins(context.Context, sui.Address, int) ([]ledger.Coin, error) {
	return f.coins, nil
}

func (f *fakeLedger) GetReferenceGasPrice(context.Context) (uint64, error) {
	return f.gasPrice, nil
}

func (f *fakeLedger) ExecuteTransaction(
	_ context.Context,
	txBytesB64 string,
	signatures []string,
) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txBytes, err := base64.StdEncoding.DecodeString(txBytesB64)
	if err != nil {
		return nil, err
	}
	f.executed = append(f.executed, txBytes)
	f.signatures = append(f.signatures, signatures...)
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return f.receipt(sui.TransactionDigest(txBytes).String()), nil
}

// fakeZkSigner signs with a plain ed25519 key and records what it signed
type fakeZkSigner struct {
	*keystore.Signer
	network string
	signed  [][]byte
}

func newZkSigner(t *testing.T) *fakeZkSigner {
	t.Helper()
	s, err := keystore.GenerateSigner()
	require.NoError(t, err)
	return &fakeZkSigner{Signer: s, network: testNetwork}
}

func (f *fakeZkSigner) Network() string       { return f.network }
func (f *fakeZkSigner) ProviderToken() string { return "id-token" }
func (f *fakeZkSigner) Sign(txBytes []byte) (string, error) {
	f.signed = append(f.signed, txBytes)
	return f.Signer.Sign(txBytes)
}

func voteIntent(t *testing.T) *txbuilder.Intent {
	t.Helper()
	sel, err := txbuilder.NewSelection([]uint64{0, 2}, []uint64{0, 1, 2}, 0)
	require.NoError(t, err)
	intent, err := txbuilder.BuildVote(sel, testVotes, testPackage, "42")
	require.NoError(t, err)
	return intent
}

func newExecutor(t *testing.T, sp *fakeSponsor, l *fakeLedger, reg prometheus.Registerer) *Executor {
	t.Helper()
	e, err := New(Config{
		Sponsor:        sp,
		Ledger:         l,
		Network:        testNetwork,
		PromRegistry:   reg,
		ConfirmTimeout: 50 * time.Millisecond,
		GasBudget:      1000,
	})
	require.NoError(t, err)
	return e
}

func TestExecuteSponsored(t *testing.T) {
	sp := &fakeSponsor{}
	l := &fakeLedger{}
	reg := prometheus.NewRegistry()
	e := newExecutor(t, sp, l, reg)
	signer := newZkSigner(t)
	intent := voteIntent(t)

	receipt, err := e.ExecuteSponsored(context.Background(), intent, signer)
	require.NoError(t, err)
	assert.True(t, receipt.Success())

	require.Len(t, sp.requests, 1)
	req := sp.requests[0]
	assert.Equal(t, testNetwork, req.Network)
	assert.Equal(t, signer.Address().String(), req.Sender)
	assert.Equal(t, intent.KindBase64(), req.TransactionKindBytes)
	assert.Equal(t, []string{testPackage.String() + "::voting::vote"}, req.AllowedMoveCallTargets)
	assert.Equal(t, []string{"id-token"}, sp.jwts)

	// the sponsored bytes are what gets signed
	require.Len(t, signer.signed, 1)
	assert.Equal(t, sp.lastTxBytes, signer.signed[0])
	require.Len(t, sp.signatures, 1)
	raw, err := base64.StdEncoding.DecodeString(sp.signatures[0])
	require.NoError(t, err)
	digest := sui.SigningDigest(sui.TransactionIntent, sp.lastTxBytes)
	assert.True(t, ed25519.Verify(signer.PublicKey(), digest[:], raw[1:65]))

	wantDigest := sui.TransactionDigest(sp.lastTxBytes).String()
	assert.Equal(t, []string{wantDigest}, l.waited)
	assert.Equal(t, wantDigest, receipt.Digest)
	assert.InDelta(t, 1, testutil.ToFloat64(
		e.metrics.submissions.WithLabelValues(pathSponsored, "confirmed"),
	), 0)
}

func TestExecuteSponsoredRejected(t *testing.T) {
	sp := &fakeSponsor{createErr: &errs.SponsorError{StatusCode: 403, Message: "target not allowed"}}
	l := &fakeLedger{}
	e := newExecutor(t, sp, l, nil)

	_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
	var sponsorErr *errs.SponsorError
	require.ErrorAs(t, err, &sponsorErr)
	assert.Equal(t, 403, sponsorErr.StatusCode)
	assert.Empty(t, sp.signatures)
	assert.Empty(t, l.waited)
}

func TestExecuteSponsoredExecuteRejected(t *testing.T) {
	sp := &fakeSponsor{executeErr: &errs.SponsorError{StatusCode: 400, Message: "bad signature"}}
	e := newExecutor(t, sp, &fakeLedger{}, nil)
	_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
	assert.ErrorIs(t, err, errs.ErrSponsor)
	assert.NotErrorIs(t, err, errs.ErrUnknownOutcome)
}

func TestExecuteSponsoredDigestMismatch(t *testing.T) {
	sp := &fakeSponsor{badDigest: true}
	e := newExecutor(t, sp, &fakeLedger{}, nil)
	_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
	assert.ErrorIs(t, err, errs.ErrDecode)
	assert.Empty(t, sp.signatures)
}

func TestExecuteSponsoredUnknownOutcome(t *testing.T) {
	t.Run("execute transport failure", func(t *testing.T) {
		sp := &fakeSponsor{executeErr: errs.Network("execute", errors.New("connection reset"))}
		e := newExecutor(t, sp, &fakeLedger{}, nil)
		_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
		var unknown *errs.UnknownOutcomeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, sui.TransactionDigest(sp.lastTxBytes).String(), unknown.Digest)
		assert.ErrorIs(t, err, errs.ErrNetwork)
	})

	t.Run("confirmation timeout", func(t *testing.T) {
		sp := &fakeSponsor{}
		l := &fakeLedger{waitErr: errs.ErrNotFound}
		e := newExecutor(t, sp, l, nil)
		_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
		var unknown *errs.UnknownOutcomeError
		require.ErrorAs(t, err, &unknown)
		assert.NotEmpty(t, unknown.Digest)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestExecuteSponsoredExecutionFailure(t *testing.T) {
	e := newExecutor(t, &fakeSponsor{}, &fakeLedger{status: ledger.StatusFailure}, nil)
	_, err := e.ExecuteSponsored(context.Background(), voteIntent(t), newZkSigner(t))
	var execErr *errs.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "MoveAbort(vote, 1)", execErr.Reason)
	receipt, ok := execErr.Receipt.(*ledger.Receipt)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusFailure, receipt.Status)
}

func TestExecuteSponsoredPreconditions(t *testing.T) {
	sp := &fakeSponsor{}
	e := newExecutor(t, sp, &fakeLedger{}, nil)

	transfer, err := txbuilder.BuildTransfer("0xabc", "10")
	require.NoError(t, err)
	_, err = e.ExecuteSponsored(context.Background(), transfer, newZkSigner(t))
	assert.ErrorIs(t, err, errs.ErrValidation)

	signer := newZkSigner(t)
	signer.network = "mainnet"
	_, err = e.ExecuteSponsored(context.Background(), voteIntent(t), signer)
	assert.ErrorIs(t, err, errs.ErrAuth)
	assert.Empty(t, sp.requests)
}

func TestExecuteSelfPaid(t *testing.T) {
	signer, err := keystore.GenerateSigner()
	require.NoError(t, err)
	coins := []ledger.Coin{
		{Ref: sui.ObjectRef{ObjectID: sui.MustParseAddress("0x1"), Version: 1}, Balance: 400},
		{Ref: sui.ObjectRef{ObjectID: sui.MustParseAddress("0x2"), Version: 1}, Balance: 900},
		{Ref: sui.ObjectRef{ObjectID: sui.MustParseAddress("0x3"), Version: 1}, Balance: 300},
	}
	l := &fakeLedger{coins: coins, gasPrice: 750}
	e := newExecutor(t, nil, l, nil)

	// budget 1000 + 200 transferred needs the two largest coins
	intent, err := txbuilder.BuildTransfer("0xabc", "200")
	require.NoError(t, err)
	receipt, err := e.ExecuteSelfPaid(context.Background(), intent, signer)
	require.NoError(t, err)
	require.Len(t, l.executed, 1)
	txBytes := l.executed[0]
	assert.Equal(t, sui.TransactionDigest(txBytes).String(), receipt.Digest)

	want, err := intent.TransactionData(signer.Address(), txbuilder.GasData{
		Payment: []sui.ObjectRef{coins[1].Ref, coins[0].Ref},
		Owner:   signer.Address(),
		Price:   750,
		Budget:  1000,
	})
	require.NoError(t, err)
	assert.Equal(t, want, txBytes)

	raw, err := base64.StdEncoding.DecodeString(l.signatures[0])
	require.NoError(t, err)
	digest := sui.SigningDigest(sui.TransactionIntent, txBytes)
	assert.True(t, ed25519.Verify(signer.PublicKey(), digest[:], raw[1:65]))
}

func TestExecuteSelfPaidInsufficientBalance(t *testing.T) {
	signer, err := keystore.GenerateSigner()
	require.NoError(t, err)
	l := &fakeLedger{coins: []ledger.Coin{{Balance: 100}}, gasPrice: 1}
	e := newExecutor(t, nil, l, nil)
	intent, err := txbuilder.BuildTransfer("0xabc", "5")
	require.NoError(t, err)
	_, err = e.ExecuteSelfPaid(context.Background(), intent, signer)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, l.executed)
}

func TestExecuteSelfPaidLostResponse(t *testing.T) {
	signer, err := keystore.GenerateSigner()
	require.NoError(t, err)
	l := &fakeLedger{
		coins:      []ledger.Coin{{Balance: 1 << 20}},
		gasPrice:   1,
		executeErr: errs.Network("execute", errors.New("EOF")),
	}
	e := newExecutor(t, nil, l, nil)
	receipt, err := e.ExecuteSelfPaid(context.Background(), voteIntent(t), signer)
	require.NoError(t, err)
	// executed despite the lost response
	assert.Equal(t, []string{receipt.Digest}, l.waited)
}

func TestExecuteSelfPaidRejectedWaitsForDigest(t *testing.T) {
	signer, err := keystore.GenerateSigner()
	require.NoError(t, err)
	l := &fakeLedger{
		coins:      []ledger.Coin{{Balance: 1 << 20}},
		gasPrice:   1,
		executeErr: errs.Network("execute", errors.New("invalid user signature")),
		waitErr:    errs.ErrNotFound,
	}
	e := newExecutor(t, nil, l, nil)
	start := time.Now()
	_, err = e.ExecuteSelfPaid(context.Background(), voteIntent(t), signer)
	// a rejection is not told apart from a lost response
	var unknown *errs.UnknownOutcomeError
	require.ErrorAs(t, err, &unknown)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Len(t, l.waited, 1)
	assert.Equal(t, sui.TransactionDigest(l.executed[0]).String(), unknown.Digest)
}

func TestSelectGasCoins(t *testing.T) {
	coins := []ledger.Coin{{Balance: 5}, {Balance: 10}, {Balance: 1}}
	refs, err := selectGasCoins(coins, big.NewInt(10))
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	refs, err = selectGasCoins(coins, big.NewInt(16))
	require.NoError(t, err)
	assert.Len(t, refs, 3)
	_, err = selectGasCoins(coins, big.NewInt(17))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestNewRequiresLedger(t *testing.T) {
	_, err := New(Config{Network: testNetwork})
	assert.ErrorIs(t, err, errs.ErrConfig)
	_, err = New(Config{Ledger: &fakeLedger{}})
	assert.ErrorIs(t, err, errs.ErrConfig)
}
