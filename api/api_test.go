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

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/session"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x00000000000000000000000000000000000000000000000000000000000a11ce"

type mockSession struct {
	mu          sync.Mutex
	authReqs    []session.AuthorizationRequest
	startErr    error
	completeErr error
	info        *session.SessionInfo
	logouts     int
}

func (m *mockSession) StartAuthorization(
	_ context.Context,
	req session.AuthorizationRequest,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authReqs = append(m.authReqs, req)
	if m.startErr != nil {
		return "", m.startErr
	}
	return "https://accounts.example/auth?nonce=n", nil
}

func (m *mockSession) CompleteAuthorization(
	_ context.Context,
	_ string,
) (*session.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	m.info = &session.SessionInfo{
		Provider: session.ProviderGoogle,
		Address:  testAddress,
		Network:  "testnet",
		Expiry:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return &session.Identity{
		Address: sui.MustParseAddress(testAddress),
		Network: "testnet",
	}, nil
}

func (m *mockSession) GetSession(context.Context) (*session.SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, m.info != nil
}

func (m *mockSession) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts++
	m.info = nil
	return nil
}

type mockWorkflow struct {
	view      *workflow.View
	loadErr   error
	outcome   *workflow.Outcome
	submitErr error
	submitted [][]uint64
	conf      *workflow.Confirmation
}

func (m *mockWorkflow) Load(context.Context) (*workflow.View, error) {
	return m.view, m.loadErr
}

func (m *mockWorkflow) Submit(_ context.Context, ids []uint64) (*workflow.Outcome, error) {
	m.submitted = append(m.submitted, ids)
	return m.outcome, m.submitErr
}

func (m *mockWorkflow) View() *workflow.View {
	return m.view
}

func (m *mockWorkflow) Confirmation() (*workflow.Confirmation, bool) {
	return m.conf, m.conf != nil
}

func newTestServer(t *testing.T, sess *mockSession, wf *mockWorkflow) (*Server, *event.EventBus) {
	t.Helper()
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	s := New(Config{
		BaseURL:  "https://vote.example",
		ClientID: "client-id",
		Network:  "testnet",
		Session:  sess,
		Workflow: wf,
		EventBus: bus,
	})
	return s, bus
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret), rec.Body.String())
	return ret
}

func TestStatusFor(t *testing.T) {
	testDefs := []struct {
		err    error
		status int
	}{
		{errs.Validation("bad"), http.StatusBadRequest},
		{errs.Auth("no"), http.StatusUnauthorized},
		{errs.ErrAlreadyVoted, http.StatusConflict},
		{errs.ErrConcurrentSubmission, http.StatusConflict},
		{&errs.SponsorError{StatusCode: 400, Message: "x"}, http.StatusUnprocessableEntity},
		{&errs.ExecutionError{Digest: "d"}, http.StatusUnprocessableEntity},
		{
			&errs.UnknownOutcomeError{Digest: "d", Err: errs.Network("x", errors.New("eof"))},
			http.StatusGatewayTimeout,
		},
		{errs.Network("x", errors.New("eof")), http.StatusBadGateway},
		{&errs.DecodeError{Field: "f"}, http.StatusBadGateway},
		{errs.Config("x"), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, td := range testDefs {
		assert.Equal(t, td.status, statusFor(td.err), td.err.Error())
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &mockSession{}, &mockWorkflow{})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[HealthResponse](t, rec).IsHealthy)

	s.config.Ready = func(context.Context) error { return errs.ErrNetwork }
	rec = do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGRPCHealth(t *testing.T) {
	s, _ := newTestServer(t, &mockSession{}, &mockWorkflow{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	check := func(service string) (int, map[string]any) {
		resp, err := http.Post(
			srv.URL+"/grpc.health.v1.Health/Check",
			"application/json",
			strings.NewReader(`{"service":"`+service+`"}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}
	code, body := check(HealthServiceName)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SERVING", body["status"])
	code, _ = check("other.Service")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLogin(t *testing.T) {
	sess := &mockSession{}
	s, _ := newTestServer(t, sess, &mockWorkflow{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/auth/login", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://accounts.example/auth?nonce=n", decode[LoginResponse](t, rec).URL)

	rec = do(t, s.Handler(), http.MethodPost, "/api/v1/auth/login", `{"provider":"twitch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sess.authReqs, 2)
	assert.Equal(t, session.ProviderGoogle, sess.authReqs[0].Provider)
	assert.Equal(t, session.ProviderTwitch, sess.authReqs[1].Provider)
	assert.Equal(t, "https://vote.example/auth", sess.authReqs[0].RedirectURL)
	assert.Equal(t, "client-id", sess.authReqs[0].ClientID)
	assert.Equal(t, "testnet", sess.authReqs[0].Network)

	sess.startErr = errs.Config("unsupported provider")
	rec = do(t, s.Handler(), http.MethodPost, "/api/v1/auth/login", `{"provider":"myspace"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallbackAndLogout(t *testing.T) {
	sess := &mockSession{}
	s, bus := newTestServer(t, sess, &mockWorkflow{})
	_, events := bus.Subscribe(event.SessionChangedEventType)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/auth/callback", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sess.completeErr = errs.Auth("nonce mismatch")
	rec = do(t, h, http.MethodPost, "/api/v1/auth/callback", `{"fragment":"#id_token=x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Message, "nonce mismatch")

	sess.completeErr = nil
	rec = do(t, h, http.MethodPost, "/api/v1/auth/callback", `{"fragment":"#id_token=x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testAddress, decode[SessionResponse](t, rec).Address)
	evt := <-events
	assert.Equal(t, event.SessionChangedEvent{
		Address:  testAddress,
		Network:  "testnet",
		LoggedIn: true,
	}, evt.Data)

	rec = do(t, h, http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, sess.logouts)
	evt = <-events
	assert.False(t, evt.Data.(event.SessionChangedEvent).LoggedIn)
}

func TestAuthPage(t *testing.T) {
	s, _ := newTestServer(t, &mockSession{}, &mockWorkflow{})
	rec := do(t, s.Handler(), http.MethodGet, "/auth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/v1/auth/callback")
}

func TestLoad(t *testing.T) {
	wf := &mockWorkflow{
		view: &workflow.View{
			State:   workflow.StateSelecting,
			Address: testAddress,
			Projects: []ledger.Project{
				{ID: 0, Name: "A", InfoURL: "https://a.example", VoteCount: 4},
				{ID: 1, Name: "B"},
			},
			Balance: big.NewInt(1500),
		},
	}
	s, _ := newTestServer(t, &mockSession{}, wf)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/vote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[ViewResponse](t, rec)
	assert.Equal(t, "Selecting", view.State)
	assert.Equal(t, "1500", view.Balance)
	require.Len(t, view.Projects, 2)
	assert.Equal(t, ProjectResponse{ID: 0, Name: "A", InfoURL: "https://a.example", VoteCount: 4}, view.Projects[0])

	wf.loadErr = errs.Auth("not logged in")
	wf.view = nil
	rec = do(t, s.Handler(), http.MethodGet, "/api/v1/vote", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wf.loadErr = &errs.DecodeError{Field: "project_list", Reason: "missing"}
	wf.view = &workflow.View{State: workflow.StateIdle, BalanceErr: errs.ErrNetwork}
	rec = do(t, s.Handler(), http.MethodGet, "/api/v1/vote", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	view = decode[ViewResponse](t, rec)
	assert.Equal(t, "Idle", view.State)
	assert.Contains(t, view.Error, "project_list")
	assert.NotEmpty(t, view.BalanceError)
}

func TestSubmit(t *testing.T) {
	wf := &mockWorkflow{
		outcome: &workflow.Outcome{
			State:   workflow.StateConfirmed,
			Receipt: &ledger.Receipt{Digest: "D1", Status: ledger.StatusSuccess},
			Record:  &database.VoteRecord{ProjectNames: []string{"A", "C"}, Digest: "D1"},
		},
	}
	s, _ := newTestServer(t, &mockSession{}, wf)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/vote", `{"project_ids":[0,2]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[VoteResponse](t, rec)
	assert.Equal(t, "Confirmed", resp.State)
	assert.Equal(t, "D1", resp.Digest)
	assert.Equal(t, []string{"A", "C"}, resp.Record.ProjectNames)
	assert.Equal(t, [][]uint64{{0, 2}}, wf.submitted)

	rec = do(t, h, http.MethodPost, "/api/v1/vote", `{"project_ids":"0,2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, wf.submitted, 1)

	testDefs := []struct {
		err    error
		status int
		digest string
	}{
		{errs.Validation("select at least one project"), http.StatusBadRequest, ""},
		{errs.ErrConcurrentSubmission, http.StatusConflict, ""},
		{errs.ErrAlreadyVoted, http.StatusConflict, ""},
		{&errs.UnknownOutcomeError{Digest: "D9", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "D9"},
		{&errs.ExecutionError{Digest: "D8", Reason: "abort"}, http.StatusUnprocessableEntity, "D8"},
	}
	for _, td := range testDefs {
		wf.submitErr = td.err
		rec := do(t, h, http.MethodPost, "/api/v1/vote", `{"project_ids":[1]}`)
		assert.Equal(t, td.status, rec.Code, td.err.Error())
		assert.Equal(t, td.digest, decode[ErrorResponse](t, rec).Digest)
	}
}

func TestConfirmation(t *testing.T) {
	wf := &mockWorkflow{}
	s, _ := newTestServer(t, &mockSession{}, wf)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/confirmation", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	wf.conf = &workflow.Confirmation{
		Record:      &database.VoteRecord{ProjectNames: []string{"A"}, Digest: "D1"},
		ExplorerURL: "https://suiscan.xyz/testnet/tx/D1",
		ShareURL:    workflow.ShareURL([]string{"A"}, ""),
	}
	rec = do(t, s.Handler(), http.MethodGet, "/api/v1/confirmation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	conf := decode[ConfirmationResponse](t, rec)
	assert.Equal(t, "D1", conf.Record.Digest)
	assert.Equal(t, "https://suiscan.xyz/testnet/tx/D1", conf.ExplorerURL)
	assert.True(t, strings.HasPrefix(conf.ShareURL, "https://twitter.com/intent/tweet?text="))
}

func TestEventStream(t *testing.T) {
	s, bus := newTestServer(t, &mockSession{}, &mockWorkflow{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	_, _ = reader.ReadString('\n')

	bus.Publish(
		event.WorkflowStateChangedEventType,
		event.NewEvent(event.WorkflowStateChangedEventType, event.WorkflowStateChangedEvent{
			From:   "Submitting",
			To:     "Confirmed",
			Digest: "D1",
		}),
	)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: workflow.state_changed\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.JSONEq(
		t,
		`{"from":"Submitting","to":"Confirmed","digest":"D1"}`,
		strings.TrimPrefix(strings.TrimSpace(line), "data: "),
	)
}

func TestStartStop(t *testing.T) {
	s := New(Config{ListenAddress: "127.0.0.1:0"})
	require.NoError(t, s.Start(t.Context()))
	require.Error(t, s.Start(t.Context()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
