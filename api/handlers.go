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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/session"
)

// authPage hands the redirect fragment, which browsers never send to the
// server, to the callback endpoint
const authPage = `<!DOCTYPE html>
<html><head><title>Signing in</title></head>
<body><p id="status">Signing in...</p>
<script>
fetch("/api/v1/auth/callback", {
  method: "POST",
  headers: {"Content-Type": "application/json"},
  body: JSON.stringify({fragment: window.location.hash})
}).then(function (r) {
  if (r.ok) { window.location.replace("/api/v1/vote"); return; }
  return r.json().then(function (e) {
    document.getElementById("status").textContent = e.message;
  });
});
</script></body></html>
`

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, digest string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		Digest:     digest,
	})
}

// writeErr writes err with the status for its kind. Server-side failures
// are logged.
func (s *Server) writeErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "error", err)
	}
	writeError(w, status, err.Error(), digestFor(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errs.Validation("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.config.Ready != nil {
		if err := s.config.Ready(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleAuthPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(authPage))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			s.writeErr(w, "login", err)
			return
		}
	}
	provider := s.config.Provider
	if req.Provider != "" {
		provider = session.Provider(req.Provider)
	}
	if s.config.BaseURL == "" {
		s.writeErr(w, "login", errs.Config("base URL is not configured"))
		return
	}
	authURL, err := s.config.Session.StartAuthorization(
		r.Context(),
		session.AuthorizationRequest{
			Provider:    provider,
			ClientID:    s.config.ClientID,
			RedirectURL: s.config.BaseURL + "/auth",
			Network:     s.config.Network,
		},
	)
	if err != nil {
		s.writeErr(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{URL: authURL})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, "callback", err)
		return
	}
	id, err := s.config.Session.CompleteAuthorization(r.Context(), req.Fragment)
	if err != nil {
		s.writeErr(w, "callback", err)
		return
	}
	s.publishSession(id.Address.String(), id.Network, true)
	info, ok := s.config.Session.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "session expired", "")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(info))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	info, hadSession := s.config.Session.GetSession(r.Context())
	if err := s.config.Session.Logout(r.Context()); err != nil {
		s.writeErr(w, "logout", err)
		return
	}
	if hadSession {
		s.publishSession(info.Address, info.Network, false)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info, ok := s.config.Session.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in", "")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(info))
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	view, err := s.config.Workflow.Load(r.Context())
	if err != nil {
		// a partial view is still useful when only the reads failed
		if view != nil && !errors.Is(err, errs.ErrAuth) {
			s.logger.Warn("load failed", "error", err)
			resp := viewResponse(view)
			resp.Error = err.Error()
			writeJSON(w, statusFor(err), resp)
			return
		}
		s.writeErr(w, "load", err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(view))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, "vote", err)
		return
	}
	out, err := s.config.Workflow.Submit(r.Context(), req.ProjectIDs)
	if err != nil {
		s.writeErr(w, "vote", err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResponse{
		State:  string(out.State),
		Digest: out.Receipt.Digest,
		Record: recordResponse(out.Record),
	})
}

func (s *Server) handleConfirmation(w http.ResponseWriter, _ *http.Request) {
	conf, ok := s.config.Workflow.Confirmation()
	if !ok {
		writeError(w, http.StatusNotFound, "no vote recorded", "")
		return
	}
	writeJSON(w, http.StatusOK, ConfirmationResponse{
		Record:      *recordResponse(conf.Record),
		ExplorerURL: conf.ExplorerURL,
		ShareURL:    conf.ShareURL,
	})
}

func (s *Server) publishSession(address, network string, loggedIn bool) {
	if s.config.EventBus == nil {
		return
	}
	s.config.EventBus.Publish(
		event.SessionChangedEventType,
		event.NewEvent(
			event.SessionChangedEventType,
			event.SessionChangedEvent{
				Address:  address,
				Network:  network,
				LoggedIn: loggedIn,
			},
		),
	)
}

func sessionResponse(info *session.SessionInfo) SessionResponse {
	return SessionResponse{
		Address:     info.Address,
		Provider:    string(info.Provider),
		Network:     info.Network,
		Expiry:      info.Expiry,
		ProofCached: info.ProofCached,
	}
}

