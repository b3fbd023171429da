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

// Package api is the HTTP surface that drives a login and vote from a
// browser or script.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/session"
	"github.com/blinklabs-io/zkvote/workflow"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultListenAddress = ":8080"
	// HealthServiceName is reported by the gRPC health endpoint
	HealthServiceName = "zkvote.v1.VoteService"

	maxRequestBodySize = 1 << 20
)

// Session is the subset of the credential session used by the API
type Session interface {
	StartAuthorization(ctx context.Context, req session.AuthorizationRequest) (string, error)
	CompleteAuthorization(ctx context.Context, fragment string) (*session.Identity, error)
	GetSession(ctx context.Context) (*session.SessionInfo, bool)
	Logout(ctx context.Context) error
}

// Workflow is the subset of the vote workflow used by the API
type Workflow interface {
	Load(ctx context.Context) (*workflow.View, error)
	Submit(ctx context.Context, ids []uint64) (*workflow.Outcome, error)
	View() *workflow.View
	Confirmation() (*workflow.Confirmation, bool)
}

type Config struct {
	ListenAddress string
	// BaseURL is the externally visible address. The OAuth redirect is
	// BaseURL + "/auth".
	BaseURL  string
	ClientID string
	Network  string
	// Provider is used when a login request does not name one
	Provider session.Provider
	Session  Session
	Workflow Workflow
	EventBus *event.EventBus
	Logger   *slog.Logger
	// Ready reports whether the ledger is reachable. Nil is always ready.
	Ready func(ctx context.Context) error
	// MaxRequestsPerIP bounds in-flight POST requests per source
	MaxRequestsPerIP int
}

// Server is the HTTP API server
type Server struct {
	config     Config
	logger     *slog.Logger
	limiter    *ipLimiter
	httpServer *http.Server
	mu         sync.Mutex
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.Provider == "" {
		cfg.Provider = session.ProviderGoogle
	}
	if cfg.MaxRequestsPerIP <= 0 {
		cfg.MaxRequestsPerIP = DefaultMaxRequestsPerIP
	}
	return &Server{
		config:  cfg,
		logger:  cfg.Logger.With("component", "api"),
		limiter: newIPLimiter(cfg.MaxRequestsPerIP),
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /auth", s.handleAuthPage)
	mux.HandleFunc("POST /api/v1/auth/login", s.limiter.limit(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/callback", s.limiter.limit(s.handleCallback))
	mux.HandleFunc("POST /api/v1/auth/logout", s.limiter.limit(s.handleLogout))
	mux.HandleFunc("GET /api/v1/session", s.handleSession)
	mux.HandleFunc("GET /api/v1/vote", s.handleLoad)
	mux.HandleFunc("POST /api/v1/vote", s.limiter.limit(s.handleSubmit))
	mux.HandleFunc("GET /api/v1/confirmation", s.handleConfirmation)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.Handle(
		grpchealth.NewHandler(
			&healthChecker{ready: s.config.Ready},
			connect.WithCompressMinBytes(1024),
		),
	)
	return mux
}

// Start starts the HTTP server in a background goroutine. The server is
// shut down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr: s.config.ListenAddress,
		// h2c for gRPC health clients without TLS
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	s.logger.Info("API listener started on " + ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

type healthChecker struct {
	ready func(ctx context.Context) error
}

func (h *healthChecker) Check(
	ctx context.Context,
	req *grpchealth.CheckRequest,
) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != HealthServiceName {
		return nil, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("unknown service %q", req.Service),
		)
	}
	if h.ready != nil {
		if err := h.ready(ctx); err != nil {
			return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
		}
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
