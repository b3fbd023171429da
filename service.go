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

package zkvote

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/zkvote/api"
	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/enoki"
	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/executor"
	"github.com/blinklabs-io/zkvote/keystore"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/session"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"github.com/blinklabs-io/zkvote/workflow"
)

// Service owns every component of the voting pipeline
type Service struct {
	config        Config
	network       sui.Network
	eventBus      *event.EventBus
	db            *database.Database
	enoki         *enoki.Client
	ledger        *ledger.Client
	session       *session.Session
	executor      *executor.Executor
	workflow      *workflow.Workflow
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

// New validates cfg and builds all components. Nothing is sent over the
// network until a component is used.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	network, _ := sui.NetworkByName(cfg.network)
	if cfg.fullnodeURL != "" {
		network.FullnodeURL = cfg.fullnodeURL
	}
	s := &Service{
		config:   cfg,
		network:  network,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	if err := s.init(); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config.tracing {
		if err := s.setupTracing(); err != nil {
			return err
		}
	}
	logger := s.config.logger
	var err error
	s.db, err = database.New(logger, s.dataDir("state"))
	if err != nil {
		return fmt.Errorf("failed to open local state: %w", err)
	}
	s.enoki, err = enoki.NewClient(
		s.config.enokiURL,
		s.config.enokiAPIKey,
		enoki.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	s.ledger, err = ledger.NewClient(
		s.network.FullnodeURL,
		ledger.WithLogger(logger),
		ledger.WithPromRegistry(s.config.promRegistry),
	)
	if err != nil {
		return err
	}
	s.session, err = session.New(session.Config{
		Service:          s.enoki,
		DataDir:          s.dataDir("session"),
		Logger:           logger,
		PromRegistry:     s.config.promRegistry,
		AdditionalEpochs: s.config.additionalEpochs,
		ProofTTL:         s.config.proofTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	s.executor, err = executor.New(executor.Config{
		Sponsor:        s.enoki,
		Ledger:         s.ledger,
		Network:        s.network.Name,
		Logger:         logger,
		PromRegistry:   s.config.promRegistry,
		ConfirmTimeout: s.config.confirmTimeout,
		GasBudget:      s.config.gasBudget,
	})
	if err != nil {
		return err
	}
	return nil
}

func (s *Service) dataDir(sub string) string {
	if s.config.dataDir == "" {
		return ""
	}
	return filepath.Join(s.config.dataDir, sub)
}

// Network returns the ledger network the service is bound to
func (s *Service) Network() sui.Network {
	return s.network
}

func (s *Service) Session() *session.Session {
	return s.session
}

func (s *Service) Ledger() *ledger.Client {
	return s.ledger
}

func (s *Service) EventBus() *event.EventBus {
	return s.eventBus
}

// Workflow returns the vote workflow, building it on first use. It fails
// when the voting package or votes object is not configured.
func (s *Service) Workflow() (*workflow.Workflow, error) {
	if s.workflow != nil {
		return s.workflow, nil
	}
	if s.config.packageID == "" {
		return nil, errs.Config("VOTING_MODULE_ADDRESS is required")
	}
	if s.config.votesObjectID == "" {
		return nil, errs.Config("VOTES_OBJECT_ADDRESS is required")
	}
	wf, err := workflow.New(workflow.Config{
		Session:       sessionSource{session: s.session},
		Ledger:        s.ledger,
		Executor:      s.executor,
		Store:         s.db,
		EventBus:      s.eventBus,
		Logger:        s.config.logger,
		Network:       s.network,
		PackageID:     sui.MustParseAddress(s.config.packageID),
		VotesObjectID: sui.MustParseAddress(s.config.votesObjectID),
		AppURL:        s.config.appURL,
		MaxSelections: s.config.maxSelections,
		ReadTimeout:   s.config.readTimeout,
		SubmitTimeout: s.config.submitTimeout,
	})
	if err != nil {
		return nil, err
	}
	s.workflow = wf
	return wf, nil
}

// StartAuthorization begins a login with the configured provider. The
// redirect goes to the app's /auth page.
func (s *Service) StartAuthorization(ctx context.Context, redirectURL string) (string, error) {
	if redirectURL == "" {
		if s.config.appURL == "" {
			return "", errs.Config("app URL is required to derive the redirect URL")
		}
		redirectURL = s.config.appURL + "/auth"
	}
	return s.session.StartAuthorization(ctx, session.AuthorizationRequest{
		Provider:    s.config.provider,
		ClientID:    s.config.clientID,
		RedirectURL: redirectURL,
		Network:     s.network.Name,
	})
}

// Execute submits an intent outside the vote workflow. Sponsored
// submissions sign with the session; self-paid ones use the key file.
func (s *Service) Execute(
	ctx context.Context,
	intent *txbuilder.Intent,
	selfPaid bool,
) (*ledger.Receipt, error) {
	if selfPaid {
		signer, err := s.loadSigner()
		if err != nil {
			return nil, err
		}
		return s.executor.ExecuteSelfPaid(ctx, intent, signer)
	}
	creds, err := s.session.Credentials(ctx, s.network.Name)
	if err != nil {
		return nil, err
	}
	return s.executor.ExecuteSponsored(ctx, intent, creds)
}

func (s *Service) loadSigner() (*keystore.Signer, error) {
	if s.config.keyFile == "" {
		return nil, errs.Config("a key file is required for self-paid transactions")
	}
	var addr sui.Address
	if s.config.keyAddress != "" {
		addr = sui.MustParseAddress(s.config.keyAddress)
	}
	return keystore.Load(keystore.Config{
		Path:    s.config.keyFile,
		Address: addr,
		Logger:  s.config.logger,
	})
}

// Run serves the HTTP API until Stop is called
func (s *Service) Run(ctx context.Context) error {
	wf, err := s.Workflow()
	if err != nil {
		return err
	}
	s.api = api.New(api.Config{
		ListenAddress: s.config.apiListenAddress,
		BaseURL:       s.config.appURL,
		ClientID:      s.config.clientID,
		Network:       s.network.Name,
		Provider:      s.config.provider,
		Session:       s.session,
		Workflow:      wf,
		EventBus:      s.eventBus,
		Logger:        s.config.logger,
		Ready:         s.ready,

		MaxRequestsPerIP: s.config.apiMaxPerIP,
	})
	if err := s.api.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// ready checks that the fullnode answers
func (s *Service) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.ledger.GetReferenceGasPrice(ctx)
	return err
}

func (s *Service) Stop() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.shutdown()
	})
	return err
}

func (s *Service) shutdown() error {
	timeout := s.config.shutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	s.config.logger.Debug("starting graceful shutdown")
	if s.api != nil {
		if stopErr := s.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if s.session != nil {
		if closeErr := s.session.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("session close: %w", closeErr))
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("local state close: %w", closeErr))
		}
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
	for _, fn := range s.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	s.shutdownFuncs = nil
	s.eventBus.Stop()
	s.config.logger.Debug("graceful shutdown complete")
	close(s.done)
	return err
}

// sessionSource presents the credential session to the workflow
type sessionSource struct {
	session *session.Session
}

func (s sessionSource) Address(ctx context.Context) (sui.Address, error) {
	info, ok := s.session.GetSession(ctx)
	if !ok {
		return sui.Address{}, errs.Auth("not logged in")
	}
	return sui.ParseAddress(info.Address)
}

func (s sessionSource) Credentials(ctx context.Context, network string) (workflow.Credentials, error) {
	creds, err := s.session.Credentials(ctx, network)
	if err != nil {
		// a nil *Credentials must not become a non-nil interface
		return nil, err
	}
	return creds, nil
}
