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

// Package node runs the service from the loaded configuration
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/zkvote"
	"github.com/blinklabs-io/zkvote/internal/config"
	"github.com/blinklabs-io/zkvote/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceOptions translates the loaded configuration into service options
func ServiceOptions(cfg *config.Config, logger *slog.Logger) []zkvote.ConfigOptionFunc {
	return []zkvote.ConfigOptionFunc{
		zkvote.WithLogger(logger),
		zkvote.WithNetwork(cfg.Network),
		zkvote.WithFullnodeURL(cfg.FullnodeURL),
		zkvote.WithEnoki(cfg.EnokiURL, cfg.EnokiAPIKey),
		zkvote.WithOAuth(session.Provider(cfg.OAuthProvider), cfg.ClientID),
		zkvote.WithVoting(cfg.VotingModuleAddress, cfg.VotesObjectAddress),
		zkvote.WithAppURL(cfg.AppURL),
		zkvote.WithDataDir(cfg.DataDir),
		zkvote.WithAPIListenAddress(cfg.APIListenAddress),
		zkvote.WithAPIRequestLimit(cfg.APIMaxRequestsPerIP),
		zkvote.WithMaxSelections(cfg.MaxSelections),
		zkvote.WithAdditionalEpochs(cfg.AdditionalEpochs),
		zkvote.WithProofTTL(cfg.ProofTTL),
		zkvote.WithTimeouts(cfg.ReadTimeout, cfg.SubmitTimeout, cfg.ConfirmTimeout),
		zkvote.WithGasBudget(cfg.GasBudget),
		zkvote.WithKeyFile(cfg.KeyFile, cfg.KeyAddress),
		zkvote.WithTracing(cfg.Tracing),
		zkvote.WithTracingStdout(cfg.TracingStdout),
		zkvote.WithShutdownTimeout(cfg.ShutdownTimeout),
	}
}

// NewService builds a service for one-shot commands. Metrics are not
// collected.
func NewService(cfg *config.Config, logger *slog.Logger) (*zkvote.Service, error) {
	return zkvote.New(zkvote.NewConfig(ServiceOptions(cfg, logger)...))
}

// Run serves the API and metrics until SIGINT or SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", redacted(cfg)), "component", "node")
	opts := append(
		ServiceOptions(cfg, logger),
		zkvote.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	svc, err := zkvote.New(zkvote.NewConfig(opts...))
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf("%s:%d", cfg.MetricsBindAddr, cfg.MetricsPort)
		logger.Info("serving prometheus metrics on "+addr, "component", "node")
		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
			}
		}()
	}

	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- svc.Run(signalCtx)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("service failed", "component", "node", "error", runErr)
		}
	}
	stopErr := svc.Stop()
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	return errors.Join(runErr, stopErr)
}

// redacted returns a copy of cfg that is safe to log
func redacted(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.EnokiAPIKey != "" {
		ret.EnokiAPIKey = "<redacted>"
	}
	return ret
}
