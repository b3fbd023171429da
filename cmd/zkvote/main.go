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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/zkvote"
	"github.com/blinklabs-io/zkvote/internal/config"
	"github.com/blinklabs-io/zkvote/internal/node"
	"github.com/blinklabs-io/zkvote/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "zkvote"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// commonRun configures the default logger writing to w
func commonRun(w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Debug(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// withService runs fn against a service built from the command's config
func withService(cmd *cobra.Command, fn func(*zkvote.Service) error) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return fmt.Errorf("no config found in context")
	}
	logger := commonRun(os.Stderr)
	if !globalFlags.debug {
		// one-shot commands only report warnings unless debugging
		logger = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		)
	}
	svc, err := node.NewService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			logger.Warn("failed to stop service", "error", err)
		}
	}()
	return fn(svc)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Sign in with zkLogin and cast a sponsored project vote",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(loginCommand())
	rootCmd.AddCommand(callbackCommand())
	rootCmd.AddCommand(sessionCommand())
	rootCmd.AddCommand(logoutCommand())
	rootCmd.AddCommand(projectsCommand())
	rootCmd.AddCommand(balanceCommand())
	rootCmd.AddCommand(voteCommand())
	rootCmd.AddCommand(transferCommand())
	rootCmd.AddCommand(callCommand())
	rootCmd.AddCommand(versionCommand())

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
