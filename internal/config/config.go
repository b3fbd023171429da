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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "zkvote.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

var providers = []string{"google", "facebook", "twitch"}

// Config is read from YAML and then from the environment. The identity,
// OAuth and voting settings also accept their unprefixed variable names.
type Config struct {
	Network     string `yaml:"network"                                split_words:"true"`
	FullnodeURL string `yaml:"fullnodeUrl"                            split_words:"true"`
	EnokiURL    string `yaml:"enokiUrl"                               split_words:"true"`
	EnokiAPIKey string `yaml:"enokiApiKey"   envconfig:"ENOKI_PUB_KEY"`
	// OAuthProvider is google, facebook or twitch
	OAuthProvider       string        `yaml:"oauthProvider"                         split_words:"true"`
	ClientID            string        `yaml:"clientId"      envconfig:"GOOGLE_CLIENT_ID"`
	VotingModuleAddress string        `yaml:"votingModuleAddress" envconfig:"VOTING_MODULE_ADDRESS"`
	VotesObjectAddress  string        `yaml:"votesObjectAddress"  envconfig:"VOTES_OBJECT_ADDRESS"`
	AppURL              string        `yaml:"appUrl"                                split_words:"true"`
	DataDir             string        `yaml:"dataDir"                               split_words:"true"`
	APIListenAddress    string        `yaml:"apiListenAddress"                      split_words:"true"`
	APIMaxRequestsPerIP int           `yaml:"apiMaxRequestsPerIp"                   split_words:"true"`
	MetricsBindAddr     string        `yaml:"metricsBindAddr"                       split_words:"true"`
	MetricsPort         uint          `yaml:"metricsPort"                           split_words:"true"`
	MaxSelections       int           `yaml:"maxSelections"                         split_words:"true"`
	AdditionalEpochs    int           `yaml:"additionalEpochs"                      split_words:"true"`
	ProofTTL            time.Duration `yaml:"proofTtl"                              split_words:"true"`
	ReadTimeout         time.Duration `yaml:"readTimeout"                           split_words:"true"`
	SubmitTimeout       time.Duration `yaml:"submitTimeout"                         split_words:"true"`
	ConfirmTimeout      time.Duration `yaml:"confirmTimeout"                        split_words:"true"`
	ShutdownTimeout     time.Duration `yaml:"shutdownTimeout"                       split_words:"true"`
	GasBudget           uint64        `yaml:"gasBudget"                             split_words:"true"`
	KeyFile             string        `yaml:"keyFile"                               split_words:"true"`
	KeyAddress          string        `yaml:"keyAddress"                            split_words:"true"`
	Tracing             bool          `yaml:"tracing"                               split_words:"true"`
	TracingStdout       bool          `yaml:"tracingStdout"                         split_words:"true"`
}

func defaults() *Config {
	return &Config{
		Network:             "testnet",
		OAuthProvider:       "google",
		AppURL:              "http://localhost:8080",
		DataDir:             ".zkvote",
		APIListenAddress:    ":8080",
		APIMaxRequestsPerIP: 4,
		MetricsBindAddr:     "127.0.0.1",
		MetricsPort:         12798,
		MaxSelections:       3,
		AdditionalEpochs:    2,
		ReadTimeout:         15 * time.Second,
		SubmitTimeout:       2 * time.Minute,
		ConfirmTimeout:      60 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		GasBudget:           50_000_000,
	}
}

// LoadConfig reads configFile, or the first of ~/.zkvote/zkvote.yaml and
// /etc/zkvote/zkvote.yaml that exists, then applies the environment
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaults()
	if configFile == "" {
		// Check for config file in this path: ~/.zkvote/zkvote.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".zkvote", "zkvote.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/zkvote/zkvote.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("zkvote", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values whose format is known. Required settings are
// checked by the commands that need them.
func (c *Config) Validate() error {
	if _, ok := sui.NetworkByName(c.Network); !ok {
		return errs.Config("unknown network %q", c.Network)
	}
	if !slices.Contains(providers, c.OAuthProvider) {
		return errs.Config(
			"unsupported OAuth provider %q, expected one of %v",
			c.OAuthProvider,
			providers,
		)
	}
	for name, addr := range map[string]string{
		"VOTING_MODULE_ADDRESS": c.VotingModuleAddress,
		"VOTES_OBJECT_ADDRESS":  c.VotesObjectAddress,
		"key address":           c.KeyAddress,
	} {
		if addr == "" {
			continue
		}
		if _, err := sui.ParseAddress(addr); err != nil {
			return errs.Config("%s: %v", name, err)
		}
	}
	if c.MaxSelections < 0 {
		return errs.Config("maxSelections must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"proofTtl":        c.ProofTTL,
		"readTimeout":     c.ReadTimeout,
		"submitTimeout":   c.SubmitTimeout,
		"confirmTimeout":  c.ConfirmTimeout,
		"shutdownTimeout": c.ShutdownTimeout,
	} {
		if d < 0 {
			return errs.Config("%s must not be negative", name)
		}
	}
	return nil
}
