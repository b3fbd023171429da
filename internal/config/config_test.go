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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPackage = "0x0000000000000000000000000000000000000000000000000000000000000b0b"
	testVotes   = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zkvote.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
network: devnet
enokiApiKey: enoki_public_file
clientId: client.apps.example
votingModuleAddress: "`+testPackage+`"
votesObjectAddress: "`+testVotes+`"
maxSelections: 2
readTimeout: 5s
submitTimeout: 90s
tracing: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := defaults()
	expected.Network = "devnet"
	expected.EnokiAPIKey = "enoki_public_file"
	expected.ClientID = "client.apps.example"
	expected.VotingModuleAddress = testPackage
	expected.VotesObjectAddress = testVotes
	expected.MaxSelections = 2
	expected.ReadTimeout = 5 * time.Second
	expected.SubmitTimeout = 90 * time.Second
	expected.Tracing = true
	assert.Equal(t, expected, cfg)
}

func TestLoadConfigEnvironment(t *testing.T) {
	path := writeConfig(t, "enokiApiKey: from-file\nnetwork: devnet\n")
	t.Setenv("ENOKI_PUB_KEY", "from-env")
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("VOTING_MODULE_ADDRESS", testPackage)
	t.Setenv("VOTES_OBJECT_ADDRESS", testVotes)
	t.Setenv("ZKVOTE_NETWORK", "mainnet")
	t.Setenv("ZKVOTE_CONFIRM_TIMEOUT", "10s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.EnokiAPIKey)
	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, testPackage, cfg.VotingModuleAddress)
	assert.Equal(t, testVotes, cfg.VotesObjectAddress)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, 10*time.Second, cfg.ConfirmTimeout)

	// the prefixed name wins over the bare one
	t.Setenv("ZKVOTE_ENOKI_PUB_KEY", "prefixed")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.EnokiAPIKey)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "network: [\n"))
	require.Error(t, err)

	testDefs := []string{
		"network: moonnet\n",
		"oauthProvider: myspace\n",
		"votingModuleAddress: nope\n",
		"votesObjectAddress: 0xzz\n",
		"maxSelections: -1\n",
		"readTimeout: -5s\n",
	}
	for _, content := range testDefs {
		_, err := LoadConfig(writeConfig(t, content))
		assert.ErrorIs(t, err, errs.ErrConfig, content)
	}
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaults()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
