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

package keystore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blinklabs-io/zkvote/sui"
)

// keyFileEnvelope is the JSON form of a single key file
type keyFileEnvelope struct {
	Scheme     string `json:"scheme"`
	PrivateKey string `json:"privateKey"`
}

// loadKeyFromFile reads and parses a key file. Three layouts are accepted:
// a bare suiprivkey string, a keyFileEnvelope, and the sui CLI keystore (a
// JSON array of base64 flag||seed strings). A JSON file carrying sops
// metadata is decrypted first.
//
// Permissions are checked on the open handle to avoid a race between the
// check and the read.
func loadKeyFile(path string) ([]ed25519.PrivateKey, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()

	if err := checkOpenFilePermissions(f); err != nil {
		return nil, false, err
	}

	const maxKeyFileSize = 1 << 20
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	encrypted := isEncrypted(data)
	if encrypted {
		data, err = decryptKeyFile(data)
		if err != nil {
			return nil, true, fmt.Errorf("failed to decrypt key file %q: %w", path, err)
		}
	}
	keys, err := parseKeyFile(data)
	if err != nil {
		return nil, encrypted, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	return keys, encrypted, nil
}

func parseKeyFile(data []byte) ([]ed25519.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrKeyNotFound
	}
	switch data[0] {
	case '{':
		var env keyFileEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("could not parse key file envelope: %w", err)
		}
		if env.Scheme != "" && !strings.EqualFold(env.Scheme, "ed25519") {
			return nil, fmt.Errorf("%w: %s", sui.ErrUnsupportedScheme, env.Scheme)
		}
		key, err := sui.DecodePrivateKey(strings.TrimSpace(env.PrivateKey))
		if err != nil {
			return nil, err
		}
		return []ed25519.PrivateKey{key}, nil
	case '[':
		var entries []string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("could not parse keystore: %w", err)
		}
		var ret []ed25519.PrivateKey
		for _, entry := range entries {
			raw, err := base64.StdEncoding.DecodeString(entry)
			if err != nil {
				return nil, fmt.Errorf("could not decode keystore entry: %w", err)
			}
			// other schemes are skipped
			if len(raw) != 1+ed25519.SeedSize ||
				sui.SignatureScheme(raw[0]) != sui.SchemeEd25519 {
				continue
			}
			ret = append(ret, ed25519.NewKeyFromSeed(raw[1:]))
		}
		if len(ret) == 0 {
			return nil, ErrKeyNotFound
		}
		return ret, nil
	default:
		key, err := sui.DecodePrivateKey(string(data))
		if err != nil {
			return nil, err
		}
		return []ed25519.PrivateKey{key}, nil
	}
}

func marshalKeyFile(encoded string) ([]byte, error) {
	return json.MarshalIndent(
		keyFileEnvelope{Scheme: "ed25519", PrivateKey: encoded},
		"",
		"  ",
	)
}
