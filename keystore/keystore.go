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

// Package keystore loads ed25519 account keys used for self-paid
// transactions. Key files may be sops encrypted and must not be readable
// by group or other.
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/zkvote/sui"
)

var (
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrKeyNotFound      = errors.New("key not found in key file")
)

// Signer signs transactions with an account key
type Signer struct {
	key     ed25519.PrivateKey
	address sui.Address
}

// NewSigner wraps an existing ed25519 key
func NewSigner(key ed25519.PrivateKey) *Signer {
	pub, _ := key.Public().(ed25519.PublicKey)
	return &Signer{
		key:     key,
		address: sui.Ed25519Address(pub),
	}
}

// GenerateSigner creates a signer with a fresh random key
func GenerateSigner() (*Signer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewSigner(key), nil
}

func (s *Signer) Address() sui.Address {
	return s.address
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	pub, _ := s.key.Public().(ed25519.PublicKey)
	return pub
}

// Sign returns the serialized signature over transaction bytes
func (s *Signer) Sign(txBytes []byte) (string, error) {
	sig := sui.SignTransaction(s.key, txBytes)
	return sui.SerializeEd25519Signature(sig, s.PublicKey()), nil
}

// PrivateKey returns the key in suiprivkey form
func (s *Signer) PrivateKey() (string, error) {
	return sui.EncodePrivateKey(s.key)
}

// Config controls key loading
type Config struct {
	// Path to the key file
	Path string
	// Address selects an entry from a multi-key keystore file. When zero,
	// the first ed25519 entry is used.
	Address sui.Address
	Logger  *slog.Logger
}

// Load reads a signer from the configured key file
func Load(cfg Config) (*Signer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	logger = logger.With("component", "keystore")
	keys, encrypted, err := loadKeyFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		signer := NewSigner(key)
		if !cfg.Address.IsZero() && signer.Address() != cfg.Address {
			continue
		}
		logger.Debug(
			"loaded account key",
			"path", cfg.Path,
			"address", signer.Address().String(),
			"encrypted", encrypted,
		)
		return signer, nil
	}
	if cfg.Address.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, cfg.Path)
	}
	return nil, fmt.Errorf(
		"%w: no key for address %s in %s",
		ErrKeyNotFound,
		cfg.Address,
		cfg.Path,
	)
}

// WriteKeyFile stores the signer's key at path with owner-only access.
// The key is sops encrypted when encrypt is set.
func WriteKeyFile(path string, s *Signer, encrypt bool) error {
	encoded, err := s.PrivateKey()
	if err != nil {
		return err
	}
	data, err := marshalKeyFile(encoded)
	if err != nil {
		return err
	}
	if encrypt {
		data, err = encryptKeyFile(data)
		if err != nil {
			return err
		}
	}
	// #nosec G306
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file %q: %w", path, err)
	}
	return nil
}
