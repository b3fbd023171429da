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

package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// SignatureScheme is the flag byte prefixed to serialized signatures and
// hashed into account addresses
type SignatureScheme byte

const (
	SchemeEd25519   SignatureScheme = 0x00
	SchemeSecp256k1 SignatureScheme = 0x01
	SchemeSecp256r1 SignatureScheme = 0x02
	SchemeMultiSig  SignatureScheme = 0x03
	SchemeZkLogin   SignatureScheme = 0x05
)

const privateKeyPrefix = "suiprivkey"

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")
)

// TransactionIntent is the intent prefix for transaction data: scope
// TransactionData, version V0, app id Sui
var TransactionIntent = [3]byte{0, 0, 0}

// PersonalMessageIntent is the intent prefix for personal messages
var PersonalMessageIntent = [3]byte{3, 0, 0}

// SigningDigest returns the blake2b hash of the intent message that wraps
// txBytes. This is the value signed by every scheme.
func SigningDigest(intent [3]byte, txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(intent)+len(txBytes))
	msg = append(msg, intent[:]...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// SignTransaction signs transaction bytes with an ed25519 key and returns
// the raw 64-byte signature
func SignTransaction(key ed25519.PrivateKey, txBytes []byte) []byte {
	digest := SigningDigest(TransactionIntent, txBytes)
	return ed25519.Sign(key, digest[:])
}

// SerializeEd25519Signature returns the base64 flag||signature||pubkey form
// accepted by transaction execution
func SerializeEd25519Signature(sig []byte, pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(sig)+len(pub))
	buf = append(buf, byte(SchemeEd25519))
	buf = append(buf, sig...)
	buf = append(buf, pub...)
	return base64.StdEncoding.EncodeToString(buf)
}

// PublicKeyBase64 returns the flagged public key encoding used by the
// identity service
func PublicKeyBase64(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, byte(SchemeEd25519))
	buf = append(buf, pub...)
	return base64.StdEncoding.EncodeToString(buf)
}

// EncodePrivateKey renders an ed25519 seed in the bech32 suiprivkey format
func EncodePrivateKey(key ed25519.PrivateKey) (string, error) {
	data := make([]byte, 0, 1+ed25519.SeedSize)
	data = append(data, byte(SchemeEd25519))
	data = append(data, key.Seed()...)
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(privateKeyPrefix, conv)
}

// DecodePrivateKey parses a bech32 suiprivkey string. Only ed25519 keys
// are supported.
func DecodePrivateKey(s string) (ed25519.PrivateKey, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	if hrp != privateKeyPrefix {
		return nil, fmt.Errorf(
			"%w: unexpected prefix %q",
			ErrInvalidPrivateKey,
			hrp,
		)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	if len(raw) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf(
			"%w: unexpected length %d",
			ErrInvalidPrivateKey,
			len(raw),
		)
	}
	if SignatureScheme(raw[0]) != SchemeEd25519 {
		return nil, fmt.Errorf("%w: flag 0x%02x", ErrUnsupportedScheme, raw[0])
	}
	return ed25519.NewKeyFromSeed(raw[1:]), nil
}
