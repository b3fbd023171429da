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

// Package sui holds the ledger primitives shared by the reader, builder and
// executor: addresses, object references, digests, signature encodings and
// network parameters.
package sui

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const AddressLength = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address is a 32-byte account or object identifier
type Address [AddressLength]byte

// ObjectID identifies an on-chain object. It shares the address format.
type ObjectID = Address

// ParseAddress accepts a 0x-prefixed hex string. Short forms such as "0x2"
// are left-padded with zeros.
func ParseAddress(s string) (Address, error) {
	var ret Address
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" || len(trimmed) > AddressLength*2 {
		return ret, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return ret, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	copy(ret[AddressLength-len(raw):], raw)
	return ret, nil
}

// MustParseAddress is ParseAddress for constants
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalBCS writes the address as 32 raw bytes with no length prefix
func (a Address) MarshalBCS() ([]byte, error) {
	return bytes.Clone(a[:]), nil
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tmp, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// Well-known framework objects
var (
	FrameworkPackage = MustParseAddress("0x2")
	ClockObject      = MustParseAddress("0x6")
)

// SuiCoinType is the coin type of the native gas token
const SuiCoinType = "0x2::sui::SUI"

// Ed25519Address derives the account address of an ed25519 public key
func Ed25519Address(pub []byte) Address {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, byte(SchemeEd25519))
	buf = append(buf, pub...)
	return Address(blake2b.Sum256(buf))
}
