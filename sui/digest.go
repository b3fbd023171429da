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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fardream/go-bcs/bcs"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const DigestLength = 32

var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a 32-byte object or transaction digest, rendered in base58
type Digest [DigestLength]byte

func ParseDigest(s string) (Digest, error) {
	var ret Digest
	raw := base58.Decode(s)
	if len(raw) != DigestLength {
		return ret, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	copy(ret[:], raw)
	return ret, nil
}

func (d Digest) String() string {
	return base58.Encode(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalBCS writes the digest as a length-prefixed vector
func (d Digest) MarshalBCS() ([]byte, error) {
	return bcs.Marshal(d[:])
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tmp, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = tmp
	return nil
}

// TransactionDigest computes the digest the ledger assigns to serialized
// TransactionData
func TransactionDigest(txBytes []byte) Digest {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("TransactionData::"))
	h.Write(txBytes)
	var ret Digest
	copy(ret[:], h.Sum(nil))
	return ret
}

// ObjectRef pins an owned object at a specific version
type ObjectRef struct {
	ObjectID ObjectID
	Version  uint64
	Digest   Digest
}

// SharedObject references a shared object by its initial shared version
type SharedObject struct {
	ObjectID             ObjectID
	InitialSharedVersion uint64
	Mutable              bool
}
