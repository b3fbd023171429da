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
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/fardream/go-bcs/bcs"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidAddressSeed = errors.New("invalid address seed")

// ProofPoints are the Groth16 proof elements as decimal strings
type ProofPoints struct {
	A []string   `json:"a"`
	B [][]string `json:"b"`
	C []string   `json:"c"`
}

// IssBase64Details locates the iss claim within the JWT payload
type IssBase64Details struct {
	Value     string `json:"value"`
	IndexMod4 uint8  `json:"indexMod4"`
}

// ZkLoginInputs is the proof material returned by the proving service plus
// the address seed it was computed for
type ZkLoginInputs struct {
	ProofPoints      ProofPoints      `json:"proofPoints"`
	IssBase64Details IssBase64Details `json:"issBase64Details"`
	HeaderBase64     string           `json:"headerBase64"`
	AddressSeed      string           `json:"addressSeed"`
}

// ZkLoginSignature combines proof inputs with the ephemeral key signature
type ZkLoginSignature struct {
	Inputs        ZkLoginInputs
	MaxEpoch      uint64
	UserSignature []byte
}

// Serialize returns the base64 flag||bcs form accepted by execution.
// Fields encode in declaration order.
func (z ZkLoginSignature) Serialize() (string, error) {
	body, err := bcs.Marshal(z)
	if err != nil {
		return "", fmt.Errorf("encode zklogin signature: %w", err)
	}
	buf := make([]byte, 0, 1+len(body))
	buf = append(buf, byte(SchemeZkLogin))
	buf = append(buf, body...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// ParseAddressSeed parses the decimal address seed into an integer that
// fits the BN254 field
func ParseAddressSeed(seed string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(seed, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddressSeed, seed)
	}
	return v, nil
}

// ZkLoginAddress derives the account address bound to an issuer and address
// seed
func ZkLoginAddress(iss string, addressSeed string) (Address, error) {
	seed, err := ParseAddressSeed(addressSeed)
	if err != nil {
		return Address{}, err
	}
	iss = normalizeIssuer(iss)
	if len(iss) > 255 {
		return Address{}, fmt.Errorf("issuer too long: %d bytes", len(iss))
	}
	buf := make([]byte, 0, 2+len(iss)+32)
	buf = append(buf, byte(SchemeZkLogin))
	buf = append(buf, byte(len(iss)))
	buf = append(buf, iss...)
	var seedBytes [32]byte
	seed.FillBytes(seedBytes[:])
	buf = append(buf, seedBytes[:]...)
	return Address(blake2b.Sum256(buf)), nil
}

func normalizeIssuer(iss string) string {
	if iss == "accounts.google.com" {
		return "https://accounts.google.com"
	}
	return iss
}
