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

package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/blinklabs-io/zkvote/sui"
)

// BigInt decodes integers rendered either as JSON strings or numbers
type BigInt struct {
	big.Int
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer %s", string(data))
	}
	return nil
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Uint64 decodes a u64 rendered either as a JSON string or number
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %s: %w", string(data), err)
	}
	*u = Uint64(v)
	return nil
}

// OwnerKind distinguishes the ownership variants of an object
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "AddressOwner"
	OwnerObject    OwnerKind = "ObjectOwner"
	OwnerShared    OwnerKind = "Shared"
	OwnerImmutable OwnerKind = "Immutable"
)

// Owner is the decoded ownership of an object or balance change
type Owner struct {
	Kind                 OwnerKind
	Address              sui.Address
	InitialSharedVersion uint64
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != string(OwnerImmutable) {
			return fmt.Errorf("unknown owner %q", s)
		}
		o.Kind = OwnerImmutable
		return nil
	}
	var tmp struct {
		AddressOwner *sui.Address `json:"AddressOwner"`
		ObjectOwner  *sui.Address `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion Uint64 `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	switch {
	case tmp.AddressOwner != nil:
		o.Kind = OwnerAddress
		o.Address = *tmp.AddressOwner
	case tmp.ObjectOwner != nil:
		o.Kind = OwnerObject
		o.Address = *tmp.ObjectOwner
	case tmp.Shared != nil:
		o.Kind = OwnerShared
		o.InitialSharedVersion = uint64(tmp.Shared.InitialSharedVersion)
	default:
		return fmt.Errorf("unknown owner %s", string(data))
	}
	return nil
}

// ObjectOptions selects which parts of an object are returned
type ObjectOptions struct {
	ShowType    bool `json:"showType"`
	ShowOwner   bool `json:"showOwner"`
	ShowContent bool `json:"showContent"`
}

// ObjectSnapshot is a single read of an object at its current version
type ObjectSnapshot struct {
	ObjectID sui.ObjectID
	Version  uint64
	Digest   sui.Digest
	Type     string
	Owner    *Owner
	// Fields holds the raw Move struct fields when content was requested
	Fields json.RawMessage
}

// Ref returns the owned-object reference for this snapshot
func (o *ObjectSnapshot) Ref() sui.ObjectRef {
	return sui.ObjectRef{
		ObjectID: o.ObjectID,
		Version:  o.Version,
		Digest:   o.Digest,
	}
}

type objectResponse struct {
	Data *struct {
		ObjectID sui.Address `json:"objectId"`
		Version  Uint64      `json:"version"`
		Digest   sui.Digest  `json:"digest"`
		Type     string      `json:"type"`
		Owner    *Owner      `json:"owner"`
		Content  *struct {
			DataType string          `json:"dataType"`
			Type     string          `json:"type"`
			Fields   json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

// Coin is a single gas coin owned by an address
type Coin struct {
	CoinType string
	Ref      sui.ObjectRef
	Balance  uint64
}

type coinPage struct {
	Data []struct {
		CoinType     string      `json:"coinType"`
		CoinObjectID sui.Address `json:"coinObjectId"`
		Version      Uint64      `json:"version"`
		Digest       sui.Digest  `json:"digest"`
		Balance      Uint64      `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type balanceResponse struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    BigInt `json:"totalBalance"`
}

// Status values reported in transaction effects
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// BalanceChange is a signed change to an owner's coin balance
type BalanceChange struct {
	Owner    sui.Address
	CoinType string
	Amount   *big.Int
}

// GasCost summarizes the gas charged for a transaction
type GasCost struct {
	ComputationCost uint64
	StorageCost     uint64
	StorageRebate   uint64
}

// Net returns the total gas charged after rebate, which may be negative
func (g GasCost) Net() *big.Int {
	ret := new(big.Int).SetUint64(g.ComputationCost)
	ret.Add(ret, new(big.Int).SetUint64(g.StorageCost))
	return ret.Sub(ret, new(big.Int).SetUint64(g.StorageRebate))
}

// Receipt is the executed result of a transaction
type Receipt struct {
	Digest         string
	Status         string
	Error          string
	BalanceChanges []BalanceChange
	GasUsed        GasCost
	Checkpoint     uint64
}

func (r *Receipt) Success() bool {
	return r.Status == StatusSuccess
}

// BalanceDelta sums the changes for owner in coinType
func (r *Receipt) BalanceDelta(owner sui.Address, coinType string) *big.Int {
	ret := new(big.Int)
	for _, bc := range r.BalanceChanges {
		if bc.Owner == owner && bc.CoinType == coinType {
			ret.Add(ret, bc.Amount)
		}
	}
	return ret
}

type transactionResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
		GasUsed struct {
			ComputationCost Uint64 `json:"computationCost"`
			StorageCost     Uint64 `json:"storageCost"`
			StorageRebate   Uint64 `json:"storageRebate"`
		} `json:"gasUsed"`
	} `json:"effects"`
	BalanceChanges []struct {
		Owner    Owner  `json:"owner"`
		CoinType string `json:"coinType"`
		Amount   BigInt `json:"amount"`
	} `json:"balanceChanges"`
	Checkpoint *Uint64 `json:"checkpoint"`
}

func (t *transactionResponse) receipt() (*Receipt, error) {
	if t.Effects == nil {
		return nil, fmt.Errorf("transaction %s has no effects", t.Digest)
	}
	ret := &Receipt{
		Digest: t.Digest,
		Status: t.Effects.Status.Status,
		Error:  t.Effects.Status.Error,
		GasUsed: GasCost{
			ComputationCost: uint64(t.Effects.GasUsed.ComputationCost),
			StorageCost:     uint64(t.Effects.GasUsed.StorageCost),
			StorageRebate:   uint64(t.Effects.GasUsed.StorageRebate),
		},
	}
	if t.Checkpoint != nil {
		ret.Checkpoint = uint64(*t.Checkpoint)
	}
	for _, bc := range t.BalanceChanges {
		amount := new(big.Int).Set(&bc.Amount.Int)
		ret.BalanceChanges = append(ret.BalanceChanges, BalanceChange{
			Owner:    bc.Owner.Address,
			CoinType: bc.CoinType,
			Amount:   amount,
		})
	}
	return ret, nil
}

// TransactionOptions selects which parts of a transaction are returned
type TransactionOptions struct {
	ShowInput          bool `json:"showInput"`
	ShowEffects        bool `json:"showEffects"`
	ShowEvents         bool `json:"showEvents"`
	ShowBalanceChanges bool `json:"showBalanceChanges"`
}

var receiptOptions = TransactionOptions{
	ShowEffects:        true,
	ShowBalanceChanges: true,
}
