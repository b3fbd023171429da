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

// Package txbuilder turns vote, transfer and generic call intents into Sui
// programmable transactions. Builders perform no I/O: every object
// reference they need is passed in already resolved.
package txbuilder

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/holiman/uint256"
)

// ArgType is the Move type of a positional call argument
type ArgType string

const (
	ArgU64        ArgType = "u64"
	ArgU64Vector  ArgType = "vector<u64>"
	ArgAddress    ArgType = "address"
	ArgU256       ArgType = "u256"
	ArgBool       ArgType = "bool"
	ArgObject     ArgType = "object"
	ArgCoinAmount ArgType = "coin"
)

// Arg is a typed positional argument of a Move call
type Arg struct {
	typ     ArgType
	u64     uint64
	u64s    []uint64
	address sui.Address
	u256    *uint256.Int
	boolean bool
	object  CallArg
}

func U64(v uint64) Arg {
	return Arg{typ: ArgU64, u64: v}
}

func U64Vector(vs []uint64) Arg {
	return Arg{typ: ArgU64Vector, u64s: slices.Clone(vs)}
}

func Address(a sui.Address) Arg {
	return Arg{typ: ArgAddress, address: a}
}

func U256(v *uint256.Int) Arg {
	return Arg{typ: ArgU256, u256: v.Clone()}
}

func Bool(v bool) Arg {
	return Arg{typ: ArgBool, boolean: v}
}

// SharedObject passes a shared object by reference
func SharedObject(obj sui.SharedObject) Arg {
	return Arg{typ: ArgObject, object: SharedObjectInput(obj)}
}

// OwnedObjectArg passes an owned or immutable object
func OwnedObjectArg(ref sui.ObjectRef) Arg {
	return Arg{typ: ArgObject, object: OwnedObject(ref)}
}

// CoinFromGas passes a new coin of amount split from the gas coin. Only
// usable when the sender pays for gas.
func CoinFromGas(amount uint64) Arg {
	return Arg{typ: ArgCoinAmount, u64: amount}
}

func (a Arg) Type() ArgType {
	return a.typ
}

func (a Arg) String() string {
	switch a.typ {
	case ArgU64, ArgCoinAmount:
		return fmt.Sprintf("%s(%d)", a.typ, a.u64)
	case ArgU64Vector:
		return fmt.Sprintf("%s%v", a.typ, a.u64s)
	case ArgAddress:
		return fmt.Sprintf("%s(%s)", a.typ, a.address)
	case ArgU256:
		return fmt.Sprintf("%s(%s)", a.typ, a.u256.ToBig().String())
	case ArgBool:
		return fmt.Sprintf("%s(%t)", a.typ, a.boolean)
	default:
		return string(a.typ)
	}
}

// Kind names what an intent does
type Kind string

const (
	KindVote     Kind = "vote"
	KindTransfer Kind = "transfer"
	KindCall     Kind = "call"
)

// Target is a fully qualified Move function
type Target struct {
	Package  sui.Address
	Module   string
	Function string
}

// ParseTarget parses "0xpkg::module::function"
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Target{}, errs.Validation("malformed call target %q", s)
	}
	pkg, err := sui.ParseAddress(parts[0])
	if err != nil {
		return Target{}, errs.Validation("call target %q: %v", s, err)
	}
	return Target{Package: pkg, Module: parts[1], Function: parts[2]}, nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s::%s::%s", t.Package, t.Module, t.Function)
}

func (t Target) IsZero() bool {
	return t.Package.IsZero() && t.Module == "" && t.Function == ""
}

// Intent is an unsigned, fully specified ledger call. It cannot be modified
// after it is built.
type Intent struct {
	kind      Kind
	target    Target
	typeArgs  []TypeTag
	args      []Arg
	coins     []uint64
	recipient sui.Address
	ptx       ProgrammableTransaction
	kindBytes []byte
}

func (i *Intent) Kind() Kind {
	return i.kind
}

// Target returns the called function. Transfers have no target.
func (i *Intent) Target() Target {
	return i.target
}

// Args returns a copy of the positional call arguments
func (i *Intent) Args() []Arg {
	return slices.Clone(i.args)
}

// ArgTypes returns the types of the positional call arguments
func (i *Intent) ArgTypes() []ArgType {
	ret := make([]ArgType, 0, len(i.args))
	for _, a := range i.args {
		ret = append(ret, a.typ)
	}
	return ret
}

// RequiredCoins returns the coin amounts split from gas
func (i *Intent) RequiredCoins() []uint64 {
	return slices.Clone(i.coins)
}

// TotalCoins sums RequiredCoins
func (i *Intent) TotalCoins() *big.Int {
	ret := new(big.Int)
	for _, c := range i.coins {
		ret.Add(ret, new(big.Int).SetUint64(c))
	}
	return ret
}

func (i *Intent) Recipient() sui.Address {
	return i.recipient
}

// UsesGasCoin reports whether the transaction spends from the gas coin,
// which a sponsor never allows
func (i *Intent) UsesGasCoin() bool {
	return len(i.coins) > 0
}

// MoveCallTargets lists every function the transaction calls
func (i *Intent) MoveCallTargets() []string {
	var ret []string
	for _, cmd := range i.ptx.Commands {
		if cmd.kind == cmdMoveCall {
			ret = append(ret, Target{
				Package:  cmd.call.Package,
				Module:   cmd.call.Module,
				Function: cmd.call.Function,
			}.String())
		}
	}
	return ret
}

// ProgrammableTransaction returns the lowered transaction
func (i *Intent) ProgrammableTransaction() ProgrammableTransaction {
	return ProgrammableTransaction{
		Inputs:   slices.Clone(i.ptx.Inputs),
		Commands: slices.Clone(i.ptx.Commands),
	}
}

// KindBytes returns the BCS TransactionKind for sponsorship
func (i *Intent) KindBytes() []byte {
	return slices.Clone(i.kindBytes)
}

// KindBase64 returns KindBytes in base64
func (i *Intent) KindBase64() string {
	return base64.StdEncoding.EncodeToString(i.KindBytes())
}

// TransactionData returns the BCS TransactionData for the self-paid path
func (i *Intent) TransactionData(sender sui.Address, gas GasData) ([]byte, error) {
	ret, err := encodeTransactionData(i.ptx, sender, gas)
	if err != nil {
		return nil, fmt.Errorf("encode transaction data: %w", err)
	}
	return ret, nil
}

func (i *Intent) String() string {
	var b strings.Builder
	b.WriteString(string(i.kind))
	if !i.target.IsZero() {
		b.WriteString(" ")
		b.WriteString(i.target.String())
	}
	for idx, a := range i.args {
		if idx == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	return b.String()
}
