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

package txbuilder

import (
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/fardream/go-bcs/bcs"
)

// The types below mirror the ledger's BCS layout and are encoded by
// reflection. Enums are structs of pointer fields with exactly one set;
// the field position is the variant index, so unused variants keep their
// slot.

type unit struct{}

type wireIndex struct {
	Index uint16
}

type wireNestedResult struct {
	Index  uint16
	Result uint16
}

type wireArgument struct {
	GasCoin      *unit
	Input        *wireIndex
	Result       *wireIndex
	NestedResult *wireNestedResult
}

func (wireArgument) IsBcsEnum() {}

type wirePure struct {
	Bytes []byte
}

type wireObjectArg struct {
	ImmOrOwnedObject *sui.ObjectRef
	SharedObject     *sui.SharedObject
}

func (wireObjectArg) IsBcsEnum() {}

type wireCallArg struct {
	Pure   *wirePure
	Object *wireObjectArg
}

func (wireCallArg) IsBcsEnum() {}

type wireStructTag struct {
	Address    sui.Address
	Module     string
	Name       string
	TypeParams []wireTypeTag
}

type wireTypeTag struct {
	Bool    *unit
	U8      *unit
	U64     *unit
	U128    *unit
	Address *unit
	Signer  *unit
	Vector  *wireTypeTag
	Struct  *wireStructTag
	U16     *unit
	U32     *unit
	U256    *unit
}

func (wireTypeTag) IsBcsEnum() {}

type wireOptionTypeTag struct {
	None *unit
	Some *wireTypeTag
}

func (wireOptionTypeTag) IsBcsEnum() {}

type wireMoveCall struct {
	Package       sui.Address
	Module        string
	Function      string
	TypeArguments []wireTypeTag
	Arguments     []wireArgument
}

type wireTransferObjects struct {
	Objects []wireArgument
	Address wireArgument
}

type wireSplitCoins struct {
	Coin    wireArgument
	Amounts []wireArgument
}

type wireMergeCoins struct {
	Destination wireArgument
	Sources     []wireArgument
}

type wireMakeMoveVec struct {
	Type     wireOptionTypeTag
	Elements []wireArgument
}

type wireCommand struct {
	MoveCall        *wireMoveCall
	TransferObjects *wireTransferObjects
	SplitCoins      *wireSplitCoins
	MergeCoins      *wireMergeCoins
	Publish         *unit
	MakeMoveVec     *wireMakeMoveVec
}

func (wireCommand) IsBcsEnum() {}

type wireProgrammableTransaction struct {
	Inputs   []wireCallArg
	Commands []wireCommand
}

type wireTransactionKind struct {
	ProgrammableTransaction *wireProgrammableTransaction
}

func (wireTransactionKind) IsBcsEnum() {}

type wireExpiration struct {
	None  *unit
	Epoch *struct{ Epoch uint64 }
}

func (wireExpiration) IsBcsEnum() {}

type wireTransactionDataV1 struct {
	Kind       wireTransactionKind
	Sender     sui.Address
	GasData    GasData
	Expiration wireExpiration
}

type wireTransactionData struct {
	V1 *wireTransactionDataV1
}

func (wireTransactionData) IsBcsEnum() {}

func (a Argument) wire() wireArgument {
	switch a.kind {
	case argInput:
		return wireArgument{Input: &wireIndex{Index: a.index}}
	case argResult:
		return wireArgument{Result: &wireIndex{Index: a.index}}
	case argNestedResult:
		return wireArgument{NestedResult: &wireNestedResult{Index: a.index, Result: a.nested}}
	default:
		return wireArgument{GasCoin: &unit{}}
	}
}

func wireArguments(args []Argument) []wireArgument {
	ret := make([]wireArgument, 0, len(args))
	for _, a := range args {
		ret = append(ret, a.wire())
	}
	return ret
}

func (c CallArg) wire() wireCallArg {
	if c.isPure {
		return wireCallArg{Pure: &wirePure{Bytes: c.pure}}
	}
	if c.kind == objectShared {
		shared := c.shared
		return wireCallArg{Object: &wireObjectArg{SharedObject: &shared}}
	}
	owned := c.owned
	return wireCallArg{Object: &wireObjectArg{ImmOrOwnedObject: &owned}}
}

func (t TypeTag) wire() wireTypeTag {
	switch t.kind {
	case tagBool:
		return wireTypeTag{Bool: &unit{}}
	case tagU8:
		return wireTypeTag{U8: &unit{}}
	case tagU16:
		return wireTypeTag{U16: &unit{}}
	case tagU32:
		return wireTypeTag{U32: &unit{}}
	case tagU64:
		return wireTypeTag{U64: &unit{}}
	case tagU128:
		return wireTypeTag{U128: &unit{}}
	case tagU256:
		return wireTypeTag{U256: &unit{}}
	case tagAddress:
		return wireTypeTag{Address: &unit{}}
	case tagSigner:
		return wireTypeTag{Signer: &unit{}}
	case tagVector:
		elem := t.elem.wire()
		return wireTypeTag{Vector: &elem}
	default:
		return wireTypeTag{Struct: &wireStructTag{
			Address:    t.strukt.Address,
			Module:     t.strukt.Module,
			Name:       t.strukt.Name,
			TypeParams: wireTypeTags(t.strukt.TypeParams),
		}}
	}
}

func wireTypeTags(tags []TypeTag) []wireTypeTag {
	ret := make([]wireTypeTag, 0, len(tags))
	for _, t := range tags {
		ret = append(ret, t.wire())
	}
	return ret
}

func (c Command) wire() wireCommand {
	switch c.kind {
	case cmdMoveCall:
		return wireCommand{MoveCall: &wireMoveCall{
			Package:       c.call.Package,
			Module:        c.call.Module,
			Function:      c.call.Function,
			TypeArguments: wireTypeTags(c.call.TypeArguments),
			Arguments:     wireArguments(c.call.Arguments),
		}}
	case cmdTransferObjects:
		return wireCommand{TransferObjects: &wireTransferObjects{
			Objects: wireArguments(c.args),
			Address: c.target.wire(),
		}}
	case cmdSplitCoins:
		return wireCommand{SplitCoins: &wireSplitCoins{
			Coin:    c.target.wire(),
			Amounts: wireArguments(c.args),
		}}
	case cmdMergeCoins:
		return wireCommand{MergeCoins: &wireMergeCoins{
			Destination: c.target.wire(),
			Sources:     wireArguments(c.args),
		}}
	default:
		mv := &wireMakeMoveVec{Elements: wireArguments(c.args)}
		if c.elemType != nil {
			elem := c.elemType.wire()
			mv.Type.Some = &elem
		} else {
			mv.Type.None = &unit{}
		}
		return wireCommand{MakeMoveVec: mv}
	}
}

func (p ProgrammableTransaction) wire() wireTransactionKind {
	ptx := &wireProgrammableTransaction{
		Inputs:   make([]wireCallArg, 0, len(p.Inputs)),
		Commands: make([]wireCommand, 0, len(p.Commands)),
	}
	for _, in := range p.Inputs {
		ptx.Inputs = append(ptx.Inputs, in.wire())
	}
	for _, cmd := range p.Commands {
		ptx.Commands = append(ptx.Commands, cmd.wire())
	}
	return wireTransactionKind{ProgrammableTransaction: ptx}
}

// encodeKind returns the BCS TransactionKind for p
func encodeKind(p ProgrammableTransaction) ([]byte, error) {
	return bcs.Marshal(p.wire())
}

// encodeTransactionData returns the BCS TransactionData for p without an
// expiration
func encodeTransactionData(p ProgrammableTransaction, sender sui.Address, gas GasData) ([]byte, error) {
	return bcs.Marshal(wireTransactionData{V1: &wireTransactionDataV1{
		Kind:       p.wire(),
		Sender:     sender,
		GasData:    gas,
		Expiration: wireExpiration{None: &unit{}},
	}})
}

// pure encodes a primitive value as a pure input
func pure(v any) (CallArg, error) {
	b, err := bcs.Marshal(v)
	if err != nil {
		return CallArg{}, err
	}
	return PureArg(b), nil
}
