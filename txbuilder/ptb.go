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

import "github.com/blinklabs-io/zkvote/sui"

type argumentKind uint8

const (
	argGasCoin argumentKind = iota
	argInput
	argResult
	argNestedResult
)

// Argument refers to a transaction input or a prior command result
type Argument struct {
	kind   argumentKind
	index  uint16
	nested uint16
}

func GasCoin() Argument {
	return Argument{kind: argGasCoin}
}

func Input(idx uint16) Argument {
	return Argument{kind: argInput, index: idx}
}

func Result(idx uint16) Argument {
	return Argument{kind: argResult, index: idx}
}

func NestedResult(idx, nested uint16) Argument {
	return Argument{kind: argNestedResult, index: idx, nested: nested}
}

type objectArgKind uint8

const (
	objectImmOrOwned objectArgKind = iota
	objectShared
)

// CallArg is a transaction input: either pure BCS bytes or an object
type CallArg struct {
	pure   []byte
	isPure bool
	kind   objectArgKind
	owned  sui.ObjectRef
	shared sui.SharedObject
}

func PureArg(b []byte) CallArg {
	return CallArg{pure: append([]byte(nil), b...), isPure: true}
}

func OwnedObject(ref sui.ObjectRef) CallArg {
	return CallArg{kind: objectImmOrOwned, owned: ref}
}

func SharedObjectInput(obj sui.SharedObject) CallArg {
	return CallArg{kind: objectShared, shared: obj}
}

type commandKind uint8

const (
	cmdMoveCall        commandKind = 0
	cmdTransferObjects commandKind = 1
	cmdSplitCoins      commandKind = 2
	cmdMergeCoins      commandKind = 3
	cmdMakeMoveVec     commandKind = 5
)

// Command is a single step of a programmable transaction
type Command struct {
	kind     commandKind
	call     *MoveCall
	args     []Argument
	target   Argument
	elemType *TypeTag
}

// MoveCall invokes a Move entry or public function
type MoveCall struct {
	Package       sui.Address
	Module        string
	Function      string
	TypeArguments []TypeTag
	Arguments     []Argument
}

func MoveCallCommand(call MoveCall) Command {
	return Command{kind: cmdMoveCall, call: &call}
}

func TransferObjectsCommand(objects []Argument, recipient Argument) Command {
	return Command{kind: cmdTransferObjects, args: objects, target: recipient}
}

func SplitCoinsCommand(coin Argument, amounts []Argument) Command {
	return Command{kind: cmdSplitCoins, target: coin, args: amounts}
}

func MergeCoinsCommand(dest Argument, sources []Argument) Command {
	return Command{kind: cmdMergeCoins, target: dest, args: sources}
}

func MakeMoveVecCommand(elemType *TypeTag, elems []Argument) Command {
	return Command{kind: cmdMakeMoveVec, elemType: elemType, args: elems}
}

// ProgrammableTransaction is the lowered form of an intent
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

// GasData pays for a transaction
type GasData struct {
	Payment []sui.ObjectRef
	Owner   sui.Address
	Price   uint64
	Budget  uint64
}
