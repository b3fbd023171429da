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
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/holiman/uint256"
)

// MaxSelections is the default upper bound on projects per vote
const MaxSelections = 3

const (
	votingModule     = "voting"
	voteFunction     = "vote"
	counterModule    = "counter"
	counterIncrement = "increment"
	burnModule       = "burn"
	burnDeposit      = "deposit"
)

// Selection is an ordered set of distinct project ids. The zero value is
// empty and rejected by BuildVote.
type Selection struct {
	ids []uint64
}

// NewSelection validates ids against the currently known project ids. The
// limit may lower MaxSelections but never raise it; zero selects
// MaxSelections.
func NewSelection(ids []uint64, available []uint64, limit int) (Selection, error) {
	if limit <= 0 || limit > MaxSelections {
		limit = MaxSelections
	}
	if len(ids) == 0 {
		return Selection{}, errs.Validation("select at least one project")
	}
	if len(ids) > limit {
		return Selection{}, errs.Validation(
			"select at most %d projects, got %d",
			limit,
			len(ids),
		)
	}
	known := make(map[uint64]struct{}, len(available))
	for _, id := range available {
		known[id] = struct{}{}
	}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return Selection{}, errs.Validation("unknown project id %d", id)
		}
		if _, dup := seen[id]; dup {
			return Selection{}, errs.Validation("project id %d selected twice", id)
		}
		seen[id] = struct{}{}
	}
	ret := Selection{ids: make([]uint64, len(ids))}
	copy(ret.ids, ids)
	return ret, nil
}

// IDs returns the selected ids in selection order
func (s Selection) IDs() []uint64 {
	ret := make([]uint64, len(s.ids))
	copy(ret, s.ids)
	return ret
}

func (s Selection) Len() int {
	return len(s.ids)
}

// BuildVote encodes a vote for the selection against the shared votes
// object. The address seed binds the vote to the caller's zkLogin identity.
func BuildVote(
	sel Selection,
	votes sui.SharedObject,
	packageID sui.Address,
	addressSeed string,
) (*Intent, error) {
	if sel.Len() == 0 || sel.Len() > MaxSelections {
		return nil, errs.Validation(
			"selection must contain between 1 and %d projects",
			MaxSelections,
		)
	}
	if votes.ObjectID.IsZero() {
		return nil, errs.Validation("votes object id is required")
	}
	seed, err := parseSeed(addressSeed)
	if err != nil {
		return nil, err
	}
	votes.Mutable = true
	return lower(
		KindVote,
		Target{Package: packageID, Module: votingModule, Function: voteFunction},
		nil,
		[]Arg{
			U64Vector(sel.ids),
			SharedObject(votes),
			U256(seed),
		},
	)
}

func parseSeed(addressSeed string) (*uint256.Int, error) {
	seedBig, err := sui.ParseAddressSeed(addressSeed)
	if err != nil {
		return nil, errs.Validation("address seed: %v", err)
	}
	seed, overflow := uint256.FromBig(seedBig)
	if overflow {
		return nil, errs.Validation("address seed exceeds 256 bits")
	}
	return seed, nil
}

// ParseAmount parses a positive integer amount of the smallest coin unit
func ParseAmount(amount string) (uint64, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return 0, errs.Validation("amount %q is not a number", amount)
	}
	if v.Sign() <= 0 {
		return 0, errs.Validation("amount %q must be positive", amount)
	}
	if !v.IsUint64() {
		return 0, errs.Validation("amount %q is too large", amount)
	}
	return v.Uint64(), nil
}

// BuildTransfer splits amount from the payer's gas coin and sends it to
// recipient
func BuildTransfer(recipient string, amount string) (*Intent, error) {
	to, err := sui.ParseAddress(recipient)
	if err != nil {
		return nil, errs.Validation("recipient: %v", err)
	}
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	amountArg, err := pure(value)
	if err != nil {
		return nil, err
	}
	toArg, err := pure(to)
	if err != nil {
		return nil, err
	}
	ptx := ProgrammableTransaction{
		Inputs: []CallArg{amountArg, toArg},
		Commands: []Command{
			SplitCoinsCommand(GasCoin(), []Argument{Input(0)}),
			TransferObjectsCommand([]Argument{NestedResult(0, 0)}, Input(1)),
		},
	}
	kindBytes, err := encodeKind(ptx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction kind: %w", err)
	}
	return &Intent{
		kind:      KindTransfer,
		args:      []Arg{CoinFromGas(value), Address(to)},
		coins:     []uint64{value},
		recipient: to,
		ptx:       ptx,
		kindBytes: kindBytes,
	}, nil
}

// BuildProgramCall builds a single Move call. typeArgs are Move type
// strings such as "0x2::sui::SUI".
func BuildProgramCall(target string, args []Arg, typeArgs ...string) (*Intent, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	tags := make([]TypeTag, 0, len(typeArgs))
	for _, s := range typeArgs {
		tag, err := ParseTypeTag(s)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return lower(KindCall, t, tags, args)
}

// BuildCounterIncrement calls <pkg>::counter::increment on a shared counter
func BuildCounterIncrement(pkg sui.Address, counter sui.SharedObject) (*Intent, error) {
	counter.Mutable = true
	return BuildProgramCall(
		Target{Package: pkg, Module: counterModule, Function: counterIncrement}.String(),
		[]Arg{SharedObject(counter)},
	)
}

// BuildBurnDeposit calls <pkg>::burn::deposit with a coin of amount split
// from gas
func BuildBurnDeposit(pkg sui.Address, amount string) (*Intent, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return BuildProgramCall(
		Target{Package: pkg, Module: burnModule, Function: burnDeposit}.String(),
		[]Arg{CoinFromGas(value)},
	)
}

// lower converts a call with typed arguments into a programmable
// transaction. Inputs appear in argument order.
func lower(kind Kind, target Target, typeArgs []TypeTag, args []Arg) (*Intent, error) {
	var ptx ProgrammableTransaction
	var coins []uint64
	callArgs := make([]Argument, 0, len(args))
	addInput := func(c CallArg) (Argument, error) {
		if len(ptx.Inputs) >= math.MaxUint16 {
			return Argument{}, errs.Validation("too many transaction inputs")
		}
		ptx.Inputs = append(ptx.Inputs, c)
		return Input(uint16(len(ptx.Inputs) - 1)), nil // #nosec G115
	}
	addPure := func(v any) (Argument, error) {
		c, err := pure(v)
		if err != nil {
			return Argument{}, err
		}
		return addInput(c)
	}
	addCommand := func(c Command) Argument {
		ptx.Commands = append(ptx.Commands, c)
		return Result(uint16(len(ptx.Commands) - 1)) // #nosec G115
	}
	for idx, a := range args {
		var arg Argument
		var err error
		switch a.typ {
		case ArgU64:
			arg, err = addPure(a.u64)
		case ArgU64Vector:
			elems := make([]Argument, 0, len(a.u64s))
			for _, v := range a.u64s {
				in, err := addPure(v)
				if err != nil {
					return nil, err
				}
				elems = append(elems, in)
			}
			elemType := u64Type
			arg = addCommand(MakeMoveVecCommand(&elemType, elems))
		case ArgAddress:
			arg, err = addPure(a.address)
		case ArgU256:
			arg, err = addInput(PureArg(u256Bytes(a.u256)))
		case ArgBool:
			arg, err = addPure(a.boolean)
		case ArgObject:
			arg, err = addInput(a.object)
		case ArgCoinAmount:
			var amount Argument
			amount, err = addPure(a.u64)
			if err == nil {
				split := addCommand(SplitCoinsCommand(GasCoin(), []Argument{amount}))
				arg = NestedResult(split.index, 0)
				coins = append(coins, a.u64)
			}
		default:
			return nil, errs.Validation("argument %d has no type", idx)
		}
		if err != nil {
			return nil, err
		}
		callArgs = append(callArgs, arg)
	}
	addCommand(MoveCallCommand(MoveCall{
		Package:       target.Package,
		Module:        target.Module,
		Function:      target.Function,
		TypeArguments: typeArgs,
		Arguments:     callArgs,
	}))
	kindBytes, err := encodeKind(ptx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction kind: %w", err)
	}
	stored := make([]Arg, len(args))
	copy(stored, args)
	return &Intent{
		kind:      kind,
		target:    target,
		typeArgs:  typeArgs,
		args:      stored,
		coins:     coins,
		ptx:       ptx,
		kindBytes: kindBytes,
	}, nil
}

// u256Bytes renders v as 32 little-endian bytes. The BCS library has no
// 256-bit integer type.
func u256Bytes(v *uint256.Int) []byte {
	be := v.Bytes32()
	ret := make([]byte, 32)
	for i := range be {
		ret[31-i] = be[i]
	}
	return ret
}
