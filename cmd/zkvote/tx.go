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

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/zkvote"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// objectReader resolves object arguments
type objectReader interface {
	GetObject(
		ctx context.Context,
		id sui.ObjectID,
		opts ledger.ObjectOptions,
	) (*ledger.ObjectSnapshot, error)
}

// parseCallArg parses a "type:value" argument. Object arguments are read
// from the ledger to decide between a shared and an owned reference.
func parseCallArg(ctx context.Context, objects objectReader, s string) (txbuilder.Arg, error) {
	typ, val, ok := strings.Cut(s, ":")
	if !ok {
		return txbuilder.Arg{}, fmt.Errorf("argument %q must be in the form type:value", s)
	}
	switch txbuilder.ArgType(typ) {
	case txbuilder.ArgU64:
		v, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return txbuilder.Arg{}, fmt.Errorf("invalid u64 %q", val)
		}
		return txbuilder.U64(v), nil
	case txbuilder.ArgU256:
		v, err := uint256.FromDecimal(val)
		if err != nil {
			return txbuilder.Arg{}, fmt.Errorf("invalid u256 %q: %w", val, err)
		}
		return txbuilder.U256(v), nil
	case txbuilder.ArgBool:
		v, err := strconv.ParseBool(val)
		if err != nil {
			return txbuilder.Arg{}, fmt.Errorf("invalid bool %q", val)
		}
		return txbuilder.Bool(v), nil
	case txbuilder.ArgAddress:
		addr, err := sui.ParseAddress(val)
		if err != nil {
			return txbuilder.Arg{}, err
		}
		return txbuilder.Address(addr), nil
	case txbuilder.ArgU64Vector:
		var vs []uint64
		if val != "" {
			for _, part := range strings.Split(val, ",") {
				v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return txbuilder.Arg{}, fmt.Errorf("invalid u64 %q in vector", part)
				}
				vs = append(vs, v)
			}
		}
		return txbuilder.U64Vector(vs), nil
	case txbuilder.ArgCoinAmount:
		amount, err := txbuilder.ParseAmount(val)
		if err != nil {
			return txbuilder.Arg{}, err
		}
		return txbuilder.CoinFromGas(amount), nil
	case txbuilder.ArgObject:
		id, err := sui.ParseAddress(val)
		if err != nil {
			return txbuilder.Arg{}, err
		}
		obj, err := objects.GetObject(ctx, id, ledger.ObjectOptions{ShowOwner: true})
		if err != nil {
			return txbuilder.Arg{}, err
		}
		if obj.Owner != nil && obj.Owner.Kind == ledger.OwnerShared {
			return txbuilder.SharedObject(sui.SharedObject{
				ObjectID:             obj.ObjectID,
				InitialSharedVersion: obj.Owner.InitialSharedVersion,
				Mutable:              true,
			}), nil
		}
		return txbuilder.OwnedObjectArg(obj.Ref()), nil
	default:
		return txbuilder.Arg{}, fmt.Errorf("unknown argument type %q", typ)
	}
}

func printReceipt(cmd *cobra.Command, svc *zkvote.Service, receipt *ledger.Receipt) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "digest:", receipt.Digest)
	fmt.Fprintln(out, "status:", receipt.Status)
	if receipt.Error != "" {
		fmt.Fprintln(out, "error:", receipt.Error)
	}
	fmt.Fprintln(out, "gas:", receipt.GasUsed.Net().String())
	if url := svc.Network().TransactionURL(receipt.Digest); url != "" {
		fmt.Fprintln(out, "explorer:", url)
	}
}

func transferCommand() *cobra.Command {
	var selfPaid bool
	cmd := &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Send native tokens from the signing address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := txbuilder.BuildTransfer(args[0], args[1])
			if err != nil {
				return err
			}
			return withService(cmd, func(svc *zkvote.Service) error {
				receipt, err := svc.Execute(cmd.Context(), intent, selfPaid)
				if err != nil {
					return err
				}
				printReceipt(cmd, svc, receipt)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&selfPaid, "self-paid", false, "pay gas from the key file instead of the sponsor")
	return cmd
}

func callCommand() *cobra.Command {
	var (
		selfPaid bool
		typeArgs []string
	)
	cmd := &cobra.Command{
		Use:   "call <package::module::function> [type:value]...",
		Short: "Execute a single Move call",
		Long: "Execute a single Move call. Arguments are typed as u64:, u256:, bool:, " +
			"address:, vector<u64>:, coin: or object:.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				callArgs := make([]txbuilder.Arg, 0, len(args)-1)
				for _, s := range args[1:] {
					arg, err := parseCallArg(cmd.Context(), svc.Ledger(), s)
					if err != nil {
						return err
					}
					callArgs = append(callArgs, arg)
				}
				intent, err := txbuilder.BuildProgramCall(args[0], callArgs, typeArgs...)
				if err != nil {
					return err
				}
				receipt, err := svc.Execute(cmd.Context(), intent, selfPaid)
				if err != nil {
					return err
				}
				printReceipt(cmd, svc, receipt)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&selfPaid, "self-paid", false, "pay gas from the key file instead of the sponsor")
	cmd.Flags().StringArrayVar(&typeArgs, "type-arg", nil, "Move type argument, may be repeated")
	return cmd
}
