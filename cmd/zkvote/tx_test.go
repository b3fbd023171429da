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
	"testing"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/ledger"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/blinklabs-io/zkvote/txbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects map[sui.ObjectID]*ledger.ObjectSnapshot

func (f fakeObjects) GetObject(
	_ context.Context,
	id sui.ObjectID,
	_ ledger.ObjectOptions,
) (*ledger.ObjectSnapshot, error) {
	obj, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", errs.ErrNotFound, id)
	}
	return obj, nil
}

func TestParseCallArg(t *testing.T) {
	tests := []struct {
		in   string
		typ  txbuilder.ArgType
		want string
	}{
		{in: "u64:42", typ: txbuilder.ArgU64, want: "u64(42)"},
		{in: "bool:true", typ: txbuilder.ArgBool, want: "bool(true)"},
		{in: "u256:12345678901234567890123", typ: txbuilder.ArgU256, want: "u256(12345678901234567890123)"},
		{in: "vector<u64>:1, 2,3", typ: txbuilder.ArgU64Vector, want: "vector<u64>[1 2 3]"},
		{in: "vector<u64>:", typ: txbuilder.ArgU64Vector, want: "vector<u64>[]"},
		{in: "coin:1000", typ: txbuilder.ArgCoinAmount, want: "coin(1000)"},
		{in: "address:0x2", typ: txbuilder.ArgAddress},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			arg, err := parseCallArg(context.Background(), fakeObjects{}, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, arg.Type())
			if tc.want != "" {
				assert.Equal(t, tc.want, arg.String())
			}
		})
	}
}

func TestParseCallArgErrors(t *testing.T) {
	for _, in := range []string{
		"42",
		"u64:-1",
		"u64:abc",
		"bool:maybe",
		"address:zz",
		"vector<u64>:1,x",
		"coin:0",
		"u8:1",
	} {
		_, err := parseCallArg(context.Background(), fakeObjects{}, in)
		assert.Error(t, err, in)
	}
}

func TestParseCallArgObject(t *testing.T) {
	shared := sui.MustParseAddress("0x5")
	owned := sui.MustParseAddress("0x6")
	objects := fakeObjects{
		shared: {
			ObjectID: shared,
			Version:  9,
			Owner:    &ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: 3},
		},
		owned: {
			ObjectID: owned,
			Version:  4,
			Owner:    &ledger.Owner{Kind: ledger.OwnerAddress},
		},
	}
	arg, err := parseCallArg(context.Background(), objects, "object:0x5")
	require.NoError(t, err)
	assert.Equal(t, txbuilder.ArgObject, arg.Type())
	arg, err = parseCallArg(context.Background(), objects, "object:0x6")
	require.NoError(t, err)
	assert.Equal(t, txbuilder.ArgObject, arg.Type())

	_, err = parseCallArg(context.Background(), objects, "object:0x7")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestParseProjectIDs(t *testing.T) {
	ids, err := parseProjectIDs([]string{"2", "0"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 0}, ids)
	_, err = parseProjectIDs([]string{"one"})
	require.Error(t, err)
}
