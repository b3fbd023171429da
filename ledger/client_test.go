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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(params []json.RawMessage) (any, *rpcFault)

type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeNode is a minimal JSON-RPC server that dispatches on method name
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	fn := &fakeNode{
		handlers: make(map[string]rpcHandler),
		calls:    make(map[string]int),
	}
	server := httptest.NewServer(http.HandlerFunc(fn.serveHTTP))
	t.Cleanup(server.Close)
	return fn, server
}

func (f *fakeNode) handle(method string, h rpcHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeNode) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls[req.Method]++
	h, ok := f.handlers[req.Method]
	f.mu.Unlock()
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = rpcFault{Code: -32601, Message: "Method not found"}
	} else {
		result, fault := h(req.Params)
		if fault != nil {
			resp["error"] = fault
		} else {
			resp["result"] = result
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

const votesObjectJSON = `{
  "data": {
    "objectId": "0x00000000000000000000000000000000000000000000000000000000000000aa",
    "version": "42",
    "digest": "11111111111111111111111111111111",
    "type": "0xbb::voting::Votes",
    "owner": {"Shared": {"initial_shared_version": 7}},
    "content": {
      "dataType": "moveObject",
      "type": "0xbb::voting::Votes",
      "fields": {
        "id": {"id": "0x00000000000000000000000000000000000000000000000000000000000000aa"},
        "project_list": [
          {"type": "0xbb::voting::Project", "fields": {"id": "0", "name": "A", "air_table_url": "https://a", "votes": "3"}},
          {"type": "0xbb::voting::Project", "fields": {"id": "1", "name": "B", "air_table_url": "https://b", "votes": "0"}},
          {"type": "0xbb::voting::Project", "fields": {"id": 2, "name": "C", "air_table_url": "https://c", "votes": "12"}}
        ]
      }
    }
  }
}`

func TestGetProjects(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcFault) {
		return json.RawMessage(votesObjectJSON), nil
	})
	reg := prometheus.NewRegistry()
	c, err := NewClient(server.URL, WithPromRegistry(reg))
	require.NoError(t, err)
	defer c.Close()

	votes, err := c.GetProjects(context.Background(), sui.MustParseAddress("0xaa"))
	require.NoError(t, err)
	require.Len(t, votes.Projects, 3)
	assert.Equal(t, Project{ID: 0, Name: "A", InfoURL: "https://a", VoteCount: 3}, votes.Projects[0])
	assert.Equal(t, uint64(2), votes.Projects[2].ID)
	assert.Equal(t, uint64(12), votes.Projects[2].VoteCount)
	assert.Equal(t, uint64(7), votes.Ref.InitialSharedVersion)
	assert.True(t, votes.Ref.Mutable)
	assert.Equal(t, []uint64{0, 1, 2}, votes.ProjectIDs())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestGetObjectNotFound(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcFault) {
		return map[string]any{
			"error": map[string]any{"code": "notExists", "object_id": "0xaa"},
		}, nil
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetObject(context.Background(), sui.MustParseAddress("0xaa"), ObjectOptions{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGetObjectTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetBalance(context.Background(), sui.MustParseAddress("0x1"))
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestDecodeProjectsRejectsMalformed(t *testing.T) {
	testDefs := []struct {
		name   string
		fields string
	}{
		{"missing list", `{"other": []}`},
		{"list not array", `{"project_list": "x"}`},
		{"missing name", `{"project_list": [{"fields": {"id": "0", "air_table_url": "", "votes": "0"}}]}`},
		{"bad id", `{"project_list": [{"fields": {"id": "-1", "name": "A", "air_table_url": "", "votes": "0"}}]}`},
		{"bad votes", `{"project_list": [{"fields": {"id": "0", "name": "A", "air_table_url": "", "votes": true}}]}`},
		{"duplicate id", `{"project_list": [{"fields": {"id": "0", "name": "A", "air_table_url": "", "votes": "0"}}, {"fields": {"id": "0", "name": "B", "air_table_url": "", "votes": "0"}}]}`},
	}
	for _, td := range testDefs {
		t.Run(td.name, func(t *testing.T) {
			_, err := DecodeProjects(json.RawMessage(td.fields))
			assert.ErrorIs(t, err, errs.ErrDecode)
		})
	}
}

func TestGetBalanceAndGasPrice(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("suix_getBalance", func(params []json.RawMessage) (any, *rpcFault) {
		var coinType string
		_ = json.Unmarshal(params[1], &coinType)
		if coinType != sui.SuiCoinType {
			return nil, &rpcFault{Code: -32602, Message: "bad coin type"}
		}
		return map[string]any{
			"coinType":        sui.SuiCoinType,
			"coinObjectCount": 2,
			"totalBalance":    "1500000000",
		}, nil
	})
	fn.handle("suix_getReferenceGasPrice", func(params []json.RawMessage) (any, *rpcFault) {
		return "750", nil
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	defer c.Close()

	bal, err := c.GetBalance(context.Background(), sui.MustParseAddress("0x1"))
	require.NoError(t, err)
	assert.Equal(t, "1500000000", bal.String())

	price, err := c.GetReferenceGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(750), price)
}

func TestGetCoinsPagination(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("suix_getCoins", func(params []json.RawMessage) (any, *rpcFault) {
		var cursor *string
		_ = json.Unmarshal(params[2], &cursor)
		coin := func(id string, bal string) map[string]any {
			return map[string]any{
				"coinType":     sui.SuiCoinType,
				"coinObjectId": id,
				"version":      "3",
				"digest":       "11111111111111111111111111111111",
				"balance":      bal,
			}
		}
		if cursor == nil {
			return map[string]any{
				"data":        []any{coin("0x1", "10")},
				"nextCursor":  "next",
				"hasNextPage": true,
			}, nil
		}
		return map[string]any{
			"data":        []any{coin("0x2", "20")},
			"hasNextPage": false,
		}, nil
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	defer c.Close()

	coins, err := c.GetCoins(context.Background(), sui.MustParseAddress("0x1"), 0)
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, uint64(20), coins[1].Balance)
	assert.Equal(t, 2, fn.callCount("suix_getCoins"))
}

func transactionResult(digest, status, reason string) map[string]any {
	return map[string]any{
		"digest": digest,
		"effects": map[string]any{
			"status": map[string]any{"status": status, "error": reason},
			"gasUsed": map[string]any{
				"computationCost": "1000",
				"storageCost":     "2000",
				"storageRebate":   "500",
			},
		},
		"balanceChanges": []any{
			map[string]any{
				"owner":    map[string]any{"AddressOwner": "0x1"},
				"coinType": sui.SuiCoinType,
				"amount":   "-2500",
			},
		},
		"checkpoint": "99",
	}
}

func TestWaitForTransaction(t *testing.T) {
	fn, server := newFakeNode(t)
	var mu sync.Mutex
	attempts := 0
	fn.handle("sui_getTransactionBlock", func(params []json.RawMessage) (any, *rpcFault) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, &rpcFault{Code: -32602, Message: "Could not find the referenced transaction"}
		}
		return transactionResult("dig", StatusFailure, "InsufficientGas"), nil
	})
	c, err := NewClient(server.URL, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	receipt, err := c.WaitForTransaction(context.Background(), "dig")
	require.NoError(t, err)
	assert.False(t, receipt.Success())
	assert.Equal(t, "InsufficientGas", receipt.Error)
	assert.Equal(t, uint64(99), receipt.Checkpoint)
	assert.Equal(t, "-2500", receipt.BalanceDelta(sui.MustParseAddress("0x1"), sui.SuiCoinType).String())
	assert.Equal(t, "2500", receipt.GasUsed.Net().String())
}

func TestWaitForTransactionDeadline(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("sui_getTransactionBlock", func(params []json.RawMessage) (any, *rpcFault) {
		return nil, &rpcFault{Code: -32602, Message: "Could not find the referenced transaction"}
	})
	c, err := NewClient(server.URL, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.WaitForTransaction(ctx, "dig")
	require.Error(t, err)
}

func TestExecuteTransaction(t *testing.T) {
	fn, server := newFakeNode(t)
	fn.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcFault) {
		var sigs []string
		_ = json.Unmarshal(params[1], &sigs)
		if len(sigs) != 1 {
			return nil, &rpcFault{Code: -32602, Message: "expected one signature"}
		}
		return transactionResult("dig", StatusSuccess, ""), nil
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	defer c.Close()

	receipt, err := c.ExecuteTransaction(context.Background(), "AAAA", []string{"sig"})
	require.NoError(t, err)
	assert.True(t, receipt.Success())
	assert.Equal(t, "dig", receipt.Digest)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, errs.ErrConfig)
}
