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
	"fmt"
	"slices"
)

// Network describes a Sui network known to the pipeline
type Network struct {
	Name        string
	FullnodeURL string
	ExplorerURL string
}

var networks = []Network{
	{
		Name:        "mainnet",
		FullnodeURL: "https://fullnode.mainnet.sui.io:443",
		ExplorerURL: "https://suiscan.xyz/mainnet",
	},
	{
		Name:        "testnet",
		FullnodeURL: "https://fullnode.testnet.sui.io:443",
		ExplorerURL: "https://suiscan.xyz/testnet",
	},
	{
		Name:        "devnet",
		FullnodeURL: "https://fullnode.devnet.sui.io:443",
		ExplorerURL: "https://suiscan.xyz/devnet",
	},
	{
		Name:        "localnet",
		FullnodeURL: "http://127.0.0.1:9000",
	},
}

// NetworkByName returns the named network
func NetworkByName(name string) (Network, bool) {
	idx := slices.IndexFunc(networks, func(n Network) bool {
		return n.Name == name
	})
	if idx < 0 {
		return Network{}, false
	}
	return networks[idx], true
}

// TransactionURL returns the explorer page for a transaction digest, or an
// empty string when the network has no public explorer
func (n Network) TransactionURL(digest string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", n.ExplorerURL, digest)
}
