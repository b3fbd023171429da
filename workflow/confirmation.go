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

package workflow

import (
	"net/url"
	"slices"
	"strings"

	"github.com/blinklabs-io/zkvote/database"
)

const shareIntentURL = "https://twitter.com/intent/tweet?text="

// Confirmation is what the user sees after voting
type Confirmation struct {
	Record *database.VoteRecord
	// ExplorerURL links the vote transaction. Empty on networks without a
	// public explorer.
	ExplorerURL string
	ShareURL    string
}

// Confirmation returns the confirmation view. It reports false until a
// vote record exists.
func (w *Workflow) Confirmation() (*Confirmation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.record == nil {
		return nil, false
	}
	rec := *w.record
	rec.ProjectNames = slices.Clone(rec.ProjectNames)
	return &Confirmation{
		Record:      &rec,
		ExplorerURL: w.config.Network.TransactionURL(rec.Digest),
		ShareURL:    ShareURL(rec.ProjectNames, w.config.AppURL),
	}, true
}

// ShareURL builds the social share link listing the voted projects
func ShareURL(projectNames []string, appURL string) string {
	var sb strings.Builder
	sb.WriteString("I just voted for my favorite Overflow projects!\n")
	for _, name := range projectNames {
		sb.WriteString("\n- ")
		sb.WriteString(name)
	}
	if appURL != "" {
		sb.WriteString("\n\nGo vote at: ")
		sb.WriteString(appURL)
	}
	text := strings.ReplaceAll(url.QueryEscape(sb.String()), "+", "%20")
	return shareIntentURL + text
}
