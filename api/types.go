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

package api

import (
	"time"

	"github.com/blinklabs-io/zkvote/database"
	"github.com/blinklabs-io/zkvote/workflow"
)

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	// Digest identifies the transaction when one was submitted
	Digest string `json:"digest,omitempty"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type LoginRequest struct {
	Provider string `json:"provider"`
}

type LoginResponse struct {
	URL string `json:"url"`
}

type CallbackRequest struct {
	// Fragment is the provider redirect fragment or full redirect URL
	Fragment string `json:"fragment"`
}

type SessionResponse struct {
	Address     string    `json:"address"`
	Provider    string    `json:"provider"`
	Network     string    `json:"network"`
	Expiry      time.Time `json:"expiry"`
	ProofCached bool      `json:"proof_cached"`
}

type ProjectResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	InfoURL   string `json:"info_url,omitempty"`
	VoteCount uint64 `json:"vote_count"`
}

type RecordResponse struct {
	ProjectNames []string `json:"project_names"`
	Digest       string   `json:"digest"`
}

// ViewResponse is the workflow snapshot
type ViewResponse struct {
	State         string            `json:"state"`
	Address       string            `json:"address,omitempty"`
	Projects      []ProjectResponse `json:"projects"`
	ProjectsError string            `json:"projects_error,omitempty"`
	// Balance is in the smallest coin unit, empty when unknown
	Balance      string          `json:"balance,omitempty"`
	BalanceError string          `json:"balance_error,omitempty"`
	Record       *RecordResponse `json:"record,omitempty"`
	Pending      string          `json:"pending_digest,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type VoteRequest struct {
	ProjectIDs []uint64 `json:"project_ids"`
}

type VoteResponse struct {
	State  string          `json:"state"`
	Digest string          `json:"digest"`
	Record *RecordResponse `json:"record"`
}

type ConfirmationResponse struct {
	Record      RecordResponse `json:"record"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
	ShareURL    string         `json:"share_url"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func recordResponse(rec *database.VoteRecord) *RecordResponse {
	if rec == nil {
		return nil
	}
	return &RecordResponse{
		ProjectNames: rec.ProjectNames,
		Digest:       rec.Digest,
	}
}

func viewResponse(v *workflow.View) ViewResponse {
	ret := ViewResponse{
		State:         string(v.State),
		Address:       v.Address,
		Projects:      make([]ProjectResponse, 0, len(v.Projects)),
		ProjectsError: errString(v.ProjectsErr),
		BalanceError:  errString(v.BalanceErr),
		Record:        recordResponse(v.Record),
		Pending:       v.Pending,
		Error:         errString(v.LastErr),
	}
	for _, p := range v.Projects {
		ret.Projects = append(ret.Projects, ProjectResponse{
			ID:        p.ID,
			Name:      p.Name,
			InfoURL:   p.InfoURL,
			VoteCount: p.VoteCount,
		})
	}
	if v.Balance != nil {
		ret.Balance = v.Balance.String()
	}
	return ret
}
