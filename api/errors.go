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
	"errors"
	"net/http"

	"github.com/blinklabs-io/zkvote/errs"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{errs.ErrValidation, http.StatusBadRequest},
	{errs.ErrAuth, http.StatusUnauthorized},
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrAlreadyVoted, http.StatusConflict},
	{errs.ErrConcurrentSubmission, http.StatusConflict},
	{errs.ErrSponsor, http.StatusUnprocessableEntity},
	{errs.ErrExecution, http.StatusUnprocessableEntity},
	// checked before ErrNetwork, which it may wrap
	{errs.ErrUnknownOutcome, http.StatusGatewayTimeout},
	{errs.ErrNetwork, http.StatusBadGateway},
	{errs.ErrDecode, http.StatusBadGateway},
	{errs.ErrConfig, http.StatusInternalServerError},
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

// digestFor returns the transaction digest an error refers to, if any
func digestFor(err error) string {
	var unknown *errs.UnknownOutcomeError
	if errors.As(err, &unknown) {
		return unknown.Digest
	}
	var execErr *errs.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Digest
	}
	return ""
}
