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

// Package errs defines the error kinds shared by every stage of the vote
// pipeline. Callers classify failures with errors.Is against the sentinel
// values and extract details with errors.As against the typed errors.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates missing or invalid static configuration
	ErrConfig = errors.New("configuration error")
	// ErrAuth indicates there is no usable identity
	ErrAuth = errors.New("authentication error")
	// ErrValidation indicates malformed user input
	ErrValidation = errors.New("validation error")
	// ErrNetwork indicates a transport failure talking to a remote service
	ErrNetwork = errors.New("network error")
	// ErrNotFound indicates the requested ledger data does not exist
	ErrNotFound = errors.New("not found")
	// ErrDecode indicates a remote response did not match the expected shape
	ErrDecode = errors.New("decode error")
	// ErrSponsor indicates the sponsor service declined the transaction
	ErrSponsor = errors.New("sponsor error")
	// ErrExecution indicates the ledger executed the transaction and reported failure
	ErrExecution = errors.New("execution error")
	// ErrConcurrentSubmission indicates a submission is already in flight
	ErrConcurrentSubmission = errors.New("submission already in progress")
	// ErrUnknownOutcome indicates a transaction was handed off but no
	// receipt was obtained
	ErrUnknownOutcome = errors.New(
		"unknown outcome, check before retrying",
	)
	// ErrAlreadyVoted indicates a local vote record already exists
	ErrAlreadyVoted = errors.New("already voted")
)

// Config wraps a formatted message as a configuration error
func Config(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Auth wraps a formatted message as an authentication error
func Auth(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

// Validation wraps a formatted message as a validation error
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Network wraps a transport failure
func Network(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

// DecodeError describes a response field that failed schema validation
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrDecode, e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// SponsorError is returned when the identity/sponsor service rejects a request
type SponsorError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *SponsorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf(
			"%s: %s (status %d, code %s)",
			ErrSponsor, e.Message, e.StatusCode, e.Code,
		)
	}
	return fmt.Sprintf("%s: %s (status %d)", ErrSponsor, e.Message, e.StatusCode)
}

func (e *SponsorError) Unwrap() error {
	return ErrSponsor
}

// ExecutionError carries the failed transaction result. Digest and Reason
// are copied out of the receipt so callers do not need the ledger package.
type ExecutionError struct {
	Digest string
	Reason string
	// Receipt holds the full ledger receipt, typically *ledger.Receipt
	Receipt any
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf(
		"%s: transaction %s failed: %s",
		ErrExecution, e.Digest, e.Reason,
	)
}

func (e *ExecutionError) Unwrap() error {
	return ErrExecution
}

// UnknownOutcomeError is returned when a transaction may have been executed
// but the result could not be observed
type UnknownOutcomeError struct {
	Digest string
	Err    error
}

func (e *UnknownOutcomeError) Error() string {
	if e.Digest == "" {
		return fmt.Sprintf("%s: %v", ErrUnknownOutcome, e.Err)
	}
	return fmt.Sprintf(
		"%s: transaction %s: %v",
		ErrUnknownOutcome, e.Digest, e.Err,
	)
}

func (e *UnknownOutcomeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnknownOutcome}
	}
	return []error{ErrUnknownOutcome, e.Err}
}
