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

// Package enoki is a client for the Enoki identity, proof and sponsorship
// API. Every request is authenticated with the public API key.
package enoki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
)

const DefaultAPIURL = "https://api.enoki.mystenlabs.com/v1"

// maxResponseBytes limits JSON API responses to 10 MiB
const maxResponseBytes = 10 << 20

// Client talks to the Enoki API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client. The default client only follows
// HTTPS redirects; a custom client must apply its own redirect policy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an API client. An empty baseURL selects DefaultAPIURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errs.Config("identity service API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errs.Config("identity service URL %q: %v", baseURL, err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:       30 * time.Second,
			CheckRedirect: httpsOnlyRedirect,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("component", "enoki")
	return c, nil
}

// httpsOnlyRedirect rejects redirects to non-HTTPS URLs
func httpsOnlyRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("too many redirects")
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to non-HTTPS URL blocked: %s", req.URL)
	}
	return nil
}

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("enoki: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("enoki: status %d: %s", e.StatusCode, e.Message)
}

type errorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// do performs a request and decodes the data envelope into out. Transport
// failures are wrapped with errs.ErrNetwork; HTTP error statuses come back
// as *APIError.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	jwt string,
	body any,
	out any,
) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if jwt != "" {
		req.Header.Set("zklogin-jwt", jwt)
	}
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured base
	if err != nil {
		return errs.Network(method+" "+path, err)
	}
	defer resp.Body.Close()
	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(limited, 4096))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(bodyBytes)),
		}
		var errResp errorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && len(errResp.Errors) > 0 {
			apiErr.Code = errResp.Errors[0].Code
			apiErr.Message = errResp.Errors[0].Message
		}
		c.logger.Debug(
			"request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return apiErr
	}
	var envelope dataEnvelope
	if err := json.NewDecoder(limited).Decode(&envelope); err != nil {
		return &errs.DecodeError{Field: "data", Reason: err.Error()}
	}
	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &errs.DecodeError{Field: "data", Reason: "missing"}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &errs.DecodeError{Field: "data", Reason: err.Error()}
	}
	return nil
}

// asAuthError maps service rejections of identity requests onto
// errs.ErrAuth. Server-side failures stay network errors.
func asAuthError(op string, err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if apiErr.StatusCode >= 500 {
		return fmt.Errorf("%w: %s: %w", errs.ErrNetwork, op, apiErr)
	}
	return fmt.Errorf("%w: %s: %w", errs.ErrAuth, op, apiErr)
}

// asSponsorError maps service rejections of sponsorship requests onto
// *errs.SponsorError
func asSponsorError(op string, err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if apiErr.StatusCode >= 500 {
		return fmt.Errorf("%w: %s: %w", errs.ErrNetwork, op, apiErr)
	}
	return &errs.SponsorError{
		StatusCode: apiErr.StatusCode,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
	}
}
