/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api is the HTTP client for the backend REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

const defaultTimeout = 15 * time.Second

// TokenProvider supplies the bearer credential for outbound calls and
// is told when the server rejects it.
type TokenProvider interface {
	Token() (string, error)
	Invalidate()
}

// StatusError is a non-2xx response from the backend. Domain rejections
// (e.g. approving an already-reviewed action) arrive as 409s.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Detail)
	}

	return fmt.Sprintf("backend returned %d", e.Code)
}

// IsConflict reports whether err is a 409 domain rejection.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusConflict
}

// Client talks to the backend REST API. All calls carry the bearer
// credential and a fixed client-side timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      TokenProvider
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client rooted at baseURL (scheme://host[:port]).
func NewClient(baseURL string, creds TokenProvider, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		creds:      creds,
		logger:     log,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// Health fetches the backend liveness payload.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListIncidents fetches recent incident summaries, newest first.
func (c *Client) ListIncidents(ctx context.Context, limit int) ([]models.IncidentSummary, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out []models.IncidentSummary
	if err := c.do(ctx, http.MethodGet, "/api/incidents", query, nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// ListActions fetches the action queue, optionally filtered by status.
func (c *Client) ListActions(ctx context.Context, status models.ActionStatus, limit, offset int) (*models.ActionListResponse, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}

	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	var out models.ActionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/actions", query, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ApproveAction approves a pending action. The server binds the
// reviewer identity from the token subject; the body carries only
// optional notes.
func (c *Client) ApproveAction(ctx context.Context, id, notes string) (*models.Action, error) {
	body := models.ApproveActionRequest{Notes: notes}

	var out models.Action
	if err := c.do(ctx, http.MethodPost, "/api/actions/"+url.PathEscape(id)+"/approve", nil, body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// RejectAction rejects a pending action with a mandatory reason.
func (c *Client) RejectAction(ctx context.Context, id, reason string) (*models.Action, error) {
	body := models.RejectActionRequest{Reason: reason}

	var out models.Action
	if err := c.do(ctx, http.MethodPost, "/api/actions/"+url.PathEscape(id)+"/reject", nil, body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Chat sends one conversational exchange.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	var out models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", nil, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.creds != nil {
		if token, err := c.creds.Token(); err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
		c.creds.Invalidate()
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var detail errorDetail

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &detail)

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("detail", detail.Detail).
			Msg("Backend rejected request")

		return &StatusError{Code: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
