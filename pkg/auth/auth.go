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

// Package auth manages the bearer credential attached to every backend
// call. The synchronization core never touches credentials directly; it
// only sees requests fail when the token is missing or rejected.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const loginTimeout = 15 * time.Second

var (
	ErrNoToken            = errors.New("no bearer token held")
	ErrLoginFailed        = errors.New("login failed")
	errUnexpectedResponse = errors.New("unexpected login response")
)

// Credentials holds the bearer token for outbound calls. Safe for
// concurrent use.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials returns a credential holder seeded with token, which
// may be empty.
func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

// Token returns the held bearer token, or ErrNoToken.
func (c *Credentials) Token() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" {
		return "", ErrNoToken
	}

	return c.token, nil
}

// SetToken replaces the held token.
func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Invalidate drops the held token, forcing re-authentication. Called by
// the request layer on a 401.
func (c *Credentials) Invalidate() {
	c.SetToken("")
}

// ExpiresAt returns the token's exp claim without verifying the
// signature; verification is the server's job. Returns the zero time
// when no token is held or the token carries no expiry.
func (c *Credentials) ExpiresAt() time.Time {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}

	return exp.Time
}

// Expired reports whether the held token has an expiry in the past.
func (c *Credentials) Expired(now time.Time) bool {
	exp := c.ExpiresAt()
	return !exp.IsZero() && exp.Before(now)
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login performs the form-encoded OAuth2 password login against
// POST {baseURL}/api/auth/login and stores the returned token.
func (c *Credentials) Login(ctx context.Context, baseURL, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/api/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %w", errUnexpectedResponse, err)
	}

	if body.AccessToken == "" {
		return errUnexpectedResponse
	}

	c.SetToken(body.AccessToken)

	return nil
}
