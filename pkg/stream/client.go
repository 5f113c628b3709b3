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

// Package stream owns the long-lived websocket connection to the alert
// stream and its reconnect state machine.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

var (
	errMissingURL     = errors.New("stream URL is required")
	errAlreadyStarted = errors.New("stream client already started")
)

// Config configures the stream client.
type Config struct {
	URL string `json:"url"` // e.g. ws://localhost:8000/ws/logs
}

// Validate ensures the stream configuration is usable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errMissingURL
	}

	return nil
}

// Client maintains one persistent push connection. Any close or
// transport error schedules a reconnection attempt after an escalating
// delay; reconnection continues unconditionally until Close.
//
// State machine: disconnected -> connecting -> connected ->
// disconnected -> connecting -> ...
type Client struct {
	url    string
	dialer Dialer
	clock  Clock
	creds  TokenProvider
	logger logger.Logger

	onMessage MessageHandler
	onState   StateHandler

	mu       sync.Mutex
	state    models.ConnectionState
	conn     Conn
	started  bool
	attempts int

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewClient creates a stream client. Handlers must be registered
// before Connect. A nil clock defaults to the real clock; creds may be
// nil when the stream endpoint is unauthenticated.
func NewClient(config *Config, creds TokenProvider, clock Clock, log logger.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Client{
		url:    config.URL,
		dialer: &wsDialer{dialer: websocket.DefaultDialer},
		clock:  clock,
		creds:  creds,
		logger: log,
		state:  models.StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the handler for alert-tagged incidents.
func (c *Client) OnMessage(h MessageHandler) {
	c.onMessage = h
}

// OnStateChange registers the handler for connectivity transitions.
func (c *Client) OnStateChange(h StateHandler) {
	c.onState = h
}

// State returns the current connectivity state.
func (c *Client) State() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connect starts the connection manager. The first attempt is made
// immediately; afterwards the client reconnects on every close or
// error until ctx is cancelled or Close is called.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()

	if c.started {
		c.mu.Unlock()
		return errAlreadyStarted
	}

	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()

	return nil
}

// Close performs a terminal, non-reconnecting shutdown: no further
// reconnection is scheduled and any open connection closes
// immediately. A reconnect timer firing afterwards is a no-op.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	for {
		if c.inactive(ctx) {
			return
		}

		c.setState(models.StateConnecting)

		connID := uuid.NewString()[:8]

		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(models.StateDisconnected)

			if c.inactive(ctx) {
				return
			}

			delay := c.nextDelay()
			c.logger.Warn().
				Err(err).
				Str("conn_id", connID).
				Dur("retry_in", delay).
				Msg("Stream dial failed")

			if !c.wait(ctx, delay) {
				return
			}

			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.attempts = 0
		c.mu.Unlock()

		// Teardown may have raced the dial; don't hold a connection
		// that Close can no longer see.
		if c.inactive(ctx) {
			_ = conn.Close()
			return
		}

		c.setState(models.StateConnected)
		c.logger.Info().Str("conn_id", connID).Msg("Stream connected")

		c.readLoop(conn, connID)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		c.setState(models.StateDisconnected)

		if c.inactive(ctx) {
			return
		}

		delay := c.nextDelay()
		c.logger.Warn().
			Str("conn_id", connID).
			Dur("retry_in", delay).
			Msg("Stream closed, scheduling reconnect")

		if !c.wait(ctx, delay) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (Conn, error) {
	header := http.Header{}

	if c.creds != nil {
		if token, err := c.creds.Token(); err == nil {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.dialer.DialContext(ctx, c.url, header)
}

// readLoop consumes frames until the connection errors or closes.
// Malformed payloads are discarded; only alert-tagged frames reach the
// message handler.
func (c *Client) readLoop(conn Conn, connID string) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Str("conn_id", connID).Msg("Stream read error")
			}

			return
		}

		var msg models.StreamMessage

		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Debug().Err(err).Str("conn_id", connID).Msg("Discarding malformed stream payload")
			continue
		}

		switch msg.Type {
		case models.StreamTypeAlert:
			if c.onMessage != nil {
				c.onMessage(msg.Incident)
			}
		case models.StreamTypeConnected, models.StreamTypePong, models.StreamTypeHeartbeat:
			// Recognized control frames, intentionally dropped.
		default:
			c.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown stream frame type")
		}
	}
}

// nextDelay increments the retry counter and returns the backoff for
// this attempt. The counter resets only on a successful open.
func (c *Client) nextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++

	return ReconnectDelay(c.attempts)
}

// wait sleeps for the backoff delay, returning false when the client
// was torn down in the meantime.
func (c *Client) wait(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	case <-c.clock.After(delay):
		return true
	}
}

func (c *Client) inactive(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) setState(state models.ConnectionState) {
	c.mu.Lock()

	if c.state == state {
		c.mu.Unlock()
		return
	}

	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(state)
	}
}
