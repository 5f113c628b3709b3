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

package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(frames ...[]byte) *fakeConn {
	ch := make(chan []byte, len(frames))
	for _, f := range frames {
		ch <- f
	}

	close(ch)

	return &fakeConn{frames: ch, closed: make(chan struct{})}
}

// newOpenConn returns a connection that stays readable until Close.
func newOpenConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case p, ok := <-c.frames:
		if !ok {
			return 0, nil, errConnClosed
		}

		return websocket.TextMessage, p, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(int, []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type dialResult struct {
	conn Conn
	err  error
}

type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	headers []http.Header
}

// DialContext pops the next scripted result; once exhausted it blocks
// until the context is torn down.
func (d *fakeDialer) DialContext(ctx context.Context, _ string, header http.Header) (Conn, error) {
	d.mu.Lock()
	d.headers = append(d.headers, header)

	if len(d.results) > 0 {
		r := d.results[0]
		d.results = d.results[1:]
		d.mu.Unlock()

		return r.conn, r.err
	}

	d.mu.Unlock()

	<-ctx.Done()

	return nil, ctx.Err()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.headers)
}

// instantClock fires every backoff immediately and records the delays
// it was asked for.
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) Now() time.Time { return time.Now() }

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Now()

	return ch
}

func (c *instantClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)

	return out
}

type staticToken string

func (s staticToken) Token() (string, error) {
	if s == "" {
		return "", errors.New("no token")
	}

	return string(s), nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []models.ConnectionState
}

func (r *stateRecorder) record(s models.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) snapshot() []models.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ConnectionState, len(r.states))
	copy(out, r.states)

	return out
}

func newTestClient(t *testing.T, dialer Dialer, clock Clock, creds TokenProvider) *Client {
	t.Helper()

	c, err := NewClient(&Config{URL: "ws://localhost:8000/ws/logs"}, creds, clock, logger.NewTestLogger())
	require.NoError(t, err)

	c.dialer = dialer

	return c
}

func TestConfigValidate(t *testing.T) {
	err := (&Config{}).Validate()
	require.Error(t, err)

	require.NoError(t, (&Config{URL: "ws://x/ws/logs"}).Validate())
}

func TestOnlyAlertFramesReachHandler(t *testing.T) {
	conn := newFakeConn(
		[]byte(`{"type":"connected","message":"ready","clients":1}`),
		[]byte(`{"type":"alert","id":"inc-1","severity":"CRITICAL","title":"port scan"}`),
		[]byte(`{not json`),
		[]byte(`{"type":"heartbeat"}`),
		[]byte(`{"type":"mystery"}`),
	)

	dialer := &fakeDialer{results: []dialResult{{conn: conn}}}
	clock := &instantClock{}
	client := newTestClient(t, dialer, clock, nil)

	var (
		mu        sync.Mutex
		incidents []models.Incident
	)

	client.OnMessage(func(inc models.Incident) {
		mu.Lock()
		defer mu.Unlock()
		incidents = append(incidents, inc)
	})

	rec := &stateRecorder{}
	client.OnStateChange(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.Connect(ctx))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(incidents) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "inc-1", incidents[0].ID)
	assert.Equal(t, models.SeverityCritical, incidents[0].Severity)
	mu.Unlock()

	// After the scripted frames drain, the client must cycle back to
	// connecting on its own.
	require.Eventually(t, func() bool {
		states := rec.snapshot()
		return len(states) >= 4
	}, time.Second, 5*time.Millisecond)

	states := rec.snapshot()
	assert.Equal(t, []models.ConnectionState{
		models.StateConnecting,
		models.StateConnected,
		models.StateDisconnected,
		models.StateConnecting,
	}, states[:4])

	cancel()
	client.Close()
}

func TestBackoffEscalatesAndClamps(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := &fakeDialer{results: []dialResult{
		{err: dialErr}, {err: dialErr}, {err: dialErr},
		{err: dialErr}, {err: dialErr}, {err: dialErr},
	}}
	clock := &instantClock{}
	client := newTestClient(t, dialer, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.Connect(ctx))

	require.Eventually(t, func() bool {
		return len(clock.recorded()) == 6
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		15 * time.Second,
		15 * time.Second,
	}, clock.recorded())

	cancel()
	client.Close()
}

func TestRetryCounterResetsOnSuccessfulOpen(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := &fakeDialer{results: []dialResult{
		{err: dialErr},
		{err: dialErr},
		{conn: newFakeConn()}, // opens, then drains immediately
		{err: dialErr},
	}}
	clock := &instantClock{}
	client := newTestClient(t, dialer, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.Connect(ctx))

	require.Eventually(t, func() bool {
		return len(clock.recorded()) == 4
	}, time.Second, 5*time.Millisecond)

	// The successful open resets the counter, so the schedule restarts
	// from the bottom.
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		1 * time.Second,
		2 * time.Second,
	}, clock.recorded())

	cancel()
	client.Close()
}

func TestCloseIsTerminal(t *testing.T) {
	conn := newOpenConn()
	dialer := &fakeDialer{results: []dialResult{{conn: conn}}}
	client := newTestClient(t, dialer, &instantClock{}, nil)

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return client.State() == models.StateConnected
	}, time.Second, 5*time.Millisecond)

	client.Close()

	assert.Equal(t, models.StateDisconnected, client.State())
	assert.Equal(t, 1, dialer.dialCount())

	// Idempotent.
	client.Close()
}

func TestConnectTwiceFails(t *testing.T) {
	dialer := &fakeDialer{}
	client := newTestClient(t, dialer, &instantClock{}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, client.Connect(ctx))
	require.ErrorIs(t, client.Connect(ctx), errAlreadyStarted)

	cancel()
	client.Close()
}

func TestDialCarriesBearerToken(t *testing.T) {
	conn := newOpenConn()
	dialer := &fakeDialer{results: []dialResult{{conn: conn}}}
	client := newTestClient(t, dialer, &instantClock{}, staticToken("tok-123"))

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return client.State() == models.StateConnected
	}, time.Second, 5*time.Millisecond)

	dialer.mu.Lock()
	header := dialer.headers[0]
	dialer.mu.Unlock()

	assert.Equal(t, "Bearer tok-123", header.Get("Authorization"))

	client.Close()
}
