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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

type fakeCreds struct {
	mu          sync.Mutex
	token       string
	invalidated bool
}

func (f *fakeCreds) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.token, nil
}

func (f *fakeCreds) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = true
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeCreds) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "tok-123"}

	return NewClient(srv.URL, creds, logger.NewTestLogger()), creds
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.HealthStatus{Status: "ok"})
	})

	_, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestHealth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.HealthStatus{Status: "ok", Service: "cybertwin"})
	})

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Up())
}

func TestListIncidents(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/incidents", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		_ = json.NewEncoder(w).Encode([]models.IncidentSummary{
			{ID: "inc-1", Severity: models.SeverityHigh, Title: "port scan"},
		})
	})

	incidents, err := client.ListIncidents(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "inc-1", incidents[0].ID)
}

func TestListActionsPassesFilter(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/actions", r.URL.Path)
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "5", r.URL.Query().Get("offset"))

		_ = json.NewEncoder(w).Encode(models.ActionListResponse{
			Total:   1,
			Actions: []models.Action{{ID: "act-1", Status: models.ActionPending}},
		})
	})

	resp, err := client.ListActions(context.Background(), models.ActionPending, 25, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Actions, 1)
	assert.True(t, resp.Actions[0].IsPending())
}

func TestListActionsNoFilterOmitsStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["status"]
		assert.False(t, present)

		_ = json.NewEncoder(w).Encode(models.ActionListResponse{})
	})

	_, err := client.ListActions(context.Background(), "", 0, 0)
	require.NoError(t, err)
}

func TestApproveAction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/actions/act-1/approve", r.URL.Path)

		var body models.ApproveActionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "checked scope", body.Notes)

		_ = json.NewEncoder(w).Encode(models.Action{ID: "act-1", Status: models.ActionApproved})
	})

	action, err := client.ApproveAction(context.Background(), "act-1", "checked scope")
	require.NoError(t, err)
	assert.Equal(t, models.ActionApproved, action.Status)
}

func TestRejectAction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/actions/act-1/reject", r.URL.Path)

		var body models.RejectActionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "too broad", body.Reason)

		_ = json.NewEncoder(w).Encode(models.Action{
			ID:           "act-1",
			Status:       models.ActionRejected,
			RejectReason: "too broad",
		})
	})

	action, err := client.RejectAction(context.Background(), "act-1", "too broad")
	require.NoError(t, err)
	assert.Equal(t, models.ActionRejected, action.Status)
}

func TestConflictSurfacesDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "action already reviewed"})
	})

	_, err := client.ApproveAction(context.Background(), "act-1", "")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "action already reviewed", se.Detail)
}

func TestUnauthorizedInvalidatesCredentials(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.False(t, IsConflict(err))

	creds.mu.Lock()
	defer creds.mu.Unlock()
	assert.True(t, creds.invalidated)
}

func TestChat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body models.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what happened?", body.Message)
		assert.Equal(t, "sess-1", body.SessionID)

		_ = json.NewEncoder(w).Encode(models.ChatResponse{
			Reply:     "SSH brute force from 10.0.0.5.",
			SessionID: "sess-1",
			MitreID:   "T1110",
		})
	})

	resp, err := client.Chat(context.Background(), models.ChatRequest{
		Message:   "what happened?",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", resp.SessionID)
	require.NotNil(t, resp.EnrichmentFields())
	assert.Equal(t, "T1110", resp.EnrichmentFields().MitreID)
}

func TestNonJSONErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Empty(t, se.Detail)
}
