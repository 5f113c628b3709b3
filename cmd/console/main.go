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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cybertwin/console/pkg/api"
	"github.com/cybertwin/console/pkg/auth"
	"github.com/cybertwin/console/pkg/chat"
	"github.com/cybertwin/console/pkg/config"
	"github.com/cybertwin/console/pkg/console"
	"github.com/cybertwin/console/pkg/eventlog"
	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
	"github.com/cybertwin/console/pkg/stream"
	"github.com/cybertwin/console/pkg/workqueue"
)

var (
	errFailedToLoadConfig = fmt.Errorf("failed to load config")
	errServerURLRequired  = errors.New("server_url is required")
)

// Config is the console configuration file.
type Config struct {
	ServerURL        string           `json:"server_url"`           // e.g. http://localhost:8000
	StreamURL        string           `json:"stream_url,omitempty"` // derived from server_url when empty
	Username         string           `json:"username,omitempty"`
	Password         string           `json:"password,omitempty"`
	TokenFile        string           `json:"token_file,omitempty"`
	EventLogCapacity int              `json:"event_log_capacity,omitempty"`
	WorkQueue        workqueue.Config `json:"work_queue"`
	Logging          *logger.Config   `json:"logging,omitempty"`
}

// Validate fills derived defaults and checks required fields.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errServerURLRequired
	}

	if c.StreamURL == "" {
		derived, err := deriveStreamURL(c.ServerURL)
		if err != nil {
			return err
		}

		c.StreamURL = derived
	}

	return c.WorkQueue.Validate()
}

// deriveStreamURL maps http(s)://host to ws(s)://host/ws/logs.
func deriveStreamURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server_url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/logs"

	return u.String(), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/cybertwin/console.json", "Path to console config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgLoader := config.NewConfig(nil)

	var cfg Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		// The TUI owns stdout; keep log lines off the screen.
		logConfig = &logger.Config{Level: "info", Output: "stderr"}
	}

	consoleLogger, err := logger.NewComponentLogger("console", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Credential bootstrap: env token first, login fallback.
	creds := auth.NewCredentials(auth.TokenFromEnv(cfg.TokenFile))

	if _, err := creds.Token(); err != nil && cfg.Username != "" {
		if err := creds.Login(ctx, cfg.ServerURL, cfg.Username, cfg.Password); err != nil {
			return err
		}
	}

	client := api.NewClient(cfg.ServerURL, creds, consoleLogger)

	elog := eventlog.New(cfg.EventLogCapacity)
	queue := workqueue.NewStore()

	reconciler, err := workqueue.NewReconciler(queue, client, &cfg.WorkQueue, nil, consoleLogger)
	if err != nil {
		return err
	}

	session := chat.NewSession(client, consoleLogger)

	events := make(chan tea.Msg, 64)

	streamClient, err := stream.NewClient(&stream.Config{URL: cfg.StreamURL}, creds, nil, consoleLogger)
	if err != nil {
		return err
	}

	streamClient.OnMessage(func(incident models.Incident) {
		stats := elog.Append(incident)

		select {
		case events <- console.IncidentMsg{Stats: stats}:
		default: // never block the read loop on a stalled UI
		}
	})

	streamClient.OnStateChange(func(state models.ConnectionState) {
		select {
		case events <- console.ConnStateMsg{State: state}:
		default:
		}
	})

	// Backfill recent incidents before going live; oldest first keeps
	// the log newest-first.
	if summaries, err := client.ListIncidents(ctx, eventlog.DefaultCapacity); err != nil {
		consoleLogger.Warn().Err(err).Msg("Incident backfill failed")
	} else {
		for i := len(summaries) - 1; i >= 0; i-- {
			elog.Append(summaries[i].ToIncident())
		}
	}

	if err := streamClient.Connect(ctx); err != nil {
		return err
	}

	go func() {
		if err := reconciler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			consoleLogger.Error().Err(err).Msg("Reconciler stopped")
		}
	}()

	app := console.New(console.Deps{
		Log:        elog,
		Queue:      queue,
		Reconciler: reconciler,
		Session:    session,
		Health:     client,
		Events:     events,
		Logger:     consoleLogger,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())

	_, runErr := p.Run()

	// Teardown: stop the poll loop and close the stream before exit.
	cancel()
	streamClient.Close()
	reconciler.Stop()

	return runErr
}
