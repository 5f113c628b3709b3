// Headless tailer for the live alert stream. Prints each alert as a
// JSON line; useful for debugging the backend without the full console.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cybertwin/console/pkg/auth"
	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
	"github.com/cybertwin/console/pkg/stream"
)

func main() {
	var (
		streamURL = flag.String("url", "ws://localhost:8000/ws/logs", "WebSocket alert stream URL")
		token     = flag.String("token", "", "Bearer token (falls back to CYBERTWIN_TOKEN or the env file)")
		envFile   = flag.String("env-file", "/etc/cybertwin/console.env", "Path to environment file with TOKEN=")
		quiet     = flag.Bool("quiet", false, "Suppress connection state messages")
	)
	flag.Parse()

	if *token == "" {
		*token = auth.TokenFromEnv(*envFile)
	}

	creds := auth.NewCredentials(*token)

	tapLogger, err := logger.NewComponentLogger("streamtap", &logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	client, err := stream.NewClient(&stream.Config{URL: *streamURL}, creds, nil, tapLogger)
	if err != nil {
		log.Fatalf("Failed to create stream client: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)

	var count int

	client.OnMessage(func(incident models.Incident) {
		count++

		if err := enc.Encode(incident); err != nil {
			log.Printf("Encode error: %v", err)
		}
	})

	client.OnStateChange(func(state models.ConnectionState) {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "stream: %s\n", state)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to start stream client: %v", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	<-interrupt

	client.Close()

	fmt.Fprintf(os.Stderr, "received %d alerts in %s\n", count, time.Since(start).Round(time.Second))
}
