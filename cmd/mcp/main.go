package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/study-assistant/internal/client"
	"github.com/kirillkom/study-assistant/internal/observability/logging"
)

func main() {
	apiURL := flag.String("api", envOr("STUDY_API_URL", "http://localhost:5000"), "base URL of the study API")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.New(os.Stderr, "mcp", envOr("LOG_LEVEL", "info"), "json")

	srv := newServer(client.New(*apiURL, 10*time.Second), logger)
	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
