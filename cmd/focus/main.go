package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/study-assistant/internal/client"
	"github.com/kirillkom/study-assistant/internal/tui"
)

func main() {
	apiURL := flag.String("api", envOr("STUDY_API_URL", "http://localhost:5000"), "base URL of the study API")
	interval := flag.Duration("poll", time.Second, "status refresh interval")
	flag.Parse()

	model := tui.New(client.New(*apiURL, 5*time.Second), *interval)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "focus: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
