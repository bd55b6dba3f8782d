package main

import (
	"log/slog"

	"github.com/carelink/signal-relay/internal/cli"
	"github.com/carelink/signal-relay/internal/logging"
)

func main() {
	// Errors only by default; the terminal UI owns stdout.
	logging.Init(slog.LevelError)
	cli.Execute()
}
