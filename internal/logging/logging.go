package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text handler as the default slog logger
func Setup(verbose bool) {
	SetupWriter(os.Stderr, verbose)
}

// SetupWriter is Setup with an explicit destination
func SetupWriter(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
