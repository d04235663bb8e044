package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog.Logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           lvl,
	})
	return slog.New(handler), nil
}
