package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures global logging. When DIGESTS_PLAY_LOGFILE is set,
// debug logs go to that file; otherwise logging is disabled so it never
// interferes with terminal output.
func setupLog() (func() error, error) {
	if file := os.Getenv("DIGESTS_PLAY_LOGFILE"); file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.Kitchen)
		return f.Close, nil
	}

	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}
