package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/BumpyClock/digests-audio/playback"
)

// runPlain plays the source without the interactive player: it renders
// a text preview when one exists, then blocks until playback ends or a
// signal arrives.
func runPlain(cmd *cobra.Command, player playback.Source, content string) error {
	if content != "" {
		if err := printPreview(content); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	errCh := make(chan *playback.Error, 1)
	player.AddListener(playback.EventEnd, func(playback.Event) {
		finish()
	})
	player.AddListener(playback.EventError, func(ev playback.Event) {
		select {
		case errCh <- ev.Err:
		default:
		}
		if !ev.Err.Recoverable() {
			finish()
		}
	})

	ctx := context.Background()
	if err := player.Play(ctx, startOptions(cmd)); err != nil {
		return err
	}

	st := player.State()
	if !st.Playing {
		// Initialization or load failed; the error listener has the cause.
		select {
		case perr := <-errCh:
			return perr
		default:
		}
		return errors.New("playback did not start")
	}

	fmt.Fprintln(os.Stderr, nowPlayingLine(player.Metadata(), st))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-done:
	case <-sig:
		_ = player.Stop()
		return nil
	}

	select {
	case perr := <-errCh:
		if !perr.Recoverable() {
			return perr
		}
	default:
	}
	return nil
}

func printPreview(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(int(width)), //nolint:gosec
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	fmt.Print(out)
	return nil
}

func nowPlayingLine(meta playback.Metadata, st playback.State) string {
	name := meta.Title
	if name == "" {
		name = meta.Source
	}
	if st.Duration > 0 {
		return fmt.Sprintf("Playing %s (about %s)", name, humanizeDuration(st.Duration))
	}
	return fmt.Sprintf("Playing %s", name)
}

// humanizeDuration renders a rough listening length, like "4 minutes".
func humanizeDuration(d time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}
