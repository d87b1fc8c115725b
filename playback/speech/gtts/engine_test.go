package gtts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/BumpyClock/digests-audio/playback/speech"
)

func TestNewDefaults(t *testing.T) {
	e := New(Config{})

	if e.cfg.Language != "en" {
		t.Errorf("Expected default language en, got %s", e.cfg.Language)
	}
	if e.cfg.Timeout != 10*time.Second {
		t.Errorf("Expected default timeout 10s, got %v", e.cfg.Timeout)
	}
	if e.Name() != "gtts" {
		t.Errorf("Expected name gtts, got %s", e.Name())
	}
	if !e.Available(context.Background()) {
		t.Error("Expected a fresh engine to be available")
	}
}

func TestVoicesAreRemote(t *testing.T) {
	e := New(Config{Language: "de"})
	voices, err := e.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("Expected 1 voice, got %d", len(voices))
	}
	if voices[0].Local {
		t.Error("Expected a remote voice")
	}
	if voices[0].Language != "de" {
		t.Errorf("Expected language de, got %s", voices[0].Language)
	}
}

func TestSynthesizeAfterClose(t *testing.T) {
	e := New(Config{})
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if e.Available(context.Background()) {
		t.Error("Expected unavailable after close")
	}
	if _, err := e.Synthesize(context.Background(), speech.Request{Text: "hi"}); !errors.Is(err, speech.ErrEngineUnavailable) {
		t.Errorf("Expected ErrEngineUnavailable, got %v", err)
	}
}

func TestTruncateText(t *testing.T) {
	short := "hello world"
	if got := truncateText(short); got != short {
		t.Errorf("Expected short text unchanged, got %q", got)
	}

	// A long run of multibyte runes must never be cut mid-rune.
	long := strings.Repeat("ü", 150)
	got := truncateText(long)
	if len(got) > 200 {
		t.Errorf("Expected at most 200 bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Expected valid UTF-8 after truncation")
	}

	// With spaces available the cut lands on a word boundary.
	words := strings.TrimSpace(strings.Repeat("zwölf ", 50))
	got = truncateText(words)
	if len(got) > 200 {
		t.Errorf("Expected at most 200 bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Expected valid UTF-8 after truncation")
	}
	if strings.HasSuffix(got, " ") || !strings.HasSuffix(got, "zwölf") {
		t.Errorf("Expected a whole trailing word, got %q", got[len(got)-12:])
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	e := New(Config{})
	if _, err := e.Synthesize(context.Background(), speech.Request{Text: "   "}); err == nil {
		t.Error("Expected an error for empty text")
	}
}
