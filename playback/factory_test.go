package playback

import (
	"errors"
	"testing"
)

func TestNewBestSourcePrefersAudio(t *testing.T) {
	src, err := NewBestSource(SourceOptions{
		Metadata: Metadata{Title: "Episode 1"},
		AudioURL: "https://example.com/episode.mp3",
		Text:     "This text loses to the audio URL.",
	})
	if err != nil {
		t.Fatalf("NewBestSource failed: %v", err)
	}
	defer src.Dispose() //nolint:errcheck

	if src.Type() != TypeFile {
		t.Errorf("Expected file source, got %s", src.Type())
	}
	if _, ok := src.(*FileSource); !ok {
		t.Errorf("Expected *FileSource, got %T", src)
	}
}

func TestNewBestSourceFallsBackToSpeech(t *testing.T) {
	src, err := NewBestSource(SourceOptions{
		Metadata: Metadata{Title: "An Article"},
		Text:     "Something worth reading aloud.",
	})
	if err != nil {
		t.Fatalf("NewBestSource failed: %v", err)
	}
	defer src.Dispose() //nolint:errcheck

	if src.Type() != TypeSpeech {
		t.Errorf("Expected speech source, got %s", src.Type())
	}
	speechSrc, ok := src.(*SpeechSource)
	if !ok {
		t.Fatalf("Expected *SpeechSource, got %T", src)
	}
	if speechSrc.synth == nil {
		t.Error("Expected the factory to install a synthesizer")
	}
}

func TestNewBestSourceRejectsEmpty(t *testing.T) {
	tests := []struct {
		name string
		opts SourceOptions
	}{
		{name: "nothing at all", opts: SourceOptions{}},
		{name: "whitespace only", opts: SourceOptions{AudioURL: "  ", Text: "\n\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBestSource(tt.opts)
			if err == nil {
				t.Fatal("Expected an error for empty options")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if perr.Code != ErrorCodeInvalidInput {
				t.Errorf("Expected INVALID_INPUT, got %s", perr.Code)
			}
			if !errors.Is(err, ErrNoContent) {
				t.Error("Expected ErrNoContent in the chain")
			}
		})
	}
}

func TestNewBestSourceGeneratesID(t *testing.T) {
	a, err := NewBestSource(SourceOptions{Text: "First."})
	if err != nil {
		t.Fatalf("NewBestSource failed: %v", err)
	}
	defer a.Dispose() //nolint:errcheck
	b, err := NewBestSource(SourceOptions{Text: "Second."})
	if err != nil {
		t.Fatalf("NewBestSource failed: %v", err)
	}
	defer b.Dispose() //nolint:errcheck

	if a.ID() == "" || b.ID() == "" {
		t.Fatal("Expected generated IDs")
	}
	if a.ID() == b.ID() {
		t.Errorf("Expected unique IDs, both were %q", a.ID())
	}

	c, err := NewBestSource(SourceOptions{Metadata: Metadata{ID: "fixed"}, Text: "Third."})
	if err != nil {
		t.Fatalf("NewBestSource failed: %v", err)
	}
	defer c.Dispose() //nolint:errcheck
	if c.ID() != "fixed" {
		t.Errorf("Expected supplied ID to be kept, got %q", c.ID())
	}
}

func TestNewSynthesizerSelection(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Engine = "mock"
	if got := newSynthesizer(cfg).Name(); got != "mock" {
		t.Errorf("Expected mock engine, got %s", got)
	}

	cfg.Engine = "piper"
	if got := newSynthesizer(cfg).Name(); got != "piper" {
		t.Errorf("Expected piper engine, got %s", got)
	}

	cfg.Engine = "gtts"
	if got := newSynthesizer(cfg).Name(); got != "gtts" {
		t.Errorf("Expected gtts engine, got %s", got)
	}
}
