package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		expected    string
		wantErr     bool
	}{
		{name: "mp3 extension", url: "https://example.com/show.mp3", expected: FormatMP3},
		{name: "wav extension", url: "https://example.com/clip.wav", expected: FormatWAV},
		{name: "wave extension", url: "https://example.com/clip.wave", expected: FormatWAV},
		{name: "extension wins over header", url: "https://example.com/a.mp3", contentType: "audio/wav", expected: FormatMP3},
		{name: "mpeg content type", url: "https://example.com/stream", contentType: "audio/mpeg", expected: FormatMP3},
		{name: "content type with params", url: "https://example.com/stream", contentType: "audio/wav; charset=binary", expected: FormatWAV},
		{name: "query string ignored", url: "https://example.com/a.mp3?token=abc", expected: FormatMP3},
		{name: "unknown", url: "https://example.com/a.ogg", contentType: "audio/ogg", wantErr: true},
		{name: "nothing to go on", url: "https://example.com/stream", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := DetectFormat(tt.url, tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat failed: %v", err)
			}
			if format != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, format)
			}
		})
	}
}

func TestFetchHTTP(t *testing.T) {
	body := []byte("pretend-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	data, format, err := f.Fetch(context.Background(), srv.URL+"/episode")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if format != FormatMP3 {
		t.Errorf("Expected mp3, got %s", format)
	}
	if string(data) != string(body) {
		t.Errorf("Expected body %q, got %q", body, data)
	}
}

func TestFetchHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty.mp3":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())

	if _, _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected an error for a 404 response")
	}
	if _, _, err := f.Fetch(context.Background(), srv.URL+"/empty.mp3"); err == nil {
		t.Error("Expected an error for an empty body")
	}
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, []byte("riff-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(nil)
	data, format, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if format != FormatWAV {
		t.Errorf("Expected wav, got %s", format)
	}
	if string(data) != "riff-bytes" {
		t.Errorf("Unexpected data %q", data)
	}

	if _, _, err := f.Fetch(context.Background(), filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if _, _, err := f.Fetch(context.Background(), filepath.Join(dir, "notes.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat for a text file, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	var headCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			headCalls++
		}
		switch r.URL.Path {
		case "/stream":
			w.Header().Set("Content-Type", "audio/mpeg")
		case "/missing":
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())

	// An extension answers without touching the network.
	format, err := f.Probe(context.Background(), srv.URL+"/episode.mp3")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if format != FormatMP3 || headCalls != 0 {
		t.Errorf("Expected mp3 from the extension alone, got %s after %d HEAD requests", format, headCalls)
	}

	// Without one, the Content-Type header decides.
	format, err = f.Probe(context.Background(), srv.URL+"/stream")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if format != FormatMP3 || headCalls != 1 {
		t.Errorf("Expected mp3 from the header, got %s after %d HEAD requests", format, headCalls)
	}

	// Transport failures are not format verdicts.
	if _, err := f.Probe(context.Background(), srv.URL+"/missing"); err == nil || errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected a non-format error for a failed probe, got %v", err)
	}

	// Local paths resolve from the extension.
	if _, err := f.Probe(context.Background(), "/tmp/notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat for a text file, got %v", err)
	}
	format, err = f.Probe(context.Background(), "/tmp/clip.wav")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if format != FormatWAV {
		t.Errorf("Expected wav, got %s", format)
	}
}

func TestFetchFileURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(nil)
	data, format, err := f.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if format != FormatMP3 || string(data) != "mp3" {
		t.Errorf("Unexpected result: %s %q", format, data)
	}
}
