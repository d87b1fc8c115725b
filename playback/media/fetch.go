package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// maxFetchSize caps downloads; beyond this the content is almost
// certainly not a podcast episode.
const maxFetchSize = 512 << 20

// Fetcher downloads audio files over HTTP.
type Fetcher struct {
	client *http.Client
	logger *log.Logger
}

// NewFetcher creates a fetcher. client may be nil for defaults.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Fetcher{client: client, logger: log.WithPrefix("media.fetch")}
}

// Fetch reads rawURL fully and returns the body plus the detected
// format. Anything without an http(s) scheme is treated as a local
// file path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if u, err := url.Parse(rawURL); err != nil || u.Scheme != "http" && u.Scheme != "https" {
		p := rawURL
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return f.fetchFile(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("audio fetch returned %s", resp.Status)
	}

	format, err := DetectFormat(rawURL, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading audio body: %w", err)
	}
	if len(data) > maxFetchSize {
		return nil, "", fmt.Errorf("audio file exceeds %d bytes", maxFetchSize)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("audio body is empty")
	}

	f.logger.Debug("fetched",
		"url", rawURL,
		"format", format,
		"bytes", len(data),
		"elapsed", time.Since(start))

	return data, format, nil
}

// Probe checks the resource's format from its URL and response headers
// without downloading the body. Callers bound it with a short context;
// a probe failure other than ErrUnsupportedFormat just means the
// answer has to wait for the real fetch.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (string, error) {
	if u, err := url.Parse(rawURL); err != nil || u.Scheme != "http" && u.Scheme != "https" {
		p := rawURL
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return DetectFormat(p, "")
	}

	// The extension alone may settle it without touching the network.
	if format, err := DetectFormat(rawURL, ""); err == nil {
		return format, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building probe request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probing audio: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio probe returned %s", resp.Status)
	}
	return DetectFormat(rawURL, resp.Header.Get("Content-Type"))
}

// fetchFile reads a local audio file.
func (f *Fetcher) fetchFile(path string) ([]byte, string, error) {
	format, err := DetectFormat(path, "")
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading audio file: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("audio file is empty")
	}

	f.logger.Debug("read local file", "path", path, "format", format, "bytes", len(data))
	return data, format, nil
}

// DetectFormat resolves the container format from the URL extension,
// falling back to the Content-Type header.
func DetectFormat(rawURL, contentType string) (string, error) {
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".mp3":
			return FormatMP3, nil
		case ".wav", ".wave":
			return FormatWAV, nil
		}
	}

	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mt {
			case "audio/mpeg", "audio/mp3":
				return FormatMP3, nil
			case "audio/wav", "audio/x-wav", "audio/wave":
				return FormatWAV, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, rawURL, contentType)
}
