// Package gtts synthesizes speech through the Google Translate TTS
// endpoint. It needs no API key but is rate limited to stay below the
// endpoint's abuse thresholds.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	mp3lib "github.com/hajimehoshi/go-mp3"
	"golang.org/x/time/rate"

	"github.com/BumpyClock/digests-audio/playback/speech"
)

const (
	endpoint = "https://translate.google.com/translate_tts"

	// The endpoint rejects long inputs; sentence chunks stay well under
	// this.
	maxTextLen = 200
)

// Config holds network engine settings.
type Config struct {
	// Language is the synthesis language code, e.g. "en".
	Language string

	// Timeout bounds one HTTP request.
	Timeout time.Duration

	// RequestsPer spaces requests: one token per this interval.
	RequestsPer time.Duration

	// Burst is the rate limiter burst size.
	Burst int

	// Client overrides the HTTP client. Testing hook.
	Client *http.Client
}

// Engine synthesizes over the network.
type Engine struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a network synthesis engine.
func New(cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPer <= 0 {
		cfg.RequestsPer = time.Second
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestsPer), cfg.Burst),
		logger:  log.WithPrefix("speech.gtts"),
	}
}

func (e *Engine) Name() string { return "gtts" }

// Available reports whether the engine accepts requests. Network
// reachability is only discovered on synthesis.
func (e *Engine) Available(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// Voices returns the single network voice for the configured language.
func (e *Engine) Voices(ctx context.Context) ([]speech.Voice, error) {
	return []speech.Voice{{
		ID:       "gtts-" + e.cfg.Language,
		Name:     "Google Translate (" + e.cfg.Language + ")",
		Language: e.cfg.Language,
		Local:    false,
	}}, nil
}

// Synthesize fetches MP3 audio for req and decodes it to PCM.
func (e *Engine) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return speech.Audio{}, speech.ErrEngineUnavailable
	}
	e.mu.Unlock()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return speech.Audio{}, fmt.Errorf("empty synthesis text")
	}
	text = truncateText(text)

	if err := e.limiter.Wait(ctx); err != nil {
		return speech.Audio{}, fmt.Errorf("rate limit wait: %w", err)
	}

	mp3Data, err := e.fetch(ctx, text)
	if err != nil {
		return speech.Audio{}, err
	}

	return decodeMP3(mp3Data)
}

// truncateText caps text at maxTextLen bytes without splitting a rune,
// preferring to cut at the last word boundary under the cap.
func truncateText(text string) string {
	if len(text) <= maxTextLen {
		return text
	}
	cut := maxTextLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if idx := strings.LastIndexByte(text[:cut], ' '); idx > 0 {
		cut = idx
	}
	return strings.TrimSpace(text[:cut])
}

func (e *Engine) fetch(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", e.cfg.Language)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching speech audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech endpoint returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}

	e.logger.Debug("fetched", "chars", len(text), "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

// decodeMP3 decodes the response into s16le PCM. go-mp3 always emits
// stereo.
func decodeMP3(data []byte) (speech.Audio, error) {
	dec, err := mp3lib.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("decoding speech audio: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("reading decoded audio: %w", err)
	}
	if len(pcm) == 0 {
		return speech.Audio{}, fmt.Errorf("decoded audio is empty")
	}

	return speech.Audio{
		PCM:        pcm,
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
