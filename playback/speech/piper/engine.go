// Package piper synthesizes speech by invoking the piper binary, one
// process per request, reading raw PCM from its stdout.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BumpyClock/digests-audio/playback/speech"
)

// Config holds piper engine settings.
type Config struct {
	// Binary is the piper executable name or path.
	Binary string

	// Model is the default voice model name, e.g. "en_US-lessac-medium".
	Model string

	// ModelPath overrides model resolution with an explicit .onnx path.
	ModelPath string

	// ConfigPath is the model's JSON config; defaults to ModelPath+".json".
	ConfigPath string

	// DataDir is scanned for installed voice models.
	DataDir string

	// SampleRate of the model output PCM.
	SampleRate int

	// Timeout bounds one synthesis run. On expiry the process gets
	// SIGINT, then SIGKILL after a grace period.
	Timeout time.Duration
}

// Engine runs piper as a subprocess.
type Engine struct {
	cfg    Config
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a piper engine. It does not probe the binary; call
// Available for that.
func New(cfg Config) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Engine{cfg: cfg, logger: log.WithPrefix("speech.piper")}
}

func (e *Engine) Name() string { return "piper" }

// Available reports whether the piper binary and a voice model can be
// found.
func (e *Engine) Available(ctx context.Context) bool {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return false
	}

	if _, err := exec.LookPath(e.cfg.Binary); err != nil {
		e.logger.Debug("piper binary not found", "binary", e.cfg.Binary)
		return false
	}
	if _, err := e.resolveModel(e.cfg.Model); err != nil {
		e.logger.Debug("piper model not found", "model", e.cfg.Model, "err", err)
		return false
	}
	return true
}

// Voices lists installed models in DataDir as local voices.
func (e *Engine) Voices(ctx context.Context) ([]speech.Voice, error) {
	if e.cfg.DataDir == "" {
		if e.cfg.Model == "" {
			return nil, speech.ErrNoVoices
		}
		return []speech.Voice{modelVoice(e.cfg.Model)}, nil
	}

	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("reading model dir: %w", err)
	}

	var voices []speech.Voice
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		voices = append(voices, modelVoice(strings.TrimSuffix(name, ".onnx")))
	}
	if len(voices) == 0 {
		return nil, speech.ErrNoVoices
	}
	return voices, nil
}

// modelVoice derives voice metadata from a piper model name. Names
// follow the lang_REGION-speaker-quality convention.
func modelVoice(model string) speech.Voice {
	lang := "en"
	if idx := strings.IndexByte(model, '-'); idx > 0 {
		lang = strings.ReplaceAll(model[:idx], "_", "-")
	}
	return speech.Voice{
		ID:       model,
		Name:     model,
		Language: lang,
		Local:    true,
	}
}

// Synthesize runs one piper process for req and returns its raw PCM
// output.
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

	model := req.Voice.ID
	if model == "" {
		model = e.cfg.Model
	}
	modelPath, err := e.resolveModel(model)
	if err != nil {
		return speech.Audio{}, err
	}

	args := []string{"--model", modelPath, "--output-raw"}
	if cfgPath := e.configPath(modelPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if req.Rate > 0 && req.Rate != 1.0 {
		// piper's length scale is the inverse of speaking rate.
		args = append(args, "--length-scale", fmt.Sprintf("%.3f", 1.0/req.Rate))
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Interrupt first so piper can flush, then kill after the grace
	// period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
	cmd.WaitDelay = 500 * time.Millisecond

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return speech.Audio{}, fmt.Errorf("piper timed out after %v", e.cfg.Timeout)
		}
		e.logger.Debug("piper failed", "err", err, "stderr", stderr.String())
		return speech.Audio{}, fmt.Errorf("piper: %w", err)
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return speech.Audio{}, fmt.Errorf("piper produced no audio")
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	e.logger.Debug("synthesized",
		"model", model,
		"chars", len(text),
		"bytes", len(pcm),
		"elapsed", time.Since(start))

	return speech.Audio{
		PCM:        pcm,
		SampleRate: e.cfg.SampleRate,
		Channels:   1,
	}, nil
}

// resolveModel finds the .onnx file for a model name.
func (e *Engine) resolveModel(model string) (string, error) {
	if e.cfg.ModelPath != "" {
		if _, err := os.Stat(e.cfg.ModelPath); err != nil {
			return "", fmt.Errorf("model path: %w", err)
		}
		return e.cfg.ModelPath, nil
	}
	if model == "" {
		return "", fmt.Errorf("no model configured")
	}

	candidates := []string{model, model + ".onnx"}
	if e.cfg.DataDir != "" {
		candidates = append(candidates,
			filepath.Join(e.cfg.DataDir, model+".onnx"),
			filepath.Join(e.cfg.DataDir, model))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("model %q not found", model)
}

func (e *Engine) configPath(modelPath string) string {
	if e.cfg.ConfigPath != "" {
		return e.cfg.ConfigPath
	}
	p := modelPath + ".json"
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
