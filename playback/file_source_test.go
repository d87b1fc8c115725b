package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BumpyClock/digests-audio/internal/lifecycle"
	"github.com/BumpyClock/digests-audio/playback/media"
)

// stubFetcher lets tests swap fetch results between calls.
type stubFetcher struct {
	mu       sync.Mutex
	data     []byte
	format   string
	err      error
	probeErr error
	delay    time.Duration
}

func (f *stubFetcher) fetch(ctx context.Context, _ string) ([]byte, string, error) {
	f.mu.Lock()
	data, format, err, delay := f.data, f.format, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func (f *stubFetcher) probe(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format, f.probeErr
}

func (f *stubFetcher) set(data []byte, format string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.format, f.err = data, format, err
}

func newTestFileSource(t *testing.T, duration time.Duration) (*FileSource, *media.MockBackend, *stubFetcher) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ProgressInterval = 10 * time.Millisecond

	src, err := NewFileSource(Metadata{ID: "test-file", Title: "Episode"}, "https://example.com/episode.mp3", cfg)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}

	backend := media.NewMockBackend(duration)
	fetcher := &stubFetcher{data: []byte("mp3-bytes"), format: media.FormatMP3}
	src.backend = backend
	src.fetch = fetcher.fetch
	src.probe = fetcher.probe
	src.monitor = lifecycle.NewMonitor()

	t.Cleanup(func() { _ = src.Dispose() })
	return src, backend, fetcher
}

func currentTrack(t *testing.T, backend *media.MockBackend) *media.MockTrack {
	t.Helper()
	tracks := backend.Tracks()
	if len(tracks) == 0 {
		t.Fatal("no track was opened")
	}
	return tracks[len(tracks)-1]
}

func TestFileSourceRejectsEmptyURL(t *testing.T) {
	_, err := NewFileSource(Metadata{}, "", DefaultConfig())
	var perr *Error
	if !errors.As(err, &perr) || perr.Code != ErrorCodeInvalidInput {
		t.Fatalf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestFileSourceLoad(t *testing.T) {
	src, _, _ := newTestFileSource(t, 3*time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	if !src.Initialize(ctx) {
		t.Fatal("Initialize failed")
	}
	if err := src.Load(ctx, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := src.State().Duration; got != 3*time.Minute {
		t.Errorf("Expected duration 3m0s, got %v", got)
	}
	if rec.count(EventLoading) != 1 || rec.count(EventLoaded) != 1 {
		t.Error("Expected one loading and one loaded event")
	}

	if err := src.Load(ctx, nil); err != nil {
		t.Fatalf("Second load failed: %v", err)
	}
	if rec.count(EventLoaded) != 1 {
		t.Error("Expected second Load to be a no-op")
	}
}

func TestFileSourceFetchFailure(t *testing.T) {
	src, _, fetcher := newTestFileSource(t, 3*time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	fetcher.set(nil, "", errors.New("connection refused"))

	if !src.Initialize(ctx) {
		t.Fatal("Initialize failed")
	}
	if err := src.Load(ctx, nil); err != nil {
		t.Fatalf("Load should swallow the fetch failure, got %v", err)
	}

	ev, ok := rec.last(EventError)
	if !ok || ev.Err.Code != ErrorCodeNetwork {
		t.Fatalf("Expected NETWORK_ERROR event, got %+v", ev)
	}
	if !ev.Err.Recoverable() {
		t.Error("Expected NETWORK_ERROR to be recoverable")
	}

	// A later Play retries the load once the network is back.
	fetcher.set([]byte("mp3-bytes"), media.FormatMP3, nil)
	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !src.State().Playing {
		t.Error("Expected playback after the retry")
	}
}

func TestFileSourceDecodeFailure(t *testing.T) {
	src, backend, fetcher := newTestFileSource(t, time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	fetcher.set([]byte("junk"), media.FormatMP3, nil)
	backend.OpenErr = errors.New("bad stream")

	if !src.Initialize(ctx) {
		t.Fatal("Initialize failed")
	}
	if err := src.Load(ctx, nil); err != nil {
		t.Fatalf("Load should swallow the decode failure, got %v", err)
	}

	ev, ok := rec.last(EventError)
	if !ok || ev.Err.Code != ErrorCodeDecode {
		t.Fatalf("Expected DECODE_ERROR event, got %+v", ev)
	}
	if ev.Err.Recoverable() {
		t.Error("Expected DECODE_ERROR to be fatal")
	}
}

func TestFileSourceUnsupportedFormatIsFatal(t *testing.T) {
	tests := []struct {
		name string
		set  func(f *stubFetcher)
	}{
		{
			name: "probe rejects the format",
			set: func(f *stubFetcher) {
				f.probeErr = fmt.Errorf("%w: episode.xyz", media.ErrUnsupportedFormat)
			},
		},
		{
			name: "fetch rejects the format",
			set: func(f *stubFetcher) {
				f.err = fmt.Errorf("%w: episode.xyz", media.ErrUnsupportedFormat)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _, fetcher := newTestFileSource(t, time.Minute)
			rec := recordEvents(src)
			ctx := context.Background()

			tt.set(fetcher)

			if !src.Initialize(ctx) {
				t.Fatal("Initialize failed")
			}
			if err := src.Load(ctx, nil); err != nil {
				t.Fatalf("Load should swallow the format failure, got %v", err)
			}

			ev, ok := rec.last(EventError)
			if !ok || ev.Err.Code != ErrorCodeFormat {
				t.Fatalf("Expected FORMAT_ERROR event, got %+v", ev)
			}
			if ev.Err.Recoverable() {
				t.Error("Expected FORMAT_ERROR to be fatal")
			}
		})
	}
}

func TestFileSourceSlowFetchStillLoads(t *testing.T) {
	src, _, fetcher := newTestFileSource(t, 3*time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	// The metadata bound applies to the header probe only; a transfer
	// slower than it must still complete.
	src.cfg.MetadataTimeout = 20 * time.Millisecond
	fetcher.delay = 60 * time.Millisecond

	if !src.Initialize(ctx) {
		t.Fatal("Initialize failed")
	}
	if err := src.Load(ctx, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if n := rec.count(EventError); n != 0 {
		ev, _ := rec.last(EventError)
		t.Fatalf("Expected no error events, got %d (last: %+v)", n, ev)
	}
	if rec.count(EventLoaded) != 1 {
		t.Error("Expected a loaded event")
	}
	if got := src.State().Duration; got != 3*time.Minute {
		t.Errorf("Expected duration 3m0s, got %v", got)
	}
}

func TestFilePlayDeviceBusy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProgressInterval = 10 * time.Millisecond

	src, err := NewFileSource(Metadata{ID: "busy-device"}, "https://example.com/episode.mp3", cfg)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	fetcher := &stubFetcher{data: []byte("mp3-bytes"), format: media.FormatMP3}
	src.fetch = fetcher.fetch
	src.probe = fetcher.probe
	src.monitor = lifecycle.NewMonitor()
	src.openBackend = func() (media.Backend, error) {
		return nil, errors.New("device is busy")
	}
	t.Cleanup(func() { _ = src.Dispose() })
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play should not return the device failure, got %v", err)
	}

	ev, ok := rec.last(EventError)
	if !ok || ev.Err.Code != ErrorCodeUserInteractionRequired {
		t.Fatalf("Expected USER_INTERACTION_REQUIRED event, got %+v", ev)
	}
	if !ev.Err.Recoverable() {
		t.Error("Expected USER_INTERACTION_REQUIRED to be recoverable")
	}
	if src.State().Playing {
		t.Fatal("Expected playback not to start")
	}

	// Once the device frees up the same source plays.
	backend := media.NewMockBackend(time.Minute)
	src.openBackend = func() (media.Backend, error) { return backend, nil }
	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Retry Play failed: %v", err)
	}
	if !src.State().Playing {
		t.Error("Expected playback after the device retry")
	}
}

func TestFilePlayPauseResume(t *testing.T) {
	src, backend, _ := newTestFileSource(t, 3*time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	st := src.State()
	requireTriState(t, st)
	if !st.Playing {
		t.Fatal("Expected playing state after Play")
	}
	track := currentTrack(t, backend)
	if !track.Playing() {
		t.Error("Expected the track to be playing")
	}

	track.Advance(30 * time.Second)
	if err := src.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	st = src.State()
	requireTriState(t, st)
	if !st.Paused {
		t.Fatal("Expected paused state after Pause")
	}
	if st.CurrentTime != 30*time.Second {
		t.Errorf("Expected paused position 30s, got %v", st.CurrentTime)
	}
	if track.Playing() {
		t.Error("Expected the track to be paused")
	}

	if err := src.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	st = src.State()
	requireTriState(t, st)
	if !st.Playing {
		t.Fatal("Expected playing state after Resume")
	}

	if rec.count(EventPlay) != 1 || rec.count(EventPause) != 1 || rec.count(EventResume) != 1 {
		t.Errorf("Unexpected event counts: play=%d pause=%d resume=%d",
			rec.count(EventPlay), rec.count(EventPause), rec.count(EventResume))
	}
}

func TestFilePlayWithStartTime(t *testing.T) {
	src, backend, _ := newTestFileSource(t, 3*time.Minute)
	ctx := context.Background()

	if err := src.Play(ctx, &PlayOptions{StartTime: 30 * time.Second}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if got := src.State().CurrentTime; got != 30*time.Second {
		t.Errorf("Expected start at 30s, got %v", got)
	}
	if got := currentTrack(t, backend).Position(); got != 30*time.Second {
		t.Errorf("Expected track position 30s, got %v", got)
	}
}

func TestFileSeek(t *testing.T) {
	src, backend, _ := newTestFileSource(t, 180*time.Second)
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	track := currentTrack(t, backend)

	tests := []struct {
		name     string
		seek     time.Duration
		expected time.Duration
		progress float64
	}{
		{name: "halfway", seek: 90 * time.Second, expected: 90 * time.Second, progress: 0.5},
		{name: "past end clamps", seek: 300 * time.Second, expected: 180 * time.Second, progress: 1.0},
		{name: "negative clamps", seek: -10 * time.Second, expected: 0, progress: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := src.Seek(tt.seek); err != nil {
				t.Fatalf("Seek failed: %v", err)
			}
			if got := src.State().CurrentTime; got != tt.expected {
				t.Errorf("Expected position %v, got %v", tt.expected, got)
			}
			if got := track.Position(); got != tt.expected {
				t.Errorf("Expected track position %v, got %v", tt.expected, got)
			}
			ev, ok := rec.last(EventProgress)
			if !ok {
				t.Fatal("Expected a progress event after Seek")
			}
			if ev.Progress != tt.progress {
				t.Errorf("Expected progress %v, got %v", tt.progress, ev.Progress)
			}
		})
	}
}

func TestFileNaturalEnd(t *testing.T) {
	src, backend, _ := newTestFileSource(t, time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	track := currentTrack(t, backend)
	track.Finish()

	waitFor(t, func() bool { return rec.count(EventEnd) >= 1 }, "end event")
	st := src.State()
	requireTriState(t, st)
	if !st.Stopped {
		t.Error("Expected stopped state after natural end")
	}
	if st.CurrentTime != st.Duration {
		t.Errorf("Expected final position %v, got %v", st.Duration, st.CurrentTime)
	}
	if st.Progress != 1.0 {
		t.Errorf("Expected progress 1.0, got %f", st.Progress)
	}

	// Rewinding re-arms completion so the file can be replayed.
	if err := src.Seek(0); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if !src.State().Playing {
		t.Fatal("Expected replay to start")
	}
	track.Finish()
	waitFor(t, func() bool { return rec.count(EventEnd) >= 2 }, "second end event")
}

func TestFileStopRewinds(t *testing.T) {
	src, backend, _ := newTestFileSource(t, time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	track := currentTrack(t, backend)
	track.Advance(10 * time.Second)

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	st := src.State()
	requireTriState(t, st)
	if !st.Stopped {
		t.Fatal("Expected stopped state")
	}
	if st.CurrentTime != 0 {
		t.Errorf("Expected rewound position, got %v", st.CurrentTime)
	}
	if got := track.Position(); got != 0 {
		t.Errorf("Expected track rewound, got %v", got)
	}

	// Stopping again does not emit another event.
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if n := rec.count(EventStop); n != 1 {
		t.Errorf("Expected one stop event, got %d", n)
	}
}

func TestFileVolumeAndRate(t *testing.T) {
	src, backend, _ := newTestFileSource(t, time.Minute)
	rec := recordEvents(src)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	track := currentTrack(t, backend)

	if err := src.SetVolume(2.0); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if got := src.State().Volume; got != 1.0 {
		t.Errorf("Expected volume clamped to 1.0, got %f", got)
	}
	if got := track.Volume(); got != 1.0 {
		t.Errorf("Expected track volume 1.0, got %f", got)
	}

	if err := src.SetRate(1.5); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if got := track.Rate(); got != 1.5 {
		t.Errorf("Expected track rate 1.5, got %f", got)
	}
	if rec.count(EventRateChange) != 1 || rec.count(EventVolumeChange) != 1 {
		t.Error("Expected rate and volume change events")
	}

	err := src.SetRate(-1)
	var perr *Error
	if !errors.As(err, &perr) || perr.Code != ErrorCodeInvalidInput {
		t.Fatalf("Expected INVALID_INPUT for negative rate, got %v", err)
	}
}

func TestFileLifecycleIntegration(t *testing.T) {
	src, _, _ := newTestFileSource(t, time.Minute)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	src.monitor.Report(lifecycle.StateHidden)
	if !src.State().Paused {
		t.Error("Expected hidden host to pause playback")
	}

	src.monitor.Report(lifecycle.StateUnloading)
	if err := src.Play(ctx, nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed after unloading, got %v", err)
	}
}

func TestFileDisposeIsTerminal(t *testing.T) {
	src, backend, _ := newTestFileSource(t, time.Minute)
	ctx := context.Background()

	if err := src.Play(ctx, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	track := currentTrack(t, backend)

	if err := src.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := src.Dispose(); err != nil {
		t.Fatalf("Second Dispose should be a no-op, got %v", err)
	}

	if err := src.Pause(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from Pause, got %v", err)
	}
	if err := src.Seek(time.Second); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from Seek, got %v", err)
	}
	if err := track.Seek(0); err == nil {
		t.Error("Expected the track to be closed")
	}
}
