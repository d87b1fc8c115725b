package playback

import (
	"time"

	"github.com/BumpyClock/digests-audio/internal/audio"
)

// AudioSink plays one utterance of synthesized PCM at a time. The
// speech source drives it chunk by chunk; the returned channel closes
// when the utterance drains so the source can move to the next chunk.
type AudioSink interface {
	Play(pcm []byte, sampleRate, channels int) (<-chan struct{}, error)
	Pause()
	Resume()
	Stop()
	Position() time.Duration
	SetVolume(v float64)
	Close() error
}

// deviceSink adapts the device-level sink to the AudioSink contract.
type deviceSink struct {
	sink *audio.Sink
}

func newDeviceSink(ctx audio.Context) *deviceSink {
	return &deviceSink{sink: audio.NewSink(ctx)}
}

func (d *deviceSink) Play(pcm []byte, sampleRate, channels int) (<-chan struct{}, error) {
	return d.sink.Play(pcm, audio.Format{SampleRate: sampleRate, Channels: channels})
}

func (d *deviceSink) Pause()                  { d.sink.Pause() }
func (d *deviceSink) Resume()                 { d.sink.Resume() }
func (d *deviceSink) Stop()                   { d.sink.Stop() }
func (d *deviceSink) Position() time.Duration { return d.sink.Position() }
func (d *deviceSink) SetVolume(v float64)     { d.sink.SetVolume(v) }
func (d *deviceSink) Close() error            { return d.sink.Close() }
