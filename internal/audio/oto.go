package audio

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

// otoContext is the production Context over an oto device.
type otoContext struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
}

func newOtoContext(sampleRate, channels int) (Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	return &otoContext{ctx: ctx, sampleRate: sampleRate, channels: channels}, nil
}

func (c *otoContext) NewPlayer(r io.Reader) (Player, error) {
	p := c.ctx.NewPlayer(r)
	if p == nil {
		return nil, fmt.Errorf("creating device player")
	}
	return &otoPlayer{p: p}, nil
}

func (c *otoContext) SampleRate() int   { return c.sampleRate }
func (c *otoContext) ChannelCount() int { return c.channels }

// Close is a no-op: oto v3 contexts cannot be closed, the device is
// held for the life of the process.
func (c *otoContext) Close() error { return nil }

type otoPlayer struct {
	p *oto.Player
}

func (p *otoPlayer) Play()                     { p.p.Play() }
func (p *otoPlayer) Pause()                    { p.p.Pause() }
func (p *otoPlayer) IsPlaying() bool           { return p.p.IsPlaying() }
func (p *otoPlayer) SetVolume(v float64)       { p.p.SetVolume(v) }
func (p *otoPlayer) UnplayedBufferSize() int64 { return int64(p.p.BufferedSize()) }

func (p *otoPlayer) Seek(offset int64, whence int) (int64, error) {
	return p.p.Seek(offset, whence)
}

func (p *otoPlayer) Close() error { return p.p.Close() }
