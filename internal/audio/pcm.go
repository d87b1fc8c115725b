package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Format describes raw PCM audio. Speech engines emit signed 16-bit
// little-endian samples, usually mono at their model's native rate.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the byte count of one frame across channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * 2
}

// Validate checks pcm against the format.
func Validate(pcm []byte, f Format) error {
	if len(pcm) == 0 {
		return errors.New("empty PCM data")
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	if len(pcm)%f.BytesPerFrame() != 0 {
		return fmt.Errorf("PCM length %d is not aligned to %d-byte frames",
			len(pcm), f.BytesPerFrame())
	}
	return nil
}

// Duration returns the playback time of pcm in format f.
func Duration(pcm []byte, f Format) time.Duration {
	if f.SampleRate <= 0 || f.BytesPerFrame() <= 0 {
		return 0
	}
	frames := len(pcm) / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// ToDeviceFormat converts pcm from f to the shared device format:
// stereo s16le at SampleRate. Mono input is duplicated across channels
// and rate conversion uses linear interpolation, which is adequate for
// speech output.
func ToDeviceFormat(pcm []byte, f Format) ([]byte, error) {
	if err := Validate(pcm, f); err != nil {
		return nil, err
	}

	samples := decodeFrames(pcm, f)
	if f.SampleRate != SampleRate {
		samples = resampleLinear(samples, f.SampleRate, SampleRate)
	}

	out := make([]byte, 0, len(samples)*BytesPerFrame)
	var buf [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[0:2], uint16(s[0]))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(s[1]))
		out = append(out, buf[:]...)
	}
	return out, nil
}

// decodeFrames reads pcm into stereo sample pairs, widening mono input.
func decodeFrames(pcm []byte, f Format) [][2]int16 {
	frameBytes := f.BytesPerFrame()
	frames := len(pcm) / frameBytes
	out := make([][2]int16, frames)

	for i := 0; i < frames; i++ {
		off := i * frameBytes
		left := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
		right := left
		if f.Channels == 2 {
			right = int16(binary.LittleEndian.Uint16(pcm[off+2 : off+4]))
		}
		out[i] = [2]int16{left, right}
	}
	return out
}

// resampleLinear converts in from srcRate to dstRate frames.
func resampleLinear(in [][2]int16, srcRate, dstRate int) [][2]int16 {
	if len(in) == 0 || srcRate == dstRate {
		return in
	}

	ratio := float64(dstRate) / float64(srcRate)
	outFrames := int(float64(len(in)) * ratio)
	out := make([][2]int16, outFrames)

	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		for ch := 0; ch < 2; ch++ {
			a := float64(in[idx][ch])
			b := float64(in[idx+1][ch])
			out[i][ch] = int16(a*(1-frac) + b*frac)
		}
	}
	return out
}
