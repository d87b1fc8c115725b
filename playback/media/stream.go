package media

import (
	"io"
	"sync"

	"github.com/gopxl/beep/v2"
)

// streamReader adapts a beep streamer chain to the io.Reader the
// output device consumes, converting float64 samples to s16le frames.
// It records when the chain is exhausted so the track can detect
// natural completion after the device buffer drains.
type streamReader struct {
	mu       sync.Mutex
	streamer beep.Streamer
	buf      [512][2]float64
	pending  []byte
	eof      bool
}

func newStreamReader(s beep.Streamer) *streamReader {
	return &streamReader{streamer: s}
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for total < len(p) {
		if len(r.pending) > 0 {
			n := copy(p[total:], r.pending)
			r.pending = r.pending[n:]
			total += n
			continue
		}
		if r.eof {
			break
		}

		want := (len(p) - total) / 4
		if want > len(r.buf) {
			want = len(r.buf)
		}
		if want == 0 {
			want = 1
		}

		n, ok := r.streamer.Stream(r.buf[:want])
		if n > 0 {
			frames := encodeFrames(r.buf[:n])
			copied := copy(p[total:], frames)
			total += copied
			if copied < len(frames) {
				r.pending = append(r.pending[:0], frames[copied:]...)
			}
		}
		if !ok {
			r.eof = true
		}
	}

	if total == 0 && r.eof {
		return 0, io.EOF
	}
	return total, nil
}

// Exhausted reports whether the streamer has produced its last sample.
func (r *streamReader) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof
}

// reset clears the EOF flag after the underlying streamer was seeked
// backwards.
func (r *streamReader) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eof = false
	r.pending = r.pending[:0]
}

// encodeFrames converts float64 stereo samples to s16le bytes,
// clamping to [-1, 1].
func encodeFrames(samples [][2]float64) []byte {
	out := make([]byte, len(samples)*4)
	for i, frame := range samples {
		for ch := 0; ch < 2; ch++ {
			v := frame[ch]
			if v < -1 {
				v = -1
			}
			if v > 1 {
				v = 1
			}
			s := int16(v * 32767)
			off := i*4 + ch*2
			out[off] = byte(s)
			out[off+1] = byte(s >> 8)
		}
	}
	return out
}
