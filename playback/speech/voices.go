package speech

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ListVoices enumerates voices with a hard deadline. Voice listing can
// block on slow engines, so on timeout or error it returns an empty
// slice and playback proceeds with the engine default voice.
func ListVoices(ctx context.Context, s Synthesizer, timeout time.Duration) []Voice {
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		voices []Voice
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		voices, err := s.Voices(ctx)
		ch <- result{voices, err}
	}()

	select {
	case <-ctx.Done():
		log.Debug("voice enumeration timed out", "engine", s.Name(), "timeout", timeout)
		return nil
	case r := <-ch:
		if r.err != nil {
			log.Debug("voice enumeration failed", "engine", s.Name(), "err", r.err)
			return nil
		}
		return r.voices
	}
}

// SelectVoice picks the best voice for lang: a local voice matching the
// language, then any voice matching the language, then the first voice.
// ok is false when voices is empty, meaning the engine default applies.
func SelectVoice(voices []Voice, lang string) (v Voice, ok bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	for _, candidate := range voices {
		if candidate.Local && matchesLanguage(candidate.Language, lang) {
			return candidate, true
		}
	}
	for _, candidate := range voices {
		if matchesLanguage(candidate.Language, lang) {
			return candidate, true
		}
	}
	return voices[0], true
}

// matchesLanguage compares by primary language subtag, so "en-GB"
// matches "en".
func matchesLanguage(voiceLang, want string) bool {
	if want == "" {
		return true
	}
	vl := strings.ToLower(voiceLang)
	w := strings.ToLower(want)
	return vl == w || strings.HasPrefix(vl, w+"-") || strings.HasPrefix(vl, w+"_")
}
