package playback

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrorCodeNetwork, "fetching audio file", cause)

	want := "NETWORK_ERROR: fetching audio file: connection refused"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}

	bare := NewError(ErrorCodeSpeech, "speech synthesis failed", nil)
	if bare.Error() != "SPEECH_ERROR: speech synthesis failed" {
		t.Errorf("Unexpected message without cause: %q", bare.Error())
	}
	if bare.Unwrap() != nil {
		t.Error("Expected nil Unwrap without cause")
	}
}

func TestErrorRecoverable(t *testing.T) {
	tests := []struct {
		code        ErrorCode
		recoverable bool
	}{
		{ErrorCodeNetwork, true},
		{ErrorCodePlaybackAborted, true},
		{ErrorCodeUserInteractionRequired, true},
		{ErrorCodeSpeech, true},
		{ErrorCodeNotSupported, false},
		{ErrorCodeEnvironment, false},
		{ErrorCodeInitializationFailed, false},
		{ErrorCodeDecode, false},
		{ErrorCodeFormat, false},
		{ErrorCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewError(tt.code, "test", nil)
			if got := err.Recoverable(); got != tt.recoverable {
				t.Errorf("Recoverable() for %s: expected %v, got %v", tt.code, tt.recoverable, got)
			}
		})
	}
}
