package playback

import (
	"errors"
	"fmt"
)

// Common errors returned for caller misuse. Runtime playback failures are
// never returned from transport methods; they surface as error events.
var (
	// ErrNoContent indicates the factory was given neither an audio URL
	// nor text content.
	ErrNoContent = errors.New("no audio URL or text content supplied")

	// ErrDisposed indicates an operation on a disposed source.
	ErrDisposed = errors.New("source has been disposed")

	// ErrNotInitialized indicates an internal operation ran before
	// initialization completed.
	ErrNotInitialized = errors.New("source is not initialized")
)

// ErrorCode identifies a playback failure class.
type ErrorCode string

const (
	// ErrorCodeNotSupported means the required audio capability does not
	// exist in this runtime. Fatal for the source instance.
	ErrorCodeNotSupported ErrorCode = "NOT_SUPPORTED"

	// ErrorCodeEnvironment means the runtime environment rejected the
	// capability, e.g. no audio device. Fatal for the source instance.
	ErrorCodeEnvironment ErrorCode = "ENVIRONMENT_ERROR"

	// ErrorCodeInitializationFailed means setup failed despite the
	// capability being present. Fatal for the source instance.
	ErrorCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"

	// ErrorCodeNetwork means a transport failure while fetching content.
	ErrorCodeNetwork ErrorCode = "NETWORK_ERROR"

	// ErrorCodePlaybackAborted means playback was interrupted before
	// completion.
	ErrorCodePlaybackAborted ErrorCode = "PLAYBACK_ABORTED"

	// ErrorCodeUserInteractionRequired means the platform refused to
	// start output until the user interacts; retry via Resume.
	ErrorCodeUserInteractionRequired ErrorCode = "USER_INTERACTION_REQUIRED"

	// ErrorCodeSpeech means the speech engine reported a runtime error.
	// The source resets but remains usable.
	ErrorCodeSpeech ErrorCode = "SPEECH_ERROR"

	// ErrorCodeDecode means the content could not be decoded. Fatal for
	// this content.
	ErrorCodeDecode ErrorCode = "DECODE_ERROR"

	// ErrorCodeFormat means the content format is not supported. Fatal
	// for this content.
	ErrorCodeFormat ErrorCode = "FORMAT_ERROR"

	// ErrorCodeInvalidInput means caller misuse, e.g. constructing a
	// source without content. Returned synchronously, never emitted.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error is a playback failure with a stable code for UI collaborators.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Recoverable reports whether the source remains usable after a
// caller-initiated retry.
func (e *Error) Recoverable() bool {
	switch e.Code {
	case ErrorCodeNetwork,
		ErrorCodePlaybackAborted,
		ErrorCodeUserInteractionRequired,
		ErrorCodeSpeech:
		return true
	default:
		return false
	}
}

// NewError creates a playback error with the given code and cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
