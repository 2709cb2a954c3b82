package narration

import (
	"errors"
	"fmt"
)

// Narration errors.
var (
	// ErrInputEmpty marks content that segments to zero steps. It is logged,
	// never returned: empty content is a valid, silent session.
	ErrInputEmpty = errors.New("nothing to narrate")

	// ErrIndexOutOfRange is returned by Play for an index outside the steps.
	ErrIndexOutOfRange = errors.New("step index out of range")

	// ErrInvalidTransition is returned when an operation does not apply to
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPlaybackAcquisition is returned when the speaker could not start a
	// step or the step failed while playing.
	ErrPlaybackAcquisition = errors.New("playback acquisition failed")

	// ErrVoiceUnsupported marks a language with no matching voice; the
	// synthesizer default is used instead.
	ErrVoiceUnsupported = errors.New("no voice for language")

	// ErrSuperseded is returned when a load was overtaken by a later one, or
	// by Stop, before it could start.
	ErrSuperseded = errors.New("load superseded")

	// ErrInvalidSpeed is returned for a speed multiplier outside [MinSpeed, MaxSpeed].
	ErrInvalidSpeed = errors.New("speed out of range")
)

// ErrorCode identifies the failure class of a NarrationError.
type ErrorCode string

const (
	CodeIndexOutOfRange   ErrorCode = "INDEX_OUT_OF_RANGE"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeAcquisitionFailed ErrorCode = "ACQUISITION_FAILED"
	CodePlaybackFailed    ErrorCode = "PLAYBACK_FAILED"
	CodeHandleControl     ErrorCode = "HANDLE_CONTROL"
	CodeSuperseded        ErrorCode = "SUPERSEDED"
)

var codeSentinels = map[ErrorCode]error{
	CodeIndexOutOfRange:   ErrIndexOutOfRange,
	CodeInvalidTransition: ErrInvalidTransition,
	CodeAcquisitionFailed: ErrPlaybackAcquisition,
	CodePlaybackFailed:    ErrPlaybackAcquisition,
	CodeSuperseded:        ErrSuperseded,
}

// NarrationError carries the failure class plus context about the session
// and step it happened on.
type NarrationError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// NewNarrationError creates a NarrationError.
func NewNarrationError(code ErrorCode, message string, cause error) *NarrationError {
	return &NarrationError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

func (e *NarrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *NarrationError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match a NarrationError against the sentinel of its code.
func (e *NarrationError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// WithContext adds a key/value to the error.
func (e *NarrationError) WithContext(key string, value any) *NarrationError {
	e.Context[key] = value
	return e
}

// IsFatal reports whether the error ended the session.
func (e *NarrationError) IsFatal() bool {
	switch e.Code {
	case CodeAcquisitionFailed, CodePlaybackFailed:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether the caller may retry the step, e.g. after a
// network failure fetching a clip.
func (e *NarrationError) IsRetryable() bool {
	return e.Code == CodeAcquisitionFailed
}
