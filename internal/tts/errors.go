package tts

import "errors"

// Common TTS errors.
var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrUnsupportedLanguage is returned for language codes the engine does not know.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrSynthesisFailed is returned when TTS synthesis fails.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrRateLimited is returned when the remote service throttles us.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServiceUnavailable is returned when the TTS service cannot be reached.
	ErrServiceUnavailable = errors.New("TTS service unavailable")

	// ErrUnknownEngine is returned by the registry for unregistered names.
	ErrUnknownEngine = errors.New("unknown TTS engine")
)

// SynthesisError provides detailed error information from TTS engines.
type SynthesisError struct {
	// Engine is the engine that returned the error.
	Engine string

	// Code is an engine-specific code such as an HTTP status or exit status.
	Code string

	// Message is the error message.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return e.Engine + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Engine + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// NewSynthesisError creates a new SynthesisError.
func NewSynthesisError(engine, code, message string, cause error) *SynthesisError {
	return &SynthesisError{
		Engine:  engine,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
