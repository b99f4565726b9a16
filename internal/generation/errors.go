package generation

import "errors"

// Common errors returned by the generation package.
var (
	// ErrGenerationFailed is returned when article generation fails for any
	// general reason.
	ErrGenerationFailed = errors.New("failed to generate article content")

	// ErrBackendUnavailable is returned when the inference service cannot be
	// reached. The affected task is marked failed; the scheduler keeps running.
	ErrBackendUnavailable = errors.New("inference backend unavailable")

	// ErrUnknownBackend is returned when a backend identifier carries a prefix
	// no registered client handles.
	ErrUnknownBackend = errors.New("unknown backend identifier")

	// ErrInvalidResponse is returned when the backend response cannot be
	// parsed or carries no content.
	ErrInvalidResponse = errors.New("invalid response from model backend")

	// ErrInvalidConfig is returned when a generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
