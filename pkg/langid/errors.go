package langid

import "errors"

// Sentinel errors. Callers should match them with errors.Is; returned
// errors usually wrap a more specific cause.
var (
	// ErrRepositoryMissing means the model directory does not exist.
	ErrRepositoryMissing = errors.New("langid: model repository missing")

	// ErrModelLoad means a model file could not be read, decoded or
	// validated.
	ErrModelLoad = errors.New("langid: model load failed")

	// ErrDecode means an audio clip could not be turned into features:
	// unreadable, unsupported, corrupt, empty, or shorter than one
	// analysis window.
	ErrDecode = errors.New("langid: audio decode failed")

	// ErrNoModels means detection was requested against an empty registry.
	ErrNoModels = errors.New("langid: no models available")

	// ErrNoDecision means every model failed to produce a usable score.
	ErrNoDecision = errors.New("langid: no decision")

	// ErrInvalidConfig is returned by constructors for out-of-range
	// settings.
	ErrInvalidConfig = errors.New("langid: invalid config")
)
