package audio

import (
	"github.com/jscyril/tinyplayer/internal/log"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

// DefaultMaxVoices is the number of virtual voices requested from the backend
const DefaultMaxVoices = 512

// Engine owns the process-wide connection to the audio backend. Construct
// exactly one and share it with every Session; Shutdown it only after all
// sessions are closed.
type Engine struct {
	backend Backend
}

// NewEngine initializes backend. Failure is an *EngineInitError.
func NewEngine(backend Backend, maxVoices int) (*Engine, error) {
	if backend == nil {
		return nil, &playerrors.EngineInitError{Op: "create", Err: playerrors.ErrNotInitialized}
	}
	if maxVoices <= 0 {
		maxVoices = DefaultMaxVoices
	}
	if err := backend.Init(maxVoices); err != nil {
		return nil, &playerrors.EngineInitError{Op: "init", Err: err}
	}
	return &Engine{backend: backend}, nil
}

// Update pumps the backend. It must be called from a single goroutine, never
// while a Session lock is held; end-of-stream listeners run inside it.
func (e *Engine) Update() error {
	return playerrors.Check("update", e.backend.Update())
}

// Shutdown closes and releases the backend
func (e *Engine) Shutdown() error {
	log.Infof("audio engine shutting down")
	return playerrors.Check("close", e.backend.Close())
}
