package errors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for common conditions
var (
	ErrInvalidFormat   = errors.New("unsupported audio format")
	ErrEmptyQueue      = errors.New("playback queue is empty")
	ErrInvalidHandle   = errors.New("invalid backend handle")
	ErrStreamReleased  = errors.New("stream already released")
	ErrNotInitialized  = errors.New("audio backend not initialized")
	ErrTooManyVoices   = errors.New("no free virtual voice")
	ErrUnsupportedMode = errors.New("unsupported stream mode")
	ErrStreamInUse     = errors.New("stream already playing on a channel")
)

// EngineInitError reports a failure to create or initialize the audio backend.
// It is unrecoverable for the process.
type EngineInitError struct {
	Op  string
	Err error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("audio engine %s: %v", e.Op, e.Err)
}

func (e *EngineInitError) Unwrap() error {
	return e.Err
}

// BackendCallError wraps a non-success status from a single backend call
// together with the call site that made it.
type BackendCallError struct {
	Op   string
	File string
	Line int
	Err  error
}

func (e *BackendCallError) Error() string {
	return fmt.Sprintf("%s(%d): backend error in %s - %v", e.File, e.Line, e.Op, e.Err)
}

func (e *BackendCallError) Unwrap() error {
	return e.Err
}

// Check returns nil for a nil err, otherwise a *BackendCallError carrying the
// caller's file and line and a stack trace.
func Check(op string, err error) error {
	if err == nil {
		return nil
	}
	file, line := "???", 0
	if _, f, l, ok := runtime.Caller(1); ok {
		file, line = filepath.Base(f), l
	}
	return &BackendCallError{Op: op, File: file, Line: line, Err: pkgerrors.WithStack(err)}
}

// StreamOpenError reports that the backend could not open or decode a file
type StreamOpenError struct {
	Path string
	Err  error
}

func (e *StreamOpenError) Error() string {
	return fmt.Sprintf("open stream %s: %v", e.Path, e.Err)
}

func (e *StreamOpenError) Unwrap() error {
	return e.Err
}

// UsageError is a bad or missing command line argument
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// EmptyPlaylistError is returned when a directory holds no supported files
type EmptyPlaylistError struct {
	Dir string
}

func (e *EmptyPlaylistError) Error() string {
	return fmt.Sprintf("empty directory: %s", e.Dir)
}

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op    string // Operation that failed
	Track string // Track path if applicable
	Err   error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for track %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, track string, err error) *PlayerError {
	return &PlayerError{Op: op, Track: track, Err: err}
}

// ScanError represents an error during directory resolution
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
