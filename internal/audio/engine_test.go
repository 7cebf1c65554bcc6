package audio_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jscyril/tinyplayer/internal/audio"
	"github.com/jscyril/tinyplayer/internal/audio/audiotest"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

func TestNewEngine(t *testing.T) {
	backend := audiotest.New()
	engine, err := audio.NewEngine(backend, 0)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if engine == nil {
		t.Fatal("Expected non-nil engine")
	}
	if backend.MaxVoices() != audio.DefaultMaxVoices {
		t.Errorf("Expected %d voices, got %d", audio.DefaultMaxVoices, backend.MaxVoices())
	}
}

func TestNewEngine_InitFailure(t *testing.T) {
	backend := audiotest.New()
	cause := errors.New("no output device")
	backend.FailInit(cause)

	_, err := audio.NewEngine(backend, 32)

	var initErr *playerrors.EngineInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Expected *EngineInitError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("init error should wrap the backend cause")
	}
}

func TestNewEngine_NilBackend(t *testing.T) {
	_, err := audio.NewEngine(nil, 0)
	var initErr *playerrors.EngineInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Expected *EngineInitError, got %v", err)
	}
}

func TestEngineUpdate(t *testing.T) {
	backend := audiotest.New()
	engine, err := audio.NewEngine(backend, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := engine.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if backend.Updates() != 3 {
		t.Errorf("Expected 3 updates, got %d", backend.Updates())
	}

	cause := errors.New("device lost")
	backend.FailUpdate(cause)
	err = engine.Update()

	var callErr *playerrors.BackendCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Expected *BackendCallError, got %v", err)
	}
	if callErr.Op != "update" {
		t.Errorf("Expected op update, got %s", callErr.Op)
	}
	if !strings.Contains(err.Error(), "device lost") {
		t.Errorf("error %q should carry the backend message", err)
	}
}

func TestEngineShutdown(t *testing.T) {
	backend := audiotest.New()
	engine, err := audio.NewEngine(backend, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := engine.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !backend.Closed() {
		t.Error("backend should be closed")
	}
	if err := engine.Shutdown(); err == nil {
		t.Error("second Shutdown should fail")
	}
}
