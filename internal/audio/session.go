package audio

import (
	"sync"
	"sync/atomic"

	"github.com/jscyril/tinyplayer/internal/log"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
	"github.com/samber/lo"
)

// streamMode is used for every file a Session opens
const streamMode = ModeCreateStream | ModeLowMem | ModeAccurateTime | ModeUnique

// Ensure Session implements StreamEndListener at compile time
var _ StreamEndListener = (*Session)(nil)

// Session holds the one track loaded into a playback slot.
//
// Mutators and Time take mu. The end flag is atomic: it is written by
// OnStreamEnd from inside Engine.Update, which never runs under mu.
type Session struct {
	engine *Engine

	mu        sync.Mutex
	stream    Stream
	channel   Channel
	fileName  string
	duration  float64
	endSample uint64
	atEnd     bool
	volume    int
	paused    bool
	loop      bool

	end atomic.Bool
}

// NewSession binds a session to engine. The session starts empty.
func NewSession(engine *Engine) *Session {
	s := &Session{
		engine: engine,
		volume: 100,
		paused: true,
	}
	s.end.Store(true)
	return s
}

// OnStreamEnd is called by the engine when the loaded stream finishes
func (s *Session) OnStreamEnd() {
	s.end.Store(true)
}

// Load replaces the current track with the file at path. The new track is
// paused at its start; volume and loop carry over.
func (s *Session) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stream that ended on its own was already freed by the backend
	if !s.end.Load() && s.stream != nil {
		if err := playerrors.Check("release", s.stream.Release()); err != nil {
			return err
		}
	}
	s.end.Store(true)
	s.stream, s.channel = nil, nil
	s.atEnd = false
	s.fileName, s.duration, s.endSample = path, 0, 0

	stream, err := s.engine.backend.CreateStream(path, streamMode)
	if err != nil {
		return &playerrors.StreamOpenError{Path: path, Err: err}
	}
	channel, lengthMS, lengthPCM, err := s.start(stream)
	if err != nil {
		_ = stream.Release()
		return err
	}

	s.stream, s.channel = stream, channel
	s.duration = float64(lengthMS) / 1000
	s.endSample = lengthPCM
	s.end.Store(false)
	s.paused = true

	if err := playerrors.Check("volume", channel.SetVolume(float32(s.volume)/100)); err != nil {
		return err
	}
	if s.loop {
		if err := playerrors.Check("loop", channel.SetLoop(LoopNormal)); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{"path": path, "duration": s.duration}).Info("track loaded")
	return nil
}

// start plays stream paused, registers s for its end and reads its length
func (s *Session) start(stream Stream) (Channel, uint64, uint64, error) {
	channel, err := s.engine.backend.PlayStream(stream, true)
	if err != nil {
		return nil, 0, 0, playerrors.Check("play", err)
	}
	if err := playerrors.Check("listener", channel.SetEndListener(s)); err != nil {
		return nil, 0, 0, err
	}
	lengthMS, err := stream.Length(TimeUnitMS)
	if err := playerrors.Check("length", err); err != nil {
		return nil, 0, 0, err
	}
	lengthPCM, err := stream.Length(TimeUnitPCM)
	if err := playerrors.Check("length", err); err != nil {
		return nil, 0, 0, err
	}
	return channel, lengthMS, lengthPCM, nil
}

// Play resumes the channel. It does nothing once the track has ended.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.end.Load() {
		return nil
	}
	s.paused = false
	return playerrors.Check("unpause", s.channel.SetPaused(false))
}

// Pause always marks the session paused; the channel is only touched while
// the track has not ended
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true
	if s.end.Load() {
		return nil
	}
	return playerrors.Check("pause", s.channel.SetPaused(true))
}

// SetVolume stores volume clamped to 0..100 and applies it
func (s *Session) SetVolume(volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = lo.Clamp(volume, 0, 100)
	if s.end.Load() {
		return nil
	}
	return playerrors.Check("volume", s.channel.SetVolume(float32(s.volume)/100))
}

// SetTime seeks to seconds, clamped to the track. Seeking to or past the end
// lands one sample short of it so the seek itself never ends the track.
func (s *Session) SetTime(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.end.Load() {
		return nil
	}

	seconds = lo.Clamp(seconds, 0, s.duration)
	if seconds < s.duration {
		s.atEnd = false
		return playerrors.Check("seek", s.channel.SetPosition(uint64(seconds*1000), TimeUnitMS))
	}

	last := uint64(0)
	if s.endSample > 0 {
		last = s.endSample - 1
	}
	if err := playerrors.Check("seek", s.channel.SetPosition(last, TimeUnitPCM)); err != nil {
		return err
	}
	s.atEnd = true
	return nil
}

// SetLoop toggles infinite repeat
func (s *Session) SetLoop(loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loop = loop
	if s.end.Load() {
		return nil
	}
	mode := LoopOff
	if loop {
		mode = LoopNormal
	}
	return playerrors.Check("loop", s.channel.SetLoop(mode))
}

// Time returns the playback position in seconds, never beyond the duration
func (s *Session) Time() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.end.Load() {
		return s.duration, nil
	}

	// still parked on the final sample after a seek to the end
	if s.atEnd {
		pcm, err := s.channel.Position(TimeUnitPCM)
		if err := playerrors.Check("position", err); err != nil {
			return 0, err
		}
		if pcm+1 >= s.endSample {
			return s.duration, nil
		}
		s.atEnd = false
	}

	ms, err := s.channel.Position(TimeUnitMS)
	if err := playerrors.Check("position", err); err != nil {
		return 0, err
	}
	return lo.Min([]float64{float64(ms) / 1000, s.duration}), nil
}

// Close releases the stream. The engine must outlive this call.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if !s.end.Load() && s.stream != nil {
		err = playerrors.Check("release", s.stream.Release())
	}
	s.end.Store(true)
	s.stream, s.channel = nil, nil
	return err
}

// IsEnd reports whether the loaded track has finished. It takes no lock.
func (s *Session) IsEnd() bool {
	return s.end.Load()
}

func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Session) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) IsLoop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}
