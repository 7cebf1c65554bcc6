// Package audiotest provides an in-memory audio.Backend whose playback is
// driven by the test instead of a sound card.
package audiotest

import (
	"fmt"
	"os"
	"sync"

	"github.com/jscyril/tinyplayer/internal/audio"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

// SampleRate is the native rate of every fake file
const SampleRate = 44100

var _ audio.Backend = (*Backend)(nil)

// Backend is a scripted audio.Backend. Files must be registered with AddFile
// before they can be opened.
type Backend struct {
	mu          sync.Mutex
	files       map[string]uint64
	initErr     error
	updateErr   error
	lengthErr   error
	initialized bool
	closed      bool
	maxVoices   int
	updates     int
	streams     []*Stream
	channels    []*Channel
	pending     []*Channel
}

// New returns an uninitialized backend
func New() *Backend {
	return &Backend{files: make(map[string]uint64)}
}

// AddFile registers a playable file of the given length in seconds
func (b *Backend) AddFile(path string, seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[path] = uint64(seconds * SampleRate)
}

// FailInit makes the next Init return err
func (b *Backend) FailInit(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initErr = err
}

// FailUpdate makes every Update return err
func (b *Backend) FailUpdate(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updateErr = err
}

// FailLength makes Stream.Length return err
func (b *Backend) FailLength(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lengthErr = err
}

func (b *Backend) Init(maxVoices int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initErr != nil {
		return b.initErr
	}
	b.initialized = true
	b.maxVoices = maxVoices
	return nil
}

// Update delivers queued end notifications
func (b *Backend) Update() error {
	b.mu.Lock()
	if b.updateErr != nil {
		b.mu.Unlock()
		return b.updateErr
	}
	if !b.initialized {
		b.mu.Unlock()
		return playerrors.ErrNotInitialized
	}
	b.updates++
	pending := b.pending
	b.pending = nil

	var notify []audio.StreamEndListener
	for _, ch := range pending {
		if ch.stream.released {
			continue
		}
		ch.done = true
		ch.stream.released = true
		ch.stream.autoReleased = true
		if ch.listener != nil {
			notify = append(notify, ch.listener)
		}
	}
	b.mu.Unlock()

	for _, l := range notify {
		l.OnStreamEnd()
	}
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return playerrors.ErrNotInitialized
	}
	b.initialized = false
	b.closed = true
	return nil
}

func (b *Backend) CreateStream(path string, mode audio.StreamMode) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, playerrors.ErrNotInitialized
	}
	if !mode.Valid() {
		return nil, playerrors.ErrUnsupportedMode
	}
	samples, ok := b.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	s := &Stream{backend: b, Path: path, Mode: mode, samples: samples}
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *Backend) PlayStream(s audio.Stream, paused bool) (audio.Channel, error) {
	stream, ok := s.(*Stream)
	if !ok {
		return nil, playerrors.ErrInvalidHandle
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if stream.released {
		return nil, playerrors.ErrStreamReleased
	}
	if stream.channel != nil {
		return nil, playerrors.ErrStreamInUse
	}
	ch := &Channel{backend: b, stream: stream, paused: paused, volume: 1}
	stream.channel = ch
	b.channels = append(b.channels, ch)
	return ch, nil
}

// Updates returns how many times Update succeeded
func (b *Backend) Updates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}

// Closed reports whether Close was called
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// MaxVoices returns the value passed to Init
func (b *Backend) MaxVoices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxVoices
}

// Streams returns every stream created so far
func (b *Backend) Streams() []*Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Stream(nil), b.streams...)
}

// LastChannel returns the most recently started channel, or nil
func (b *Backend) LastChannel() *Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.channels) == 0 {
		return nil
	}
	return b.channels[len(b.channels)-1]
}

// Pending returns how many end notifications await the next Update
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stream is a fake decoded file
type Stream struct {
	backend      *Backend
	Path         string
	Mode         audio.StreamMode
	samples      uint64
	channel      *Channel
	released     bool
	autoReleased bool
	releases     int
}

func (s *Stream) Length(unit audio.TimeUnit) (uint64, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.lengthErr != nil {
		return 0, s.backend.lengthErr
	}
	return toUnit(s.samples, unit), nil
}

func (s *Stream) Release() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.released {
		return playerrors.ErrStreamReleased
	}
	s.released = true
	s.releases++
	return nil
}

// Released reports whether the stream was released explicitly
func (s *Stream) Released() bool {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return s.released && !s.autoReleased
}

// Releases counts successful explicit Release calls
func (s *Stream) Releases() int {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return s.releases
}

// AutoReleased reports whether the backend freed the stream after its
// channel finished
func (s *Stream) AutoReleased() bool {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return s.autoReleased
}

// Channel is a fake voice. Its position only moves through SetPosition and
// Advance.
type Channel struct {
	backend  *Backend
	stream   *Stream
	pos      uint64
	paused   bool
	volume   float32
	loop     audio.LoopMode
	done     bool
	queued   bool
	listener audio.StreamEndListener
}

func (c *Channel) inactive() bool {
	return c.done || c.stream.released
}

func (c *Channel) SetPaused(paused bool) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if !c.inactive() {
		c.paused = paused
	}
	return nil
}

func (c *Channel) SetVolume(volume float32) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if !c.inactive() {
		c.volume = volume
	}
	return nil
}

func (c *Channel) SetLoop(mode audio.LoopMode) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if !c.inactive() {
		c.loop = mode
	}
	return nil
}

// SetPosition moves the play head. Landing on or past the last sample
// finishes the channel, as a real backend would.
func (c *Channel) SetPosition(pos uint64, unit audio.TimeUnit) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.inactive() {
		return nil
	}
	n := fromUnit(pos, unit)
	if n > c.stream.samples {
		return fmt.Errorf("position %d past length %d", n, c.stream.samples)
	}
	c.pos = n
	if c.pos >= c.stream.samples {
		c.drainLocked()
	}
	return nil
}

func (c *Channel) Position(unit audio.TimeUnit) (uint64, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.inactive() {
		return toUnit(c.stream.samples, unit), nil
	}
	return toUnit(c.pos, unit), nil
}

func (c *Channel) SetEndListener(l audio.StreamEndListener) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	c.listener = l
	return nil
}

// Advance plays seconds of audio if the channel is not paused. Running off
// the end wraps when looping and otherwise queues the end notification.
func (c *Channel) Advance(seconds float64) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.inactive() || c.paused {
		return
	}
	c.pos += uint64(seconds * SampleRate)
	if c.pos < c.stream.samples {
		return
	}
	if c.loop == audio.LoopNormal && c.stream.samples > 0 {
		c.pos %= c.stream.samples
		return
	}
	c.pos = c.stream.samples
	c.drainLocked()
}

// Finish runs the channel to its end regardless of pause or loop state
func (c *Channel) Finish() {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.inactive() {
		return
	}
	c.pos = c.stream.samples
	c.drainLocked()
}

func (c *Channel) drainLocked() {
	if c.queued {
		return
	}
	c.queued = true
	c.backend.pending = append(c.backend.pending, c)
}

func (c *Channel) Paused() bool {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	return c.paused
}

func (c *Channel) Volume() float32 {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	return c.volume
}

func (c *Channel) Loop() audio.LoopMode {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	return c.loop
}

// Sample returns the raw play head
func (c *Channel) Sample() uint64 {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	return c.pos
}

// Stream returns the stream the channel plays
func (c *Channel) Stream() *Stream {
	return c.stream
}

func toUnit(samples uint64, unit audio.TimeUnit) uint64 {
	if unit == audio.TimeUnitPCM {
		return samples
	}
	return samples * 1000 / SampleRate
}

func fromUnit(pos uint64, unit audio.TimeUnit) uint64 {
	if unit == audio.TimeUnitPCM {
		return pos
	}
	return pos * SampleRate / 1000
}
