package audio

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	"github.com/jscyril/tinyplayer/internal/log"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

// Ensure BeepBackend implements Backend at compile time
var _ Backend = (*BeepBackend)(nil)

// resampleQuality is passed to beep.Resample when a file's rate differs from
// the speaker's
const resampleQuality = 4

// BeepBackend plays streams through the beep speaker. Every channel is mixed
// into one beep.Mixer that plays for the lifetime of the backend.
type BeepBackend struct {
	sampleRate beep.SampleRate
	buffer     time.Duration
	open       func(path string) (io.ReadSeekCloser, error)

	mu          sync.Mutex
	initialized bool
	maxVoices   int
	mixer       *beep.Mixer
	channels    map[*beepChannel]struct{}
	finished    []*beepChannel
}

// NewBeepBackend creates a backend mixing at sampleRate with a speaker buffer
// of the given duration
func NewBeepBackend(sampleRate int, buffer time.Duration) *BeepBackend {
	return &BeepBackend{
		sampleRate: beep.SampleRate(sampleRate),
		buffer:     buffer,
		open: func(path string) (io.ReadSeekCloser, error) {
			return filesystem.API().Open(path)
		},
		channels: make(map[*beepChannel]struct{}),
	}
}

// Init opens the speaker and starts the mixer
func (b *BeepBackend) Init(maxVoices int) error {
	if maxVoices <= 0 {
		return fmt.Errorf("max voices must be positive, got %d", maxVoices)
	}

	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return fmt.Errorf("backend already initialized")
	}
	b.mu.Unlock()

	if err := speaker.Init(b.sampleRate, b.sampleRate.N(b.buffer)); err != nil {
		return err
	}
	mixer := &beep.Mixer{}
	speaker.Play(mixer)

	b.mu.Lock()
	b.mixer = mixer
	b.maxVoices = maxVoices
	b.initialized = true
	b.mu.Unlock()

	log.Infof("speaker initialized at %d Hz, buffer %s, %d voices", b.sampleRate, b.buffer, maxVoices)
	return nil
}

// Update delivers end notifications for channels that drained since the last
// call. Listeners run synchronously on the calling goroutine.
func (b *BeepBackend) Update() error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return playerrors.ErrNotInitialized
	}
	finished := b.finished
	b.finished = nil
	for _, ch := range finished {
		delete(b.channels, ch)
	}
	b.mu.Unlock()

	for _, ch := range finished {
		if l := ch.finish(); l != nil {
			l.OnStreamEnd()
		}
	}
	return nil
}

// Close stops all playback and closes the speaker
func (b *BeepBackend) Close() error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return playerrors.ErrNotInitialized
	}
	live := make([]*beepChannel, 0, len(b.channels))
	for ch := range b.channels {
		live = append(live, ch)
	}
	b.channels = make(map[*beepChannel]struct{})
	b.finished = nil
	b.initialized = false
	b.mu.Unlock()

	speaker.Clear()
	speaker.Close()

	for _, ch := range live {
		if err := ch.stream.Release(); err != nil && err != playerrors.ErrStreamReleased {
			return err
		}
	}
	return nil
}

// CreateStream opens path and prepares a decoder for it. Without
// ModeCreateStream the whole file is decoded into memory up front. beep
// decoders never read tags and always seek to the exact sample, so
// ModeLowMem and ModeAccurateTime hold for every stream, and every stream
// feeds at most one channel as ModeUnique asks.
func (b *BeepBackend) CreateStream(path string, mode StreamMode) (Stream, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %#x", playerrors.ErrUnsupportedMode, uint32(mode))
	}

	b.mu.Lock()
	initialized := b.initialized
	b.mu.Unlock()
	if !initialized {
		return nil, playerrors.ErrNotInitialized
	}

	f, err := b.open(path)
	if err != nil {
		return nil, err
	}

	decoder, format, err := DecodeAudio(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !mode.Has(ModeCreateStream) {
		if decoder, err = preload(decoder, format); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"path":        path,
		"sample_rate": int(format.SampleRate),
		"channels":    format.NumChannels,
		"mode":        uint32(mode),
	}).Debug("stream created")

	return &beepStream{path: path, decoder: decoder, format: format, mode: mode}, nil
}

// PlayStream starts a channel for s in the mixer
func (b *BeepBackend) PlayStream(s Stream, paused bool) (Channel, error) {
	stream, ok := s.(*beepStream)
	if !ok {
		return nil, playerrors.ErrInvalidHandle
	}
	if stream.released.Load() {
		return nil, playerrors.ErrStreamReleased
	}
	stream.mu.Lock()
	inUse := stream.channel != nil
	stream.mu.Unlock()
	if inUse {
		return nil, playerrors.ErrStreamInUse
	}

	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return nil, playerrors.ErrNotInitialized
	}
	if len(b.channels) >= b.maxVoices {
		b.mu.Unlock()
		return nil, playerrors.ErrTooManyVoices
	}
	ch := &beepChannel{backend: b, stream: stream}
	ch.gate = &channelStreamer{src: stream.decoder, released: &ch.released}
	b.channels[ch] = struct{}{}
	mixer := b.mixer
	b.mu.Unlock()

	var src beep.Streamer = ch.gate
	if stream.format.SampleRate != b.sampleRate {
		src = beep.Resample(resampleQuality, stream.format.SampleRate, b.sampleRate, src)
	}
	ch.ctrl = &beep.Ctrl{Streamer: src, Paused: paused}
	ch.volume = &effects.Volume{Streamer: ch.ctrl, Base: 2}

	stream.mu.Lock()
	stream.channel = ch
	stream.mu.Unlock()

	speaker.Lock()
	mixer.Add(beep.Seq(ch.volume, beep.Callback(func() {
		b.queueEnd(ch)
	})))
	speaker.Unlock()

	return ch, nil
}

// memoryStream is a fully decoded file
type memoryStream struct {
	beep.StreamSeeker
}

func (memoryStream) Close() error { return nil }

// preload decodes all of decoder into memory and closes it
func preload(decoder beep.StreamSeekCloser, format beep.Format) (beep.StreamSeekCloser, error) {
	buffer := beep.NewBuffer(format)
	buffer.Append(decoder)
	err := decoder.Err()
	if cerr := decoder.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return memoryStream{buffer.Streamer(0, buffer.Len())}, nil
}

// queueEnd runs on the speaker goroutine with the speaker locked
func (b *BeepBackend) queueEnd(ch *beepChannel) {
	if ch.released.Load() {
		return
	}
	b.mu.Lock()
	b.finished = append(b.finished, ch)
	b.mu.Unlock()
}

func (b *BeepBackend) removeChannel(ch *beepChannel) {
	b.mu.Lock()
	delete(b.channels, ch)
	b.mu.Unlock()
}

// beepStream is a decoder over one open file
type beepStream struct {
	path     string
	decoder  beep.StreamSeekCloser
	format   beep.Format
	mode     StreamMode
	released atomic.Bool

	mu      sync.Mutex
	channel *beepChannel
}

func (s *beepStream) Length(unit TimeUnit) (uint64, error) {
	speaker.Lock()
	n := s.decoder.Len()
	speaker.Unlock()
	return samplesTo(s.format.SampleRate, n, unit), nil
}

// Release stops the stream's channel, if any, and closes the decoder
func (s *beepStream) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return playerrors.ErrStreamReleased
	}

	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch != nil {
		ch.released.Store(true)
		ch.backend.removeChannel(ch)
	}

	speaker.Lock()
	err := s.decoder.Close()
	speaker.Unlock()
	return err
}

// autoRelease frees a stream whose channel finished naturally
func (s *beepStream) autoRelease() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	speaker.Lock()
	err := s.decoder.Close()
	speaker.Unlock()
	if err != nil {
		log.Warnf("close finished stream %s: %v", s.path, err)
	}
}

// beepChannel is the live chain of one stream in the mixer
type beepChannel struct {
	backend *BeepBackend
	stream  *beepStream
	gate    *channelStreamer
	ctrl    *beep.Ctrl
	volume  *effects.Volume

	// released is set when the stream is released explicitly; done when the
	// channel drained and its end was delivered
	released atomic.Bool
	done     atomic.Bool

	mu       sync.Mutex
	listener StreamEndListener
}

// finish marks the channel done and frees its stream. It returns the
// listener to notify, or nil when the stream was released in the meantime.
func (c *beepChannel) finish() StreamEndListener {
	if c.released.Load() {
		return nil
	}
	c.done.Store(true)
	c.stream.autoRelease()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

func (c *beepChannel) inactive() bool {
	return c.done.Load() || c.released.Load()
}

func (c *beepChannel) SetPaused(paused bool) error {
	if c.inactive() {
		return nil
	}
	speaker.Lock()
	c.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (c *beepChannel) SetVolume(volume float32) error {
	if c.inactive() {
		return nil
	}
	gain, silent := volumeToGain(volume)
	speaker.Lock()
	c.volume.Volume = gain
	c.volume.Silent = silent
	speaker.Unlock()
	return nil
}

func (c *beepChannel) SetLoop(mode LoopMode) error {
	if c.inactive() {
		return nil
	}
	speaker.Lock()
	c.gate.loop = mode == LoopNormal
	speaker.Unlock()
	return nil
}

func (c *beepChannel) SetPosition(pos uint64, unit TimeUnit) error {
	if c.inactive() {
		return nil
	}
	n := samplesFrom(c.stream.format.SampleRate, pos, unit)

	speaker.Lock()
	defer speaker.Unlock()
	if length := c.stream.decoder.Len(); n > length {
		return fmt.Errorf("seek to sample %d past length %d", n, length)
	}
	return c.stream.decoder.Seek(n)
}

func (c *beepChannel) Position(unit TimeUnit) (uint64, error) {
	if c.inactive() {
		return c.stream.Length(unit)
	}
	speaker.Lock()
	n := c.stream.decoder.Position()
	speaker.Unlock()
	return samplesTo(c.stream.format.SampleRate, n, unit), nil
}

func (c *beepChannel) SetEndListener(l StreamEndListener) error {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
	return nil
}

// channelStreamer gates a decoder: it stops streaming once released and
// rewinds the decoder when looping
type channelStreamer struct {
	src      beep.StreamSeeker
	loop     bool
	released *atomic.Bool
	err      error
}

func (g *channelStreamer) Stream(samples [][2]float64) (int, bool) {
	if g.released.Load() {
		return 0, false
	}

	filled := 0
	for filled < len(samples) {
		n, ok := g.src.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}
		if !g.loop || g.src.Len() == 0 {
			break
		}
		if err := g.src.Seek(0); err != nil {
			g.err = err
			break
		}
	}
	return filled, filled > 0
}

func (g *channelStreamer) Err() error {
	if g.err != nil {
		return g.err
	}
	return g.src.Err()
}

// volumeToGain maps a linear 0..1 volume to effects.Volume's base-2 exponent
func volumeToGain(volume float32) (float64, bool) {
	if volume <= 0 {
		return 0, true
	}
	if volume > 1 {
		volume = 1
	}
	return math.Log2(float64(volume)), false
}

func samplesTo(rate beep.SampleRate, n int, unit TimeUnit) uint64 {
	if n < 0 {
		n = 0
	}
	if unit == TimeUnitPCM {
		return uint64(n)
	}
	return uint64(rate.D(n) / time.Millisecond)
}

func samplesFrom(rate beep.SampleRate, pos uint64, unit TimeUnit) int {
	if unit == TimeUnitPCM {
		return int(pos)
	}
	return rate.N(time.Duration(pos) * time.Millisecond)
}
