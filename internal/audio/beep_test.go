package audio

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faiface/beep"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

// sliceStreamer plays back a fixed number of samples whose left value is the
// sample index
type sliceStreamer struct {
	n      int
	pos    int
	closed bool
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	i := 0
	for ; i < len(samples) && s.pos < s.n; i++ {
		samples[i] = [2]float64{float64(s.pos), 0}
		s.pos++
	}
	return i, true
}

func (s *sliceStreamer) Err() error    { return nil }
func (s *sliceStreamer) Len() int      { return s.n }
func (s *sliceStreamer) Position() int { return s.pos }
func (s *sliceStreamer) Close() error  { s.closed = true; return nil }

func (s *sliceStreamer) Seek(p int) error {
	if p < 0 || p > s.n {
		return errors.New("seek out of range")
	}
	s.pos = p
	return nil
}

type endCounter struct {
	calls int
}

func (e *endCounter) OnStreamEnd() { e.calls++ }

func TestChannelStreamer_NoLoop(t *testing.T) {
	var released atomic.Bool
	g := &channelStreamer{src: &sliceStreamer{n: 10}, released: &released}
	buf := make([][2]float64, 16)

	n, ok := g.Stream(buf)
	if n != 10 || !ok {
		t.Fatalf("Stream() = %d, %v; want 10, true", n, ok)
	}
	n, ok = g.Stream(buf)
	if n != 0 || ok {
		t.Errorf("Stream() after drain = %d, %v; want 0, false", n, ok)
	}
}

func TestChannelStreamer_Loop(t *testing.T) {
	var released atomic.Bool
	g := &channelStreamer{src: &sliceStreamer{n: 10}, loop: true, released: &released}
	buf := make([][2]float64, 25)

	n, ok := g.Stream(buf)
	if n != 25 || !ok {
		t.Fatalf("Stream() = %d, %v; want 25, true", n, ok)
	}
	if buf[10][0] != 0 || buf[24][0] != 4 {
		t.Errorf("loop should rewind to the first sample, got %v and %v", buf[10][0], buf[24][0])
	}
}

func TestChannelStreamer_Released(t *testing.T) {
	var released atomic.Bool
	g := &channelStreamer{src: &sliceStreamer{n: 10}, loop: true, released: &released}
	released.Store(true)

	if n, ok := g.Stream(make([][2]float64, 4)); n != 0 || ok {
		t.Errorf("released gate streamed %d, %v", n, ok)
	}
}

func TestVolumeToGain(t *testing.T) {
	tests := []struct {
		in     float32
		gain   float64
		silent bool
	}{
		{0, 0, true},
		{-1, 0, true},
		{0.5, -1, false},
		{0.25, -2, false},
		{1, 0, false},
		{3, 0, false},
	}

	for _, tt := range tests {
		gain, silent := volumeToGain(tt.in)
		if math.Abs(gain-tt.gain) > 1e-9 || silent != tt.silent {
			t.Errorf("volumeToGain(%v) = %v, %v; want %v, %v", tt.in, gain, silent, tt.gain, tt.silent)
		}
	}
}

func TestSampleConversion(t *testing.T) {
	rate := beep.SampleRate(44100)

	if got := samplesTo(rate, 44100, TimeUnitMS); got != 1000 {
		t.Errorf("samplesTo(ms) = %d, want 1000", got)
	}
	if got := samplesTo(rate, 44100, TimeUnitPCM); got != 44100 {
		t.Errorf("samplesTo(pcm) = %d, want 44100", got)
	}
	if got := samplesTo(rate, -5, TimeUnitPCM); got != 0 {
		t.Errorf("samplesTo(negative) = %d, want 0", got)
	}
	if got := samplesFrom(rate, 1000, TimeUnitMS); got != 44100 {
		t.Errorf("samplesFrom(ms) = %d, want 44100", got)
	}
	if got := samplesFrom(rate, 7, TimeUnitPCM); got != 7 {
		t.Errorf("samplesFrom(pcm) = %d, want 7", got)
	}
}

func TestBeepBackend_NotInitialized(t *testing.T) {
	b := NewBeepBackend(44100, 100*time.Millisecond)

	if _, err := b.CreateStream("/music/a.mp3", ModeCreateStream); !errors.Is(err, playerrors.ErrNotInitialized) {
		t.Errorf("CreateStream error = %v, want ErrNotInitialized", err)
	}
	if err := b.Update(); !errors.Is(err, playerrors.ErrNotInitialized) {
		t.Errorf("Update error = %v, want ErrNotInitialized", err)
	}
	if err := b.Close(); !errors.Is(err, playerrors.ErrNotInitialized) {
		t.Errorf("Close error = %v, want ErrNotInitialized", err)
	}
	if err := b.Init(0); err == nil {
		t.Error("Init(0) should fail")
	}
}

func TestBeepBackend_CreateStreamRejectsUnknownMode(t *testing.T) {
	b := NewBeepBackend(44100, 100*time.Millisecond)
	b.initialized = true
	opened := false
	b.open = func(string) (io.ReadSeekCloser, error) {
		opened = true
		return nil, errors.New("unexpected open")
	}

	_, err := b.CreateStream("/music/a.mp3", ModeCreateStream|StreamMode(1<<7))
	if !errors.Is(err, playerrors.ErrUnsupportedMode) {
		t.Fatalf("CreateStream error = %v, want ErrUnsupportedMode", err)
	}
	if opened {
		t.Error("file should not be opened for an unknown mode")
	}
}

func TestStreamMode_Valid(t *testing.T) {
	tests := []struct {
		mode StreamMode
		want bool
	}{
		{0, true},
		{ModeCreateStream | ModeLowMem | ModeAccurateTime | ModeUnique, true},
		{ModeUnique << 1, false},
		{ModeCreateStream | 1<<31, false},
	}
	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("StreamMode(%#x).Valid() = %v, want %v", uint32(tt.mode), got, tt.want)
		}
	}
}

func TestPreload(t *testing.T) {
	src := &sliceStreamer{n: 100}

	got, err := preload(src, beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})
	if err != nil {
		t.Fatalf("preload: %v", err)
	}
	if !src.closed {
		t.Error("decoder should be closed once buffered")
	}
	if got.Len() != 100 {
		t.Errorf("Len() = %d, want 100", got.Len())
	}
	if err := got.Seek(40); err != nil {
		t.Fatal(err)
	}
	buf := make([][2]float64, 1)
	if n, ok := got.Stream(buf); n != 1 || !ok {
		t.Fatalf("Stream() = %d, %v", n, ok)
	}
	if got.Position() != 41 {
		t.Errorf("Position() = %d, want 41", got.Position())
	}
	if err := got.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// newTestChannel wires a channel into b without touching the speaker
func newTestChannel(b *BeepBackend, listener StreamEndListener) (*beepChannel, *sliceStreamer) {
	src := &sliceStreamer{n: 100}
	stream := &beepStream{path: "test.wav", decoder: src, format: beep.Format{SampleRate: 44100}}
	ch := &beepChannel{backend: b, stream: stream, listener: listener}
	ch.gate = &channelStreamer{src: src, released: &ch.released}
	stream.channel = ch
	b.channels[ch] = struct{}{}
	return ch, src
}

func TestBeepBackend_UpdateDeliversEnd(t *testing.T) {
	b := NewBeepBackend(44100, 100*time.Millisecond)
	b.initialized = true
	l := &endCounter{}
	ch, src := newTestChannel(b, l)

	b.queueEnd(ch)
	if l.calls != 0 {
		t.Fatal("end must not be delivered before Update")
	}
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}

	if l.calls != 1 {
		t.Errorf("listener called %d times, want 1", l.calls)
	}
	if !src.closed {
		t.Error("finished stream should be freed by the backend")
	}
	if err := ch.stream.Release(); !errors.Is(err, playerrors.ErrStreamReleased) {
		t.Errorf("Release after end = %v, want ErrStreamReleased", err)
	}
	if err := ch.SetPaused(false); err != nil {
		t.Errorf("SetPaused on finished channel: %v", err)
	}
	if got, _ := ch.Position(TimeUnitPCM); got != 100 {
		t.Errorf("Position on finished channel = %d, want 100", got)
	}
}

func TestBeepBackend_PlayStreamOnce(t *testing.T) {
	b := NewBeepBackend(44100, 100*time.Millisecond)
	b.initialized = true
	b.maxVoices = 4
	ch, _ := newTestChannel(b, nil)

	if _, err := b.PlayStream(ch.stream, true); !errors.Is(err, playerrors.ErrStreamInUse) {
		t.Errorf("second PlayStream error = %v, want ErrStreamInUse", err)
	}
	if len(b.channels) != 1 {
		t.Errorf("channels = %d, want 1", len(b.channels))
	}
}

func TestBeepBackend_ReleaseSuppressesEnd(t *testing.T) {
	b := NewBeepBackend(44100, 100*time.Millisecond)
	b.initialized = true
	l := &endCounter{}
	ch, src := newTestChannel(b, l)

	b.queueEnd(ch)
	if err := ch.stream.Release(); err != nil {
		t.Fatal(err)
	}
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}

	if l.calls != 0 {
		t.Error("a released stream must not report its end")
	}
	if !src.closed {
		t.Error("Release should close the decoder")
	}
	if len(b.channels) != 0 {
		t.Error("released channel should leave the voice table")
	}
}
