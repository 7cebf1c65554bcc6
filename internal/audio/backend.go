package audio

// TimeUnit selects the unit of positions and lengths exchanged with a Backend
type TimeUnit int

const (
	// TimeUnitMS is milliseconds
	TimeUnitMS TimeUnit = iota
	// TimeUnitPCM is raw samples at the stream's native rate
	TimeUnitPCM
)

// StreamMode is a set of flags for opening a stream
type StreamMode uint32

const (
	// ModeCreateStream decodes on the fly instead of loading the whole file
	ModeCreateStream StreamMode = 1 << iota
	// ModeLowMem skips metadata the player never reads
	ModeLowMem
	// ModeAccurateTime makes lengths and seeks sample accurate
	ModeAccurateTime
	// ModeUnique makes the stream exclusive to one owner
	ModeUnique
)

// supportedModes is every flag a Backend understands
const supportedModes = ModeCreateStream | ModeLowMem | ModeAccurateTime | ModeUnique

// Valid reports whether m only carries known flags
func (m StreamMode) Valid() bool {
	return m&^supportedModes == 0
}

// Has reports whether all flags of f are set in m
func (m StreamMode) Has(f StreamMode) bool {
	return m&f == f
}

// LoopMode is the repeat behaviour of a channel
type LoopMode int

const (
	LoopOff LoopMode = iota
	// LoopNormal repeats forever
	LoopNormal
)

// StreamEndListener is notified when a channel finishes natural playback.
// OnStreamEnd runs on the goroutine that called Backend.Update.
type StreamEndListener interface {
	OnStreamEnd()
}

// Backend is the external audio engine. Update must be called periodically
// from a single goroutine; queued end-of-stream notifications are delivered
// from inside it.
type Backend interface {
	Init(maxVoices int) error
	Update() error
	Close() error
	CreateStream(path string, mode StreamMode) (Stream, error)
	PlayStream(s Stream, paused bool) (Channel, error)
}

// Stream is an open, possibly still decoding, audio file.
//
// A stream whose channel finished naturally is released by the backend during
// Update; releasing it again returns ErrStreamReleased.
type Stream interface {
	Length(unit TimeUnit) (uint64, error)
	Release() error
}

// Channel is one playing voice of a stream. Calls on a channel that has
// finished are no-ops.
type Channel interface {
	SetPaused(paused bool) error
	SetVolume(volume float32) error
	SetLoop(mode LoopMode) error
	SetPosition(pos uint64, unit TimeUnit) error
	Position(unit TimeUnit) (uint64, error)
	SetEndListener(l StreamEndListener) error
}
