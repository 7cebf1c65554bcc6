// Package player runs the control loop: a tick activity that pumps the audio
// engine and redraws the status panel, and a command activity that turns
// keypresses into session operations.
package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jscyril/tinyplayer/api"
	"github.com/jscyril/tinyplayer/internal/audio"
	"github.com/jscyril/tinyplayer/internal/config"
	"github.com/jscyril/tinyplayer/internal/log"
	"github.com/jscyril/tinyplayer/internal/playlist"
	"github.com/jscyril/tinyplayer/internal/terminal"
	"github.com/jscyril/tinyplayer/internal/ui"
	"github.com/jscyril/tinyplayer/pkg/events"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Action names a command bound to a key
type Action string

const (
	ActionPlayPause   Action = "play_pause"
	ActionSeekForward Action = "seek_forward"
	ActionSeekBack    Action = "seek_back"
	ActionVolumeUp    Action = "volume_up"
	ActionVolumeDown  Action = "volume_down"
	ActionLoop        Action = "loop"
	ActionNext        Action = "next"
	ActionPrevious    Action = "previous"
	ActionShuffle     Action = "shuffle"
	ActionQuit        Action = "quit"
)

// Options configures a Controller
type Options struct {
	Interval   time.Duration
	SeekStep   float64
	VolumeStep int
	Keys       config.KeyMap

	// View and Out receive the status panel every tick; a nil Out disables
	// rendering
	View *ui.View
	Out  io.Writer

	// Bus, when set, receives playback events
	Bus *events.EventBus
}

// OptionsFromConfig maps the playback section of cfg onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:   cfg.Playback.TickInterval,
		SeekStep:   cfg.Playback.SeekStep,
		VolumeStep: cfg.Playback.VolumeStep,
		Keys:       cfg.Keys,
	}
}

// Controller drives one Session through a Queue
type Controller struct {
	engine  *audio.Engine
	session *audio.Session
	queue   *playlist.Queue
	opts    Options
	actions map[rune]Action

	// switchMu serializes track changes between the two activities. It is
	// never held across engine.Update.
	switchMu sync.Mutex
	failed   string
	// playing is whether a newly loaded track should start. It only follows
	// the session while a track is loaded.
	playing bool
}

// New creates a controller. The queue must not be empty.
func New(engine *audio.Engine, session *audio.Session, queue *playlist.Queue, opts Options) *Controller {
	actions := make(map[rune]Action)
	for name, key := range opts.Keys.Bindings() {
		if r := []rune(key); len(r) == 1 {
			actions[r[0]] = Action(name)
		}
	}
	return &Controller{
		engine:  engine,
		session: session,
		queue:   queue,
		opts:    opts,
		actions: actions,
	}
}

// Start loads the queue's current track, paused
func (c *Controller) Start() error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	if c.queue.Len() == 0 {
		return playerrors.ErrEmptyQueue
	}
	return c.load(c.queue.Current())
}

// Run blocks until ctx is cancelled, the quit key is read or either activity
// fails. keys may be closed early; playback then continues until ctx ends.
func (c *Controller) Run(ctx context.Context, keys <-chan rune) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.tickLoop(ctx)
	})
	g.Go(func() error {
		return c.commandLoop(ctx, keys, stop)
	})
	return g.Wait()
}

func (c *Controller) tickLoop(ctx context.Context) error {
	timer := time.NewTimer(c.opts.Interval)
	defer timer.Stop()

	for {
		if err := c.engine.Update(); err != nil {
			return err
		}

		timer.Reset(c.opts.Interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if err := c.render(); err != nil {
			return err
		}
		if err := c.advanceIfEnded(); err != nil {
			return err
		}
	}
}

func (c *Controller) commandLoop(ctx context.Context, keys <-chan rune, stop context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-keys:
			if !ok {
				log.Infof("key input closed, playing until interrupted")
				keys = nil
				continue
			}
			quit, err := c.HandleKey(key)
			if err != nil {
				return err
			}
			if quit {
				stop()
				return nil
			}
		}
	}
}

// Tick runs one iteration of the tick activity without sleeping: pump the
// engine, redraw, and move on to the next track if the current one ended.
func (c *Controller) Tick() error {
	if err := c.engine.Update(); err != nil {
		return err
	}
	if err := c.render(); err != nil {
		return err
	}
	return c.advanceIfEnded()
}

func (c *Controller) advanceIfEnded() error {
	if !c.session.IsEnd() {
		return nil
	}

	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	// a command may have switched tracks since the check above
	if !c.session.IsEnd() {
		return nil
	}

	// the last track failed to open and Next cannot move past it
	track := c.queue.Next()
	if track == nil || track.Path == c.failed {
		return nil
	}
	if c.failed == "" {
		c.playing = true
		c.publish(api.EventTrackEnded, c.session.FileName())
	}

	if err := c.load(track); err != nil {
		return err
	}
	return c.resume()
}

// HandleKey runs the action bound to key. It reports quit for the quit key
// and for Ctrl-C; unbound keys are ignored.
func (c *Controller) HandleKey(key rune) (quit bool, err error) {
	if key == terminal.KeyInterrupt {
		return true, nil
	}
	action, ok := c.actions[key]
	if !ok {
		return false, nil
	}
	log.WithFields(log.Fields{"key": string(key), "action": action}).Debug("command")

	s := c.session
	switch action {
	case ActionQuit:
		return true, nil
	case ActionPlayPause:
		if s.IsPaused() {
			err = s.Play()
		} else {
			err = s.Pause()
		}
	case ActionSeekForward, ActionSeekBack:
		step := c.opts.SeekStep
		if action == ActionSeekBack {
			step = -step
		}
		var now float64
		if now, err = s.Time(); err == nil {
			err = s.SetTime(now + step)
		}
	case ActionVolumeUp:
		err = s.SetVolume(s.Volume() + c.opts.VolumeStep)
	case ActionVolumeDown:
		err = s.SetVolume(s.Volume() - c.opts.VolumeStep)
	case ActionLoop:
		err = s.SetLoop(!s.IsLoop())
	case ActionNext:
		err = c.switchTrack(c.queue.Next)
	case ActionPrevious:
		err = c.switchTrack(c.queue.Previous)
	case ActionShuffle:
		err = c.switchTrack(c.queue.Shuffle)
	}
	if err != nil {
		return false, err
	}

	c.publish(api.EventStateChange, action)
	return false, nil
}

// switchTrack moves the queue and loads the new current track, keeping the
// paused or playing state
func (c *Controller) switchTrack(move func() *api.Track) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	if c.failed == "" {
		c.playing = !c.session.IsPaused()
	}
	track := move()
	if track == nil {
		return playerrors.ErrEmptyQueue
	}
	if err := c.load(track); err != nil {
		return err
	}
	return c.resume()
}

func (c *Controller) resume() error {
	if !c.playing {
		return nil
	}
	return c.session.Play()
}

// load opens track in the session. A file the backend cannot open is
// reported and leaves the session empty, so the next tick skips past it.
func (c *Controller) load(track *api.Track) error {
	err := c.session.Load(track.Path)

	var openErr *playerrors.StreamOpenError
	if errors.As(err, &openErr) {
		log.WithFields(log.Fields{"path": track.Path}).Warnf("skipping track: %v", openErr.Err)
		c.failed = track.Path
		c.publish(api.EventError, playerrors.NewPlayerError("load", track.Path, err))
		return nil
	}
	if err != nil {
		return err
	}

	c.failed = ""
	c.publish(api.EventTrackStarted, track.Path)
	return nil
}

// State snapshots the session and queue for rendering
func (c *Controller) State() (api.PlaybackState, error) {
	now, err := c.session.Time()
	if err != nil {
		return api.PlaybackState{}, err
	}

	state := api.PlaybackState{
		FileName: c.session.FileName(),
		Time:     now,
		Duration: c.session.Duration(),
		Volume:   c.session.Volume(),
		Paused:   c.session.IsPaused(),
		Loop:     c.session.IsLoop(),
		Index:    c.queue.Index(),
		Total:    c.queue.Len(),
	}
	if track := c.queue.Current(); track != nil {
		state.Title = track.Title
		state.Artist = track.Artist
	}
	return state, nil
}

func (c *Controller) render() error {
	if c.opts.View == nil || c.opts.Out == nil {
		return nil
	}
	state, err := c.State()
	if err != nil {
		return err
	}
	return c.opts.View.Draw(c.opts.Out, state)
}

func (c *Controller) publish(typ api.EventType, payload interface{}) {
	if c.opts.Bus == nil {
		return
	}
	c.opts.Bus.Publish(api.AudioEvent{Type: typ, Payload: payload, At: time.Now()})
}
