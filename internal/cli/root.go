// Package cli implements the tinyplayer command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jscyril/tinyplayer/api"
	"github.com/jscyril/tinyplayer/internal/audio"
	"github.com/jscyril/tinyplayer/internal/config"
	"github.com/jscyril/tinyplayer/internal/library"
	"github.com/jscyril/tinyplayer/internal/log"
	"github.com/jscyril/tinyplayer/internal/player"
	"github.com/jscyril/tinyplayer/internal/playlist"
	"github.com/jscyril/tinyplayer/internal/terminal"
	"github.com/jscyril/tinyplayer/internal/ui"
	"github.com/jscyril/tinyplayer/pkg/events"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Name is the binary name shown in usage messages
const Name = "tinyplayer"

// Usage is printed for a missing, extra or non-directory argument
const Usage = "[usage] " + Name + " <directory of audios>"

// newBackend builds the audio backend; tests swap it for an in-memory one
var newBackend = func(cfg config.Audio) audio.Backend {
	return audio.NewBeepBackend(cfg.SampleRate, cfg.Buffer)
}

// NewRootCmd returns the root command with its own viper instance
func NewRootCmd() *cobra.Command {
	v := viper.New()
	config.Setup(v)

	cmd := &cobra.Command{
		Use:   Name + " <directory>",
		Short: "Play every audio file in a directory from the terminal",
		Long: `tinyplayer plays the wav, mp3, flac, ogg and aac files found directly in a
directory, one after another. Keys are read one at a time, no Enter needed.`,
		Args:          validateArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := lo.Must(cmd.Flags().GetString("config"))
			if path == "" {
				path = config.GetConfigPath()
			}
			cfg, err := config.LoadOrCreate(v, path)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args[0])
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/tinyplayer/config.toml)")

	flags.IntP("volume", "V", 100, "Initial volume, 0 to 100")
	lo.Must0(v.BindPFlag(config.KeyVolume, flags.Lookup("volume")))

	flags.BoolP("loop", "L", false, "Start with the first track looping")
	lo.Must0(v.BindPFlag(config.KeyLoop, flags.Lookup("loop")))

	flags.BoolP("shuffle", "s", false, "Shuffle the playlist before playing")
	lo.Must0(v.BindPFlag(config.KeyShuffle, flags.Lookup("shuffle")))

	flags.Duration("tick", 0, "Interval between screen refreshes")
	lo.Must0(v.BindPFlag(config.KeyTickInterval, flags.Lookup("tick")))

	flags.String("log-file", "", "Write logs to this file")
	lo.Must0(v.BindPFlag(config.KeyLogFile, flags.Lookup("log-file")))

	flags.String("log-level", "", "Log level: debug, info, warn, error")
	lo.Must0(v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level")))

	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 || !library.IsDir(args[0]) {
		return &playerrors.UsageError{Msg: Usage}
	}
	return nil
}

func run(cmd *cobra.Command, cfg *config.Config, dir string) (err error) {
	logs, err := log.Setup(cfg.Logs)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracks, err := library.NewScanner(0).Resolve(ctx, dir)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return &playerrors.EmptyPlaylistError{Dir: dir}
	}
	queue := playlist.NewQueue(tracks...)
	if cfg.Playback.Shuffle {
		queue.Shuffle()
	}

	engine, err := audio.NewEngine(newBackend(cfg.Audio), cfg.Audio.MaxVoices)
	if err != nil {
		return err
	}
	session := audio.NewSession(engine)
	// sessions close before the engine they play on
	defer func() {
		err = errors.Join(err, session.Close(), engine.Shutdown())
	}()

	if err := session.SetVolume(cfg.Playback.Volume); err != nil {
		return err
	}
	if err := session.SetLoop(cfg.Playback.Loop); err != nil {
		return err
	}

	bus := events.NewEventBus(eventBuffer)
	defer func() {
		bus.Close()
		if n := bus.Dropped(); n > 0 {
			log.Warnf("%d playback events were not logged", n)
		}
	}()
	go logEvents(bus.Subscribe())

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		restore, err := terminal.MakeRaw(f)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := restore(); rerr != nil {
				log.Warnf("restore terminal: %v", rerr)
			}
		}()
	}

	out := cmd.OutOrStdout()
	width := 80
	if f, ok := out.(*os.File); ok {
		width = terminal.Width(f, width)
	}

	opts := player.OptionsFromConfig(cfg)
	opts.View = ui.NewView(width, cfg.Keys)
	opts.Out = terminal.NewLineWriter(out)
	opts.Bus = bus

	ctrl := player.New(engine, session, queue, opts)
	if err := ctrl.Start(); err != nil {
		return err
	}

	log.WithFields(log.Fields{"dir": dir, "tracks": queue.Len()}).Info("playback started")
	err = ctrl.Run(ctx, terminal.ReadKeys(ctx, in))
	_, _ = io.WriteString(opts.Out, "\n")
	return err
}

// eventBuffer is how many playback events may wait for the log writer
const eventBuffer = 64

func logEvents(ch <-chan api.AudioEvent) {
	for ev := range ch {
		entry := log.WithFields(log.Fields{"event": ev.Type.String(), "payload": ev.Payload})
		if ev.Type == api.EventError {
			entry.Warn("playback event")
			continue
		}
		entry.Debug("playback event")
	}
}
