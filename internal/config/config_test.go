package config

import (
	"testing"
	"time"

	"github.com/jscyril/tinyplayer/internal/filesystem"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	Convey("GetDefaultConfig", t, func() {
		cfg := GetDefaultConfig()
		So(cfg.Playback.TickInterval, ShouldEqual, 10*time.Millisecond)
		So(cfg.Playback.SeekStep, ShouldEqual, 5)
		So(cfg.Playback.VolumeStep, ShouldEqual, 2)
		So(cfg.Playback.Volume, ShouldEqual, 100)
		So(cfg.Audio.MaxVoices, ShouldEqual, 512)
		So(cfg.Keys.PlayPause, ShouldEqual, " ")
		So(cfg.Keys.Quit, ShouldEqual, "q")
		So(cfg.Validate(), ShouldBeNil)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero tick", func(c *Config) { c.Playback.TickInterval = 0 }, true},
		{"negative seek", func(c *Config) { c.Playback.SeekStep = -1 }, true},
		{"volume above range", func(c *Config) { c.Playback.Volume = 101 }, true},
		{"volume below range", func(c *Config) { c.Playback.Volume = -1 }, true},
		{"zero volume step", func(c *Config) { c.Playback.VolumeStep = 0 }, true},
		{"no voices", func(c *Config) { c.Audio.MaxVoices = 0 }, true},
		{"silly sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, true},
		{"empty key", func(c *Config) { c.Keys.Next = "" }, true},
		{"long key", func(c *Config) { c.Keys.Next = "nn" }, true},
		{"duplicate key", func(c *Config) { c.Keys.Next = "q" }, true},
		{"rebound key", func(c *Config) { c.Keys.Next = ">" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		v := viper.New()
		Setup(v)

		Convey("A missing file yields defaults", func() {
			cfg, err := LoadConfig(v, "/cfg/missing.toml")
			So(err, ShouldBeNil)
			So(cfg.Playback.Volume, ShouldEqual, 100)
			So(cfg.Playback.TickInterval, ShouldEqual, 10*time.Millisecond)
		})

		Convey("A TOML file overrides defaults", func() {
			content := `
[playback]
tick_interval = "20ms"
volume = 40
loop = true

[keys]
next = ">"
`
			So(filesystem.API().WriteFile("/cfg/config.toml", []byte(content), 0o644), ShouldBeNil)

			cfg, err := LoadConfig(v, "/cfg/config.toml")
			So(err, ShouldBeNil)
			So(cfg.Playback.TickInterval, ShouldEqual, 20*time.Millisecond)
			So(cfg.Playback.Volume, ShouldEqual, 40)
			So(cfg.Playback.Loop, ShouldBeTrue)
			So(cfg.Keys.Next, ShouldEqual, ">")
			So(cfg.Keys.Previous, ShouldEqual, "p")
		})

		Convey("An invalid file is rejected", func() {
			So(filesystem.API().WriteFile("/cfg/bad.toml", []byte("[playback]\nvolume = 400\n"), 0o644), ShouldBeNil)

			_, err := LoadConfig(v, "/cfg/bad.toml")
			So(err, ShouldNotBeNil)
		})

		Convey("Environment overrides the file", func() {
			t.Setenv("TINYPLAYER_PLAYBACK_VOLUME", "7")

			cfg, err := LoadConfig(v, "")
			So(err, ShouldBeNil)
			So(cfg.Playback.Volume, ShouldEqual, 7)
		})

		Convey("LoadOrCreate writes defaults that load back", func() {
			cfg, err := LoadOrCreate(v, "/cfg/new/config.toml")
			So(err, ShouldBeNil)
			So(cfg.Audio.Buffer, ShouldEqual, 100*time.Millisecond)

			exists, err := filesystem.API().Exists("/cfg/new/config.toml")
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)
		})

		Reset(filesystem.SetOsFs)
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TINYPLAYER_CONFIG", "/tmp/custom.toml")
	if got := GetConfigPath(); got != "/tmp/custom.toml" {
		t.Errorf("GetConfigPath() = %q, want /tmp/custom.toml", got)
	}

	t.Setenv("TINYPLAYER_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := GetConfigPath(); got != "/xdg/tinyplayer/config.toml" {
		t.Errorf("GetConfigPath() = %q, want /xdg/tinyplayer/config.toml", got)
	}
}
