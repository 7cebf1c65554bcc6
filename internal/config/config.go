package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TINYPLAYER_PLAYBACK_VOLUME
const EnvPrefix = "TINYPLAYER"

// Configuration keys
const (
	KeyTickInterval = "playback.tick_interval"
	KeySeekStep     = "playback.seek_step"
	KeyVolumeStep   = "playback.volume_step"
	KeyVolume       = "playback.volume"
	KeyLoop         = "playback.loop"
	KeyShuffle      = "playback.shuffle"

	KeyMaxVoices  = "audio.max_voices"
	KeySampleRate = "audio.sample_rate"
	KeyBuffer     = "audio.buffer"

	KeyLogFile  = "logs.file"
	KeyLogLevel = "logs.level"
	KeyLogJSON  = "logs.json"
)

// Config holds application configuration
type Config struct {
	Playback Playback `mapstructure:"playback"`
	Audio    Audio    `mapstructure:"audio"`
	Logs     Logs     `mapstructure:"logs"`
	Keys     KeyMap   `mapstructure:"keys"`
}

// Playback configures the control loop and the initial session state
type Playback struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	SeekStep     float64       `mapstructure:"seek_step"`
	VolumeStep   int           `mapstructure:"volume_step"`
	Volume       int           `mapstructure:"volume"`
	Loop         bool          `mapstructure:"loop"`
	Shuffle      bool          `mapstructure:"shuffle"`
}

// Audio configures the backend
type Audio struct {
	MaxVoices  int           `mapstructure:"max_voices"`
	SampleRate int           `mapstructure:"sample_rate"`
	Buffer     time.Duration `mapstructure:"buffer"`
}

// Logs configures the log file. An empty File disables logging.
type Logs struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// KeyMap defines keyboard shortcuts, one key each
type KeyMap struct {
	PlayPause   string `mapstructure:"play_pause" toml:"play_pause"`
	SeekForward string `mapstructure:"seek_forward" toml:"seek_forward"`
	SeekBack    string `mapstructure:"seek_back" toml:"seek_back"`
	VolumeUp    string `mapstructure:"volume_up" toml:"volume_up"`
	VolumeDown  string `mapstructure:"volume_down" toml:"volume_down"`
	Loop        string `mapstructure:"loop" toml:"loop"`
	Next        string `mapstructure:"next" toml:"next"`
	Previous    string `mapstructure:"previous" toml:"previous"`
	Shuffle     string `mapstructure:"shuffle" toml:"shuffle"`
	Quit        string `mapstructure:"quit" toml:"quit"`
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Playback: Playback{
			TickInterval: 10 * time.Millisecond,
			SeekStep:     5,
			VolumeStep:   2,
			Volume:       100,
		},
		Audio: Audio{
			MaxVoices:  512,
			SampleRate: 44100,
			Buffer:     100 * time.Millisecond,
		},
		Logs: Logs{
			Level: "info",
		},
		Keys: KeyMap{
			PlayPause:   " ",
			SeekForward: "l",
			SeekBack:    "h",
			VolumeUp:    "k",
			VolumeDown:  "j",
			Loop:        "c",
			Next:        "n",
			Previous:    "p",
			Shuffle:     "a",
			Quit:        "q",
		},
	}
}

// settings flattens a config into viper keys
func (c *Config) settings() map[string]interface{} {
	return map[string]interface{}{
		KeyTickInterval: c.Playback.TickInterval,
		KeySeekStep:     c.Playback.SeekStep,
		KeyVolumeStep:   c.Playback.VolumeStep,
		KeyVolume:       c.Playback.Volume,
		KeyLoop:         c.Playback.Loop,
		KeyShuffle:      c.Playback.Shuffle,
		KeyMaxVoices:    c.Audio.MaxVoices,
		KeySampleRate:   c.Audio.SampleRate,
		KeyBuffer:       c.Audio.Buffer,
		KeyLogFile:      c.Logs.File,
		KeyLogLevel:     c.Logs.Level,
		KeyLogJSON:      c.Logs.JSON,

		"keys.play_pause":   c.Keys.PlayPause,
		"keys.seek_forward": c.Keys.SeekForward,
		"keys.seek_back":    c.Keys.SeekBack,
		"keys.volume_up":    c.Keys.VolumeUp,
		"keys.volume_down":  c.Keys.VolumeDown,
		"keys.loop":         c.Keys.Loop,
		"keys.next":         c.Keys.Next,
		"keys.previous":     c.Keys.Previous,
		"keys.shuffle":      c.Keys.Shuffle,
		"keys.quit":         c.Keys.Quit,
	}
}

// Setup registers defaults and environment overrides on v
func Setup(v *viper.Viper) {
	v.SetFs(filesystem.API().Fs)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range GetDefaultConfig().settings() {
		v.SetDefault(key, value)
	}
}

// LoadConfig reads the config file at path (if any) into v and decodes the
// merged result. A missing file yields defaults.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	// .env is optional; only the working directory is consulted
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		exists, err := filesystem.API().Exists(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if exists {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes configuration to path as TOML
func SaveConfig(config *Config, path string) error {
	fs := filesystem.API()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := map[string]interface{}{
		"playback": map[string]interface{}{
			"tick_interval": config.Playback.TickInterval.String(),
			"seek_step":     config.Playback.SeekStep,
			"volume_step":   config.Playback.VolumeStep,
			"volume":        config.Playback.Volume,
			"loop":          config.Playback.Loop,
			"shuffle":       config.Playback.Shuffle,
		},
		"audio": map[string]interface{}{
			"max_voices":  config.Audio.MaxVoices,
			"sample_rate": config.Audio.SampleRate,
			"buffer":      config.Audio.Buffer.String(),
		},
		"logs": map[string]interface{}{
			"file":  config.Logs.File,
			"level": config.Logs.Level,
			"json":  config.Logs.JSON,
		},
		"keys": config.Keys,
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or writes the defaults there if the
// file does not exist yet
func LoadOrCreate(v *viper.Viper, path string) (*Config, error) {
	exists, err := filesystem.API().Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		if err := SaveConfig(GetDefaultConfig(), path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return LoadConfig(v, path)
}

// Validate checks config values are within acceptable bounds
func (c *Config) Validate() error {
	if c.Playback.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.Playback.TickInterval)
	}
	if c.Playback.SeekStep <= 0 {
		return fmt.Errorf("seek step must be positive, got %g", c.Playback.SeekStep)
	}
	if c.Playback.VolumeStep <= 0 || c.Playback.VolumeStep > 100 {
		return fmt.Errorf("volume step must be in 1..100, got %d", c.Playback.VolumeStep)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 100 {
		return fmt.Errorf("volume must be in 0..100, got %d", c.Playback.Volume)
	}
	if c.Audio.MaxVoices <= 0 {
		return fmt.Errorf("max voices must be positive, got %d", c.Audio.MaxVoices)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("unsupported sample rate %d", c.Audio.SampleRate)
	}
	if c.Audio.Buffer <= 0 {
		return fmt.Errorf("speaker buffer must be positive, got %s", c.Audio.Buffer)
	}
	return c.Keys.Validate()
}

// Validate rejects empty, multi-character and duplicated bindings
func (k KeyMap) Validate() error {
	seen := make(map[string]string)
	for name, key := range k.Bindings() {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("key binding %s must be a single key, got %q", name, key)
		}
		if other, dup := seen[key]; dup {
			return fmt.Errorf("key %q bound to both %s and %s", key, other, name)
		}
		seen[key] = name
	}
	return nil
}

// Bindings maps action names to keys
func (k KeyMap) Bindings() map[string]string {
	return map[string]string{
		"play_pause":   k.PlayPause,
		"seek_forward": k.SeekForward,
		"seek_back":    k.SeekBack,
		"volume_up":    k.VolumeUp,
		"volume_down":  k.VolumeDown,
		"loop":         k.Loop,
		"next":         k.Next,
		"previous":     k.Previous,
		"shuffle":      k.Shuffle,
		"quit":         k.Quit,
	}
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("TINYPLAYER_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tinyplayer", "config.toml")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}

	return filepath.Join(home, ".config", "tinyplayer", "config.toml")
}
