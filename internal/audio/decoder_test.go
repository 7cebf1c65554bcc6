package audio

import (
	"bytes"
	"errors"
	"testing"

	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
)

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"song.wav", true},
		{"song.flac", true},
		{"song.ogg", true},
		{"song.aac", true},
		{"/music/A.WAV", true},
		{"Track.Mp3", true},
		{"notes.txt", false},
		{"video.mp4", false},
		{"mp3", false},
		{"archive.mp3.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSupported(tt.path); got != tt.want {
				t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSupportedFormats_Copy(t *testing.T) {
	formats := SupportedFormats()
	formats[0] = "exe"
	if IsSupported("virus.exe") {
		t.Error("SupportedFormats must return a copy")
	}
}

func TestDecodeAudio_Unsupported(t *testing.T) {
	tests := []string{"clip.aac", "notes.txt"}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, _, err := DecodeAudio(nopSeekCloser{bytes.NewReader(nil)}, path)
			if !errors.Is(err, playerrors.ErrInvalidFormat) {
				t.Errorf("DecodeAudio(%s) error = %v, want ErrInvalidFormat", path, err)
			}
		})
	}
}

func TestDecodeAudio_CorruptWav(t *testing.T) {
	_, _, err := DecodeAudio(nopSeekCloser{bytes.NewReader([]byte("not a riff header"))}, "bad.wav")
	if err == nil {
		t.Error("Expected error decoding garbage as wav")
	}
}
