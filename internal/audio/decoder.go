package audio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
	"github.com/samber/lo"
)

var supportedFormats = []string{"wav", "mp3", "flac", "ogg", "aac"}

// SupportedFormats returns the allow-list of extensions, without the dot
func SupportedFormats() []string {
	formats := make([]string, len(supportedFormats))
	copy(formats, supportedFormats)
	return formats
}

// Extension returns the lower-cased extension of path without the dot
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// IsSupported checks the extension of path against the allow-list
func IsSupported(path string) bool {
	return lo.Contains(supportedFormats, Extension(path))
}

// DecodeAudio decodes an audio file based on its extension
func DecodeAudio(r io.ReadSeekCloser, filePath string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := Extension(filePath)

	switch ext {
	case "mp3":
		return mp3.Decode(r)
	case "wav":
		return wav.Decode(r)
	case "flac":
		return flac.Decode(r)
	case "ogg":
		return vorbis.Decode(r)
	case "aac":
		return nil, beep.Format{}, fmt.Errorf("%w: no decoder for %s", playerrors.ErrInvalidFormat, ext)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, ext)
	}
}
