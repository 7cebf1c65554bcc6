package library

import (
	"path/filepath"

	"github.com/dhowden/tag"
	"github.com/jscyril/tinyplayer/api"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	"github.com/jscyril/tinyplayer/internal/log"
)

// MetadataReader extracts tag metadata from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read returns the track at filePath. Files without readable tags still
// produce a track titled after the file name.
func (r *MetadataReader) Read(filePath string) *api.Track {
	track := &api.Track{
		Path:  filePath,
		Title: filepath.Base(filePath),
	}

	file, err := filesystem.API().Open(filePath)
	if err != nil {
		log.Debugf("open %s for tags: %v", filePath, err)
		return track
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		log.Debugf("no tags in %s: %v", filePath, err)
		return track
	}

	track.Title = getOrDefault(metadata.Title(), track.Title)
	track.Artist = metadata.Artist()
	track.Album = metadata.Album()
	return track
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
