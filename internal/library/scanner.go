package library

import (
	"context"
	"path/filepath"

	"github.com/jscyril/tinyplayer/api"
	"github.com/jscyril/tinyplayer/internal/audio"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	"github.com/jscyril/tinyplayer/internal/log"
	playerrors "github.com/jscyril/tinyplayer/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Scanner resolves a directory into a playlist, reading tags with a bounded
// worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new directory scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4 // Default worker count
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// List returns the supported regular files directly inside dir, in the order
// the filesystem enumerates them. Subdirectories are not descended into.
func (s *Scanner) List(dir string) ([]string, error) {
	fs := filesystem.API()

	f, err := fs.Open(dir)
	if err != nil {
		return nil, &playerrors.ScanError{Path: dir, Err: err}
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, &playerrors.ScanError{Path: dir, Err: err}
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if !audio.IsSupported(p) {
			continue
		}
		// Stat follows symlinks
		info, err := fs.Stat(p)
		if err != nil {
			log.Warnf("skipping %s: %v", p, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Resolve lists dir and reads the tags of every file found. Tracks keep the
// enumeration order of List. An empty result is not an error.
func (s *Scanner) Resolve(ctx context.Context, dir string) ([]*api.Track, error) {
	paths, err := s.List(dir)
	if err != nil {
		return nil, err
	}

	tracks := make([]*api.Track, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tracks[i] = s.metaReader.Read(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &playerrors.ScanError{Path: dir, Err: err}
	}

	log.WithFields(log.Fields{"dir": dir, "tracks": len(tracks)}).Info("directory resolved")
	return tracks, nil
}

// IsDir reports whether path names an existing directory
func IsDir(path string) bool {
	ok, err := filesystem.API().DirExists(path)
	return err == nil && ok
}
