// Package filesystem is the swappable filesystem used for directory
// resolution, log files and configuration.
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active filesystem
func API() afero.Afero {
	return backend
}

// SetOsFs restores the operating system filesystem
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs switches to an in-memory filesystem for tests
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}
