// Package terminal puts stdin into single-key mode and reads keys from it.
package terminal

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/jscyril/tinyplayer/internal/log"
	"golang.org/x/term"
)

// KeyInterrupt is what Ctrl-C reads as once the terminal is raw
const KeyInterrupt = '\x03'

// MakeRaw switches f to raw mode when it is a terminal. The returned restore
// func is always safe to call; for a pipe or file it does nothing.
func MakeRaw(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		log.Infof("stdin is not a terminal, reading keys as plain bytes")
		return func() error { return nil }, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error {
		return term.Restore(fd, state)
	}, nil
}

// Width returns the column count of f, or fallback if it cannot be queried
func Width(f *os.File, fallback int) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// ReadKeys delivers one rune per keypress until r fails or ctx is done. The
// channel is closed when reading stops. A blocked read on r is not
// interrupted by ctx.
func ReadKeys(ctx context.Context, r io.Reader) <-chan rune {
	keys := make(chan rune)
	go func() {
		defer close(keys)
		br := bufio.NewReader(r)
		for {
			key, _, err := br.ReadRune()
			if err != nil {
				if err != io.EOF {
					log.Warnf("key reader stopped: %v", err)
				}
				return
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}

// lineWriter turns \n into \r\n, which raw mode no longer does for us
type lineWriter struct {
	w io.Writer
}

// NewLineWriter wraps w so every newline also returns the carriage
func NewLineWriter(w io.Writer) io.Writer {
	return &lineWriter{w: w}
}

func (l *lineWriter) Write(p []byte) (int, error) {
	if _, err := l.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
