package playlist

import (
	"sync"

	"github.com/jscyril/tinyplayer/api"
	"github.com/samber/lo"
	"github.com/samber/lo/mutable"
)

// Queue is the ordered track list with a cursor. Moving the cursor clamps at
// both ends; it never wraps around.
type Queue struct {
	tracks []*api.Track
	index  int
	mu     sync.RWMutex
}

// NewQueue creates a queue over a copy of tracks, positioned on the first
func NewQueue(tracks ...*api.Track) *Queue {
	q := &Queue{tracks: make([]*api.Track, len(tracks))}
	copy(q.tracks, tracks)
	return q
}

// Current returns the current track, or nil for an empty queue
func (q *Queue) Current() *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.tracks) == 0 {
		return nil
	}
	return q.tracks[q.index]
}

// Next moves to the next track, staying on the last one
func (q *Queue) Next() *api.Track {
	return q.move(1)
}

// Previous moves to the previous track, staying on the first one
func (q *Queue) Previous() *api.Track {
	return q.move(-1)
}

func (q *Queue) move(step int) *api.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}
	q.index = lo.Clamp(q.index+step, 0, len(q.tracks)-1)
	return q.tracks[q.index]
}

// Shuffle reorders the whole queue randomly and rewinds to the first track
func (q *Queue) Shuffle() *api.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}
	mutable.Shuffle(q.tracks)
	q.index = 0
	return q.tracks[0]
}

// Len returns the number of tracks in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Index returns the current index
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

