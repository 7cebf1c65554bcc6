package api

import "time"

// Track is one playable file of the directory playlist
type Track struct {
	Path   string `json:"path"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// PlaybackState is a point-in-time snapshot used for rendering
type PlaybackState struct {
	FileName string  `json:"file_name"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Volume   int     `json:"volume"`
	Paused   bool    `json:"paused"`
	Loop     bool    `json:"loop"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
}

// EventType identifies the kind of playback event
type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackEnded
	EventStateChange
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventStateChange:
		return "state_change"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// AudioEvent is published by the control loop
type AudioEvent struct {
	Type    EventType
	Payload interface{}
	At      time.Time
}
