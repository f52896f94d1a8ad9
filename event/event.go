package event

// Kind identifies a notification. Every payload type reports exactly one Kind.
type Kind uint8

const (
	TimeChanged Kind = iota + 1
	TimeUpdate
	TempoChanged
	TimeSignatureChanged
	DurationChanged
	BeatMarkersUpdated
	KeyframeAdded
	NoteAdded
	KeyframeRemoved
	NoteRemoved
	TrackCreated
	TrackRemoved
	TracksRetimed
	PlaybackStarted
	PlaybackPaused
	PlaybackStopped
	PlaybackLooped
	TransportDegraded
	SelectionCopied
	SelectionPasted
	ValidationFailed
)

var kindNames = map[Kind]string{
	TimeChanged:          "time_changed",
	TimeUpdate:           "time_update",
	TempoChanged:         "tempo_changed",
	TimeSignatureChanged: "time_signature_changed",
	DurationChanged:      "duration_changed",
	BeatMarkersUpdated:   "beat_markers_updated",
	KeyframeAdded:        "keyframe_added",
	NoteAdded:            "note_added",
	KeyframeRemoved:      "keyframe_removed",
	NoteRemoved:          "note_removed",
	TrackCreated:         "track_created",
	TrackRemoved:         "track_removed",
	TracksRetimed:        "tracks_retimed",
	PlaybackStarted:      "playback_started",
	PlaybackPaused:       "playback_paused",
	PlaybackStopped:      "playback_stopped",
	PlaybackLooped:       "playback_looped",
	TransportDegraded:    "transport_degraded",
	SelectionCopied:      "selection_copied",
	SelectionPasted:      "selection_pasted",
	ValidationFailed:     "validation_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a notification payload. Payload types live next to the component
// that emits them.
type Event interface {
	Kind() Kind
}

// Publisher is what components need to emit notifications.
type Publisher interface {
	Publish(e Event)
}

// Rejected reports a validation failure that left state untouched.
type Rejected struct {
	Op  string
	Err error
}

func (Rejected) Kind() Kind { return ValidationFailed }
