package track

import "github.com/robmorgan/cadence/event"

type TrackCreated struct {
	TrackID   string
	TrackKind Kind
}

type TrackRemoved struct {
	TrackID   string
	TrackKind Kind
}

type KeyframeAdded struct {
	TrackID  string
	Keyframe Keyframe
}

type NoteAdded struct {
	TrackID string
	Note    Note
}

type KeyframeRemoved struct {
	TrackID string
	EventID string
}

type NoteRemoved struct {
	TrackID string
	EventID string
}

// TracksRetimed is published after a rescale or shift moved events.
type TracksRetimed struct {
	Op    string
	Count int
}

type SelectionCopied struct {
	Selection Selection
}

type SelectionPasted struct {
	TargetTime float64
	Selection  Selection
	TimeOffset float64
	Created    int
}

func (TrackCreated) Kind() event.Kind    { return event.TrackCreated }
func (TrackRemoved) Kind() event.Kind    { return event.TrackRemoved }
func (KeyframeAdded) Kind() event.Kind   { return event.KeyframeAdded }
func (NoteAdded) Kind() event.Kind       { return event.NoteAdded }
func (KeyframeRemoved) Kind() event.Kind { return event.KeyframeRemoved }
func (NoteRemoved) Kind() event.Kind     { return event.NoteRemoved }
func (TracksRetimed) Kind() event.Kind   { return event.TracksRetimed }
func (SelectionCopied) Kind() event.Kind { return event.SelectionCopied }
func (SelectionPasted) Kind() event.Kind { return event.SelectionPasted }
