package track

import (
	"golang.org/x/exp/maps"
)

// Kind is a track namespace.
type Kind string

const (
	Animation Kind = "animation"
	Music     Kind = "music"
)

func (k Kind) Valid() bool {
	return k == Animation || k == Music
}

// Keyframe is an animation event: a set of property values at a time.
// Easing names the curve used when interpolating towards the next keyframe.
type Keyframe struct {
	ID         string         `json:"id"`
	Time       float64        `json:"time"`
	Properties map[string]any `json:"properties"`
	Easing     string         `json:"easing,omitempty"`
}

// NoteData is the musical payload of a note.
type NoteData struct {
	Pitch    uint8   `json:"pitch"`
	Duration float64 `json:"duration"`
	Velocity uint8   `json:"velocity"`
}

// Note is a music event.
type Note struct {
	ID   string   `json:"id"`
	Time float64  `json:"time"`
	Note NoteData `json:"note"`
}

// timed is implemented by both event variants so a single sorted series type
// can hold either.
type timed[E any] interface {
	eventID() string
	at() float64
	retimed(t float64, scale float64) E
	withID(id string) E
}

func (k Keyframe) eventID() string { return k.ID }
func (k Keyframe) at() float64     { return k.Time }

func (k Keyframe) retimed(t float64, _ float64) Keyframe {
	k.Time = t
	return k
}

func (k Keyframe) withID(id string) Keyframe {
	k.ID = id
	k.Properties = maps.Clone(k.Properties)
	return k
}

func (n Note) eventID() string { return n.ID }
func (n Note) at() float64     { return n.Time }

// retimed moves the note and scales its length by the same factor so the
// note keeps its length in beats.
func (n Note) retimed(t float64, scale float64) Note {
	n.Time = t
	n.Note.Duration *= scale
	return n
}

func (n Note) withID(id string) Note {
	n.ID = id
	return n
}

// Selection is a copied time range from both namespaces. Event times are
// absolute; the paste offset is computed when pasting.
type Selection struct {
	StartTime     float64               `json:"startTime"`
	EndTime       float64               `json:"endTime"`
	AnimationData map[string][]Keyframe `json:"animationData"`
	MusicData     map[string][]Note     `json:"musicData"`
}

// Count returns how many events the selection holds.
func (s Selection) Count() int {
	n := 0
	for _, kfs := range s.AnimationData {
		n += len(kfs)
	}
	for _, notes := range s.MusicData {
		n += len(notes)
	}
	return n
}

// PasteResult describes the events created by a paste.
type PasteResult struct {
	TargetTime    float64
	TimeOffset    float64
	AnimationData map[string][]Keyframe
	MusicData     map[string][]Note
}
