package track

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robmorgan/cadence/effect"
	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

var (
	ErrInvalidTime  = errors.New("invalid time")
	ErrInvalidTrack = errors.New("invalid track")
	ErrInvalidRange = errors.New("invalid time range")
	ErrInvalidScale = errors.New("invalid scale factor")
	ErrNotFound     = errors.New("not found")
)

// Grid supplies the converter used for snap-to-grid insertion.
type Grid interface {
	Converter() rhythm.Converter
}

type discard struct{}

func (discard) Publish(event.Event) {}

// Manager owns the animation and music tracks. It is the only thing that
// mutates track contents.
type Manager struct {
	mu          sync.RWMutex
	animation   map[string]*series[Keyframe]
	music       map[string]*series[Note]
	grid        Grid
	snap        bool
	subdivision float64
	newID       func() string
	pub         event.Publisher
	log         *logrus.Entry
}

// NewManager returns an empty track manager. pub may be nil.
func NewManager(grid Grid, pub event.Publisher) *Manager {
	if pub == nil {
		pub = discard{}
	}
	return &Manager{
		animation:   make(map[string]*series[Keyframe]),
		music:       make(map[string]*series[Note]),
		grid:        grid,
		subdivision: rhythm.DefaultSubdivision,
		newID:       uuid.NewString,
		pub:         pub,
		log:         logger.GetComponentLogger("track"),
	}
}

// SetSnap enables or disables quantizing inserted events to the grid.
func (m *Manager) SetSnap(enabled bool, subdivision float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = enabled
	if subdivision > 0 && scale.Finite(subdivision) {
		m.subdivision = subdivision
	}
}

// Snap returns the snap-to-grid setting.
func (m *Manager) Snap() (bool, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap, m.subdivision
}

func (m *Manager) publish(events []event.Event) {
	for _, e := range events {
		m.pub.Publish(e)
	}
}

// CreateTrack creates an empty track. It is a no-op if the track exists.
func (m *Manager) CreateTrack(id string, kind Kind) error {
	if id == "" || !kind.Valid() {
		return fmt.Errorf("%w: id=%q kind=%q", ErrInvalidTrack, id, kind)
	}

	m.mu.Lock()
	created := m.ensureLocked(id, kind)
	m.mu.Unlock()

	if created != nil {
		m.publish([]event.Event{created})
	}
	return nil
}

// ensureLocked creates the track if needed and returns the creation event.
func (m *Manager) ensureLocked(id string, kind Kind) event.Event {
	switch kind {
	case Animation:
		if _, ok := m.animation[id]; ok {
			return nil
		}
		m.animation[id] = newSeries[Keyframe](id)
	case Music:
		if _, ok := m.music[id]; ok {
			return nil
		}
		m.music[id] = newSeries[Note](id)
	default:
		return nil
	}
	m.log.WithFields(logrus.Fields{"track_id": id, "kind": kind}).Debug("track created")
	return TrackCreated{TrackID: id, TrackKind: kind}
}

// RemoveTrack deletes a track and all of its events.
func (m *Manager) RemoveTrack(id string, kind Kind) error {
	m.mu.Lock()
	var ok bool
	switch kind {
	case Animation:
		_, ok = m.animation[id]
		delete(m.animation, id)
	case Music:
		_, ok = m.music[id]
		delete(m.music, id)
	}
	m.mu.Unlock()

	if !ok {
		m.log.WithFields(logrus.Fields{"track_id": id, "kind": kind}).Warn("remove of unknown track ignored")
		return fmt.Errorf("%w: %s track %q", ErrNotFound, kind, id)
	}
	m.publish([]event.Event{TrackRemoved{TrackID: id, TrackKind: kind}})
	return nil
}

// HasTrack reports whether the track exists.
func (m *Manager) HasTrack(id string, kind Kind) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch kind {
	case Animation:
		_, ok := m.animation[id]
		return ok
	case Music:
		_, ok := m.music[id]
		return ok
	}
	return false
}

// TrackIDs lists the tracks of one kind in lexical order.
func (m *Manager) TrackIDs(kind Kind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	switch kind {
	case Animation:
		for id := range m.animation {
			ids = append(ids, id)
		}
	case Music:
		for id := range m.music {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) placeLocked(t float64) float64 {
	if m.snap && m.grid != nil {
		return m.grid.Converter().Quantize(t, m.subdivision)
	}
	return t
}

func validTime(t float64) error {
	if !scale.Finite(t) || t < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTime, t)
	}
	return nil
}

// AddKeyframe inserts a keyframe, creating the track if needed, and returns it
// with its generated id.
func (m *Manager) AddKeyframe(trackID string, t float64, properties map[string]any) (Keyframe, error) {
	return m.InsertKeyframe(trackID, Keyframe{Time: t, Properties: properties})
}

// InsertKeyframe is AddKeyframe for a fully populated keyframe. Any id on kf
// is replaced.
func (m *Manager) InsertKeyframe(trackID string, kf Keyframe) (Keyframe, error) {
	if trackID == "" {
		return Keyframe{}, fmt.Errorf("%w: empty track id", ErrInvalidTrack)
	}
	if err := validTime(kf.Time); err != nil {
		return Keyframe{}, err
	}

	m.mu.Lock()
	var pending []event.Event
	if created := m.ensureLocked(trackID, Animation); created != nil {
		pending = append(pending, created)
	}
	kf = kf.withID(m.newID())
	kf.Time = m.placeLocked(kf.Time)
	if kf.Properties == nil {
		kf.Properties = map[string]any{}
	}
	m.animation[trackID].insert(kf)
	m.mu.Unlock()

	// callers get their own copy of the stored properties
	kf.Properties = maps.Clone(kf.Properties)
	m.log.WithFields(logrus.Fields{"track_id": trackID, "id": kf.ID, "time": kf.Time}).Debug("keyframe added")
	m.publish(append(pending, KeyframeAdded{TrackID: trackID, Keyframe: kf}))
	return kf, nil
}

// AddNote inserts a note, creating the track if needed, and returns it with
// its generated id.
func (m *Manager) AddNote(trackID string, t float64, note NoteData) (Note, error) {
	if trackID == "" {
		return Note{}, fmt.Errorf("%w: empty track id", ErrInvalidTrack)
	}
	if err := validTime(t); err != nil {
		return Note{}, err
	}
	if !scale.Finite(note.Duration) || note.Duration < 0 {
		return Note{}, fmt.Errorf("%w: note duration %v", ErrInvalidTime, note.Duration)
	}

	m.mu.Lock()
	var pending []event.Event
	if created := m.ensureLocked(trackID, Music); created != nil {
		pending = append(pending, created)
	}
	n := Note{ID: m.newID(), Time: m.placeLocked(t), Note: note}
	m.music[trackID].insert(n)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"track_id": trackID, "id": n.ID, "time": n.Time, "pitch": note.Pitch}).Debug("note added")
	m.publish(append(pending, NoteAdded{TrackID: trackID, Note: n}))
	return n, nil
}

// RemoveKeyframe removes a keyframe by id. Unknown ids are reported and leave
// the track untouched.
func (m *Manager) RemoveKeyframe(trackID, id string) error {
	m.mu.Lock()
	var ok bool
	if s, exists := m.animation[trackID]; exists {
		_, ok = s.remove(id)
	}
	m.mu.Unlock()

	if !ok {
		m.log.WithFields(logrus.Fields{"track_id": trackID, "id": id}).Warn("remove of unknown keyframe ignored")
		return fmt.Errorf("%w: keyframe %q in track %q", ErrNotFound, id, trackID)
	}
	m.publish([]event.Event{KeyframeRemoved{TrackID: trackID, EventID: id}})
	return nil
}

// RemoveNote removes a note by id. Unknown ids are reported and leave the
// track untouched.
func (m *Manager) RemoveNote(trackID, id string) error {
	m.mu.Lock()
	var ok bool
	if s, exists := m.music[trackID]; exists {
		_, ok = s.remove(id)
	}
	m.mu.Unlock()

	if !ok {
		m.log.WithFields(logrus.Fields{"track_id": trackID, "id": id}).Warn("remove of unknown note ignored")
		return fmt.Errorf("%w: note %q in track %q", ErrNotFound, id, trackID)
	}
	m.publish([]event.Event{NoteRemoved{TrackID: trackID, EventID: id}})
	return nil
}

// Keyframes returns a copy of a track's keyframes in time order.
func (m *Manager) Keyframes(trackID string) []Keyframe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.animation[trackID]
	if !ok {
		return nil
	}
	kfs := s.snapshot()
	for i := range kfs {
		kfs[i].Properties = maps.Clone(kfs[i].Properties)
	}
	return kfs
}

// Notes returns a copy of a track's notes in time order.
func (m *Manager) Notes(trackID string) []Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.music[trackID]; ok {
		return s.snapshot()
	}
	return nil
}

// MaxTime returns the latest event time across both namespaces, or 0.
func (m *Manager) MaxTime() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	max := 0.0
	for _, s := range m.animation {
		if last, ok := s.last(); ok && last.Time > max {
			max = last.Time
		}
	}
	for _, s := range m.music {
		if last, ok := s.last(); ok && last.Time > max {
			max = last.Time
		}
	}
	return max
}

// Evaluate returns the interpolated keyframe properties of a track at t.
func (m *Manager) Evaluate(trackID string, t float64) (map[string]any, bool) {
	m.mu.RLock()
	var kfs []Keyframe
	if s, ok := m.animation[trackID]; ok {
		kfs = s.snapshot()
	}
	m.mu.RUnlock()

	if len(kfs) == 0 {
		return nil, false
	}
	if t <= kfs[0].Time {
		return maps.Clone(kfs[0].Properties), true
	}
	last := kfs[len(kfs)-1]
	if t >= last.Time {
		return maps.Clone(last.Properties), true
	}

	for i := 0; i < len(kfs)-1; i++ {
		a, b := kfs[i], kfs[i+1]
		if t >= a.Time && t < b.Time {
			progress := scale.ToUnitClamp(a.Time, b.Time)(t)
			return effect.Interpolate(a.Properties, b.Properties, progress, a.Easing), true
		}
	}
	return maps.Clone(last.Properties), true
}
