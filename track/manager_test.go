package track

import (
	"fmt"
	"sync"
	"testing"

	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGrid struct {
	conv rhythm.Converter
}

func (g fixedGrid) Converter() rhythm.Converter { return g.conv }

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Kind
	for _, e := range r.events {
		out = append(out, e.Kind())
	}
	return out
}

func newTestManager() (*Manager, *recorder) {
	rec := &recorder{}
	m := NewManager(fixedGrid{conv: rhythm.NewConverter(120, rhythm.CommonTime)}, rec)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return m, rec
}

func times[E timed[E]](events []E) []float64 {
	out := make([]float64, 0, len(events))
	for _, e := range events {
		out = append(out, e.at())
	}
	return out
}

func TestAddKeyframeKeepsOrder(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	for _, at := range []float64{3, 1, 2, 1} {
		_, err := m.AddKeyframe("light", at, map[string]any{"x": at})
		require.NoError(t, err)
	}

	kfs := m.Keyframes("light")
	require.Equal(t, []float64{1, 1, 2, 3}, times(kfs))
	// equal times keep insertion order
	assert.Equal(t, "id-2", kfs[0].ID)
	assert.Equal(t, "id-4", kfs[1].ID)

	kinds := rec.kinds()
	require.Len(t, kinds, 5)
	assert.Equal(t, event.TrackCreated, kinds[0])
	assert.Equal(t, event.KeyframeAdded, kinds[1])
}

func TestAddRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	_, err := m.AddKeyframe("light", -1, nil)
	require.ErrorIs(t, err, ErrInvalidTime)

	_, err = m.AddKeyframe("", 1, nil)
	require.ErrorIs(t, err, ErrInvalidTrack)

	_, err = m.AddNote("piano", 1, NoteData{Pitch: 60, Duration: -0.5})
	require.ErrorIs(t, err, ErrInvalidTime)

	assert.False(t, m.HasTrack("light", Animation))
	assert.False(t, m.HasTrack("piano", Music))
	assert.Empty(t, rec.kinds())
}

func TestNamespacesAreSeparate(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	_, err := m.AddKeyframe("main", 1, nil)
	require.NoError(t, err)
	_, err = m.AddNote("main", 2, NoteData{Pitch: 60, Duration: 0.5, Velocity: 100})
	require.NoError(t, err)

	assert.Len(t, m.Keyframes("main"), 1)
	assert.Len(t, m.Notes("main"), 1)
	assert.Equal(t, []string{"main"}, m.TrackIDs(Animation))
	assert.Equal(t, []string{"main"}, m.TrackIDs(Music))
}

func TestSnapQuantizesInsertions(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.SetSnap(true, 0.25)

	kf, err := m.AddKeyframe("light", 0.3, nil)
	require.NoError(t, err)
	// 0.3s at 120 BPM is 0.6 beats, nearest sixteenth is 0.5 beats
	assert.InDelta(t, 0.25, kf.Time, 1e-9)

	n, err := m.AddNote("piano", 0.94, NoteData{Pitch: 64, Duration: 0.25})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, n.Time, 1e-9)
}

func TestRemoveUnknownEvent(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	kf, err := m.AddKeyframe("light", 1, nil)
	require.NoError(t, err)

	require.ErrorIs(t, m.RemoveKeyframe("light", "missing"), ErrNotFound)
	require.ErrorIs(t, m.RemoveNote("light", kf.ID), ErrNotFound)
	require.Len(t, m.Keyframes("light"), 1)

	require.NoError(t, m.RemoveKeyframe("light", kf.ID))
	assert.Empty(t, m.Keyframes("light"))
	assert.Equal(t, event.KeyframeRemoved, rec.kinds()[len(rec.kinds())-1])
}

func TestRemoveTrack(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	require.NoError(t, m.CreateTrack("piano", Music))
	require.True(t, m.HasTrack("piano", Music))

	require.NoError(t, m.RemoveTrack("piano", Music))
	assert.False(t, m.HasTrack("piano", Music))
	require.ErrorIs(t, m.RemoveTrack("piano", Music), ErrNotFound)
}

func TestCopyAndPaste(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	_, err := m.AddKeyframe("light", 2.0, map[string]any{"intensity": 1.0})
	require.NoError(t, err)
	_, err = m.AddKeyframe("light", 5.0, nil)
	require.NoError(t, err)
	_, err = m.AddNote("piano", 2.5, NoteData{Pitch: 60, Duration: 0.5, Velocity: 90})
	require.NoError(t, err)

	sel, err := m.CopyTimeRange(1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, sel.Count())

	res, err := m.PasteTimeRange(10, sel)
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.TimeOffset)

	kfs := m.Keyframes("light")
	require.Equal(t, []float64{2, 5, 11}, times(kfs))
	notes := m.Notes("piano")
	require.Equal(t, []float64{2.5, 11.5}, times(notes))

	assert.NotEqual(t, kfs[0].ID, kfs[2].ID)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)
	assert.Equal(t, 1.0, kfs[2].Properties["intensity"])
	assert.Equal(t, notes[0].Note, notes[1].Note)

	// the pasted keyframe does not share properties with the original
	kfs[2].Properties["intensity"] = 0.0
	assert.Equal(t, 1.0, m.Keyframes("light")[0].Properties["intensity"])

	kinds := rec.kinds()
	assert.Contains(t, kinds, event.SelectionCopied)
	assert.Equal(t, event.SelectionPasted, kinds[len(kinds)-1])
}

func TestCopyRangeIsInclusive(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	for _, at := range []float64{1, 2, 3} {
		_, err := m.AddKeyframe("light", at, nil)
		require.NoError(t, err)
	}

	sel, err := m.CopyTimeRange(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.Count())

	sel, err = m.CopyTimeRange(10, 20)
	require.NoError(t, err)
	assert.Zero(t, sel.Count())
	assert.Empty(t, sel.AnimationData)

	_, err = m.CopyTimeRange(3, 1)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestPasteAtSameLocation(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	_, err := m.AddKeyframe("light", 2, nil)
	require.NoError(t, err)

	sel, err := m.CopyTimeRange(2, 2)
	require.NoError(t, err)
	_, err = m.PasteTimeRange(2, sel)
	require.NoError(t, err)

	kfs := m.Keyframes("light")
	require.Equal(t, []float64{2, 2}, times(kfs))
	assert.NotEqual(t, kfs[0].ID, kfs[1].ID)
}

func TestPasteCreatesMissingTracks(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	sel := Selection{
		StartTime: 0,
		EndTime:   1,
		MusicData: map[string][]Note{"bass": {{ID: "a", Time: 0.5, Note: NoteData{Pitch: 40, Duration: 1}}}},
	}

	_, err := m.PasteTimeRange(4, sel)
	require.NoError(t, err)
	require.True(t, m.HasTrack("bass", Music))
	assert.Equal(t, []float64{4.5}, times(m.Notes("bass")))
}

func TestPasteBeforeZeroIsRejected(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	sel := Selection{
		StartTime: 2,
		EndTime:   4,
		AnimationData: map[string][]Keyframe{
			"light": {{ID: "a", Time: 1}, {ID: "b", Time: 3}},
		},
	}

	_, err := m.PasteTimeRange(0, sel)
	require.ErrorIs(t, err, ErrInvalidTime)
	assert.False(t, m.HasTrack("light", Animation))
}

func TestScaleAll(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	_, err := m.AddKeyframe("light", 2, nil)
	require.NoError(t, err)
	_, err = m.AddNote("piano", 1, NoteData{Pitch: 60, Duration: 0.5})
	require.NoError(t, err)

	moved, err := m.ScaleAll(2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	assert.Equal(t, []float64{4}, times(m.Keyframes("light")))
	notes := m.Notes("piano")
	assert.Equal(t, []float64{2}, times(notes))
	assert.Equal(t, 1.0, notes[0].Note.Duration)
	assert.Equal(t, 4.0, m.MaxTime())

	kinds := rec.kinds()
	assert.Equal(t, event.TracksRetimed, kinds[len(kinds)-1])

	_, err = m.ScaleAll(0)
	require.ErrorIs(t, err, ErrInvalidScale)
}

func TestScaleRangeIsAnchoredAtStart(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	for _, at := range []float64{1, 2, 3, 6} {
		_, err := m.AddKeyframe("light", at, nil)
		require.NoError(t, err)
	}

	moved, err := m.ScaleRange(2, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Equal(t, []float64{1, 2, 5, 6}, times(m.Keyframes("light")))
}

func TestShiftRangeResorts(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	for _, at := range []float64{1, 2, 5} {
		_, err := m.AddKeyframe("light", at, map[string]any{"at": at})
		require.NoError(t, err)
	}

	_, err := m.ShiftRange(0, 2, 4)
	require.NoError(t, err)

	kfs := m.Keyframes("light")
	require.Equal(t, []float64{5, 5, 6}, times(kfs))
	// shifted events sort stably against the ones already there
	assert.Equal(t, 1.0, kfs[0].Properties["at"])
	assert.Equal(t, 5.0, kfs[1].Properties["at"])
}

func TestShiftIsAtomic(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	_, err := m.AddKeyframe("light", 3, nil)
	require.NoError(t, err)
	_, err = m.AddNote("piano", 0.5, NoteData{Pitch: 60, Duration: 0.25})
	require.NoError(t, err)
	before := len(rec.kinds())

	// the note would land before zero, so the keyframe must not move either
	_, err = m.ShiftRange(0, 10, -1)
	require.ErrorIs(t, err, ErrInvalidTime)

	assert.Equal(t, []float64{3}, times(m.Keyframes("light")))
	assert.Equal(t, []float64{0.5}, times(m.Notes("piano")))
	assert.Len(t, rec.kinds(), before)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	_, err := m.AddKeyframe("light", 0, map[string]any{"intensity": 0.0, "color": "#000000"})
	require.NoError(t, err)
	_, err = m.AddKeyframe("light", 2, map[string]any{"intensity": 1.0, "color": "#ffffff"})
	require.NoError(t, err)

	props, ok := m.Evaluate("light", 1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, props["intensity"], 1e-9)

	props, ok = m.Evaluate("light", 10)
	require.True(t, ok)
	assert.Equal(t, 1.0, props["intensity"])

	_, ok = m.Evaluate("missing", 1)
	assert.False(t, ok)
}

func TestExportAndLoad(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	_, err := m.AddKeyframe("light", 1, map[string]any{"x": 1.0})
	require.NoError(t, err)
	_, err = m.AddNote("piano", 2, NoteData{Pitch: 60, Duration: 1})
	require.NoError(t, err)

	data := m.Export()

	other, rec := newTestManager()
	require.NoError(t, other.Load(data))
	assert.Equal(t, m.Keyframes("light"), other.Keyframes("light"))
	assert.Equal(t, m.Notes("piano"), other.Notes("piano"))
	assert.Equal(t, []event.Kind{event.TracksRetimed}, rec.kinds())

	bad := Data{Music: map[string][]Note{"piano": {{Time: -1}}}}
	require.ErrorIs(t, other.Load(bad), ErrInvalidTime)
	assert.Len(t, other.Notes("piano"), 1)
}

func TestTrackLifecyclePayloadsCarryKind(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	require.NoError(t, m.CreateTrack("piano", Music))
	require.NoError(t, m.RemoveTrack("piano", Music))

	require.Len(t, rec.events, 2)
	assert.Equal(t, TrackCreated{TrackID: "piano", TrackKind: Music}, rec.events[0])
	assert.Equal(t, TrackRemoved{TrackID: "piano", TrackKind: Music}, rec.events[1])
}

func TestKeyframePayloadIsDetached(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	var added []KeyframeAdded
	m.pub = publisherFunc(func(e event.Event) {
		if a, ok := e.(KeyframeAdded); ok {
			added = append(added, a)
		}
	})

	props := map[string]any{"intensity": 0.5}
	kf, err := m.AddKeyframe("light", 1, props)
	require.NoError(t, err)
	require.Len(t, added, 1)

	added[0].Keyframe.Properties["intensity"] = 1.0
	kf.Properties["intensity"] = 2.0
	props["intensity"] = 3.0
	m.Keyframes("light")[0].Properties["intensity"] = 4.0

	assert.Equal(t, 0.5, m.Keyframes("light")[0].Properties["intensity"])
}

func TestStageDoesNotTouchTracks(t *testing.T) {
	t.Parallel()

	m, rec := newTestManager()
	_, err := m.AddKeyframe("light", 1, nil)
	require.NoError(t, err)
	published := len(rec.kinds())

	_, err = m.Stage(Data{Animation: map[string][]Keyframe{"light": {{Time: -2}}}})
	require.ErrorIs(t, err, ErrInvalidTime)
	assert.Equal(t, []float64{1}, times(m.Keyframes("light")))

	st, err := m.Stage(Data{Music: map[string][]Note{"bass": {{ID: "n", Time: 3}}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, times(m.Keyframes("light")))

	assert.Equal(t, 1, m.Commit(st))
	assert.Empty(t, m.Keyframes("light"))
	assert.Equal(t, []float64{3}, times(m.Notes("bass")))
	assert.Len(t, rec.kinds(), published)
}

type publisherFunc func(event.Event)

func (f publisherFunc) Publish(e event.Event) { f(e) }
