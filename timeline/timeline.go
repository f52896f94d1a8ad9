package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	commonerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/cadence/audio"
	"github.com/robmorgan/cadence/config"
	"github.com/robmorgan/cadence/engine"
	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/export"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/playback"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/robmorgan/cadence/temporal"
	"github.com/robmorgan/cadence/track"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

var ErrInvalidZoom = errors.New("invalid zoom")

// Timeline is the single entry point to one synchronized animation and music
// timeline. It keeps the duration and beat markers in step with the tracks
// and the temporal settings.
type Timeline struct {
	cfg      config.Config
	bus      *event.Bus
	state    *temporal.State
	tracks   *track.Manager
	coord    *temporal.Coordinator
	playback *playback.Manager
	markers  *rhythm.MarkerGenerator

	mu              sync.RWMutex
	pixelsPerSecond float64

	unsubscribe []func()
	log         *logrus.Entry
}

// New builds a timeline from cfg. The timeline starts stopped at 0 with no
// tracks and a duration of cfg.MinDuration.
func New(cfg config.Config, opts ...Option) (*Timeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, commonerrors.WithStackTrace(err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}
	if o.scheduler == nil {
		o.scheduler = engine.NewClockScheduler(o.clock)
	}
	if o.transport == nil {
		o.transport = audio.Null{}
	}
	if o.bus == nil {
		o.bus = event.NewBus()
	}

	state, err := temporal.NewState(cfg.Tempo, cfg.TimeSignature, cfg.MinDuration)
	if err != nil {
		return nil, commonerrors.WithStackTrace(err)
	}
	markers, err := rhythm.NewMarkerGenerator(cfg.Subdivision)
	if err != nil {
		return nil, commonerrors.WithStackTrace(err)
	}

	tracks := track.NewManager(state, o.bus)
	tracks.SetSnap(cfg.SnapToGrid, cfg.Subdivision)

	pb := playback.NewManager(state, o.transport, o.clock, o.scheduler, playback.Options{
		FPS:              cfg.FPS,
		DriftTolerance:   cfg.DriftTolerance(),
		ResyncInterval:   cfg.ResyncInterval(),
		TransportTimeout: cfg.TransportTimeout(),
	}, o.bus)
	pb.SetLoop(cfg.Loop)

	t := &Timeline{
		cfg:             cfg,
		bus:             o.bus,
		state:           state,
		tracks:          tracks,
		coord:           temporal.NewCoordinator(state, tracks, pb, o.bus),
		playback:        pb,
		markers:         markers,
		pixelsPerSecond: cfg.PixelsPerSecond,
		log:             logger.GetComponentLogger("timeline"),
	}
	t.subscribe()
	t.recomputeDuration()
	t.regenerateMarkers()

	t.log.WithFields(logrus.Fields{
		"tempo":          cfg.Tempo,
		"time_signature": cfg.TimeSignature.String(),
		"duration":       state.Duration(),
	}).Info("timeline ready")
	return t, nil
}

func (t *Timeline) subscribe() {
	onTracks := func(event.Event) { t.recomputeDuration() }
	for _, k := range []event.Kind{
		event.KeyframeAdded,
		event.NoteAdded,
		event.KeyframeRemoved,
		event.NoteRemoved,
		event.TrackRemoved,
		event.TracksRetimed,
	} {
		t.unsubscribe = append(t.unsubscribe, t.bus.Subscribe(k, onTracks))
	}

	t.unsubscribe = append(t.unsubscribe,
		event.On(t.bus, func(e temporal.TempoChanged) {
			if !t.recomputeDuration() {
				t.regenerateMarkers()
			}
			t.playback.SetTempo(context.Background(), e.NewTempo)
			if e.Ratio != 1 {
				// the coordinator already moved the playhead; reseek audio to it
				if err := t.playback.Seek(t.state.CurrentTime()); err != nil {
					t.log.WithError(err).Warn("playhead remap failed")
				}
			}
		}),
		event.On(t.bus, func(e temporal.TimeSignatureChanged) {
			t.regenerateMarkers()
			t.playback.SetTimeSignature(context.Background(), e.TimeSignature.Numerator, e.TimeSignature.Denominator)
		}),
	)
}

// recomputeDuration sets the duration to max(MinDuration, last event +
// DurationPadding) and reports whether it changed. Markers are regenerated
// on change.
func (t *Timeline) recomputeDuration() bool {
	d := math.Max(t.cfg.MinDuration, t.tracks.MaxTime()+t.cfg.DurationPadding)
	changed, err := t.state.SetDuration(d)
	if err != nil {
		t.log.WithError(err).Error("duration recompute failed")
		return false
	}
	if !changed {
		return false
	}
	t.log.WithField("duration", d).Debug("duration changed")
	t.bus.Publish(DurationChanged{Duration: d})
	t.regenerateMarkers()
	return true
}

func (t *Timeline) regenerateMarkers() {
	v := t.state.Snapshot()
	markers := t.markers.Generate(v.Tempo, v.Signature, v.Duration)
	t.bus.Publish(BeatMarkersUpdated{Markers: markers})
}

// reject reports a failed call on the bus and returns it with a stack trace.
func (t *Timeline) reject(op string, err error) error {
	if err == nil {
		return nil
	}
	t.log.WithFields(logrus.Fields{"op": op, "error": err}).Warn("rejected")
	t.bus.Publish(event.Rejected{Op: op, Err: err})
	return commonerrors.WithStackTrace(err)
}

// Close stops playback and detaches the timeline from its bus.
func (t *Timeline) Close(ctx context.Context) error {
	err := t.playback.Stop(ctx)
	for _, unsub := range t.unsubscribe {
		unsub()
	}
	t.unsubscribe = nil
	return err
}

// Bus returns the notification bus.
func (t *Timeline) Bus() *event.Bus {
	return t.bus
}

func (t *Timeline) Tempo() float64 {
	return t.state.Tempo()
}

func (t *Timeline) TimeSignature() rhythm.TimeSignature {
	return t.state.Signature()
}

func (t *Timeline) Duration() float64 {
	return t.state.Duration()
}

func (t *Timeline) CurrentTime() float64 {
	return t.state.CurrentTime()
}

// Values returns a copy of tempo, time signature, duration and current time.
func (t *Timeline) Values() temporal.Values {
	return t.state.Snapshot()
}

// Converter returns a converter for the current tempo and time signature.
func (t *Timeline) Converter() rhythm.Converter {
	return t.state.Converter()
}

// Position returns the musical position of the playhead.
func (t *Timeline) Position() rhythm.Position {
	return t.state.Converter().PositionAt(t.state.CurrentTime())
}

func (t *Timeline) PlaybackState() playback.State {
	return t.playback.State()
}

// AudioActive reports whether playback is following the audio transport.
func (t *Timeline) AudioActive() bool {
	return t.playback.AudioActive()
}

// SetTempo changes the tempo, moving every event so it keeps its beat.
func (t *Timeline) SetTempo(bpm float64) (temporal.TempoChanged, error) {
	change, err := t.coord.SetTempo(bpm)
	return change, t.reject("set_tempo", err)
}

func (t *Timeline) SetTimeSignature(numerator, denominator int) error {
	return t.reject("set_time_signature", t.coord.SetTimeSignature(numerator, denominator))
}

// ScaleTimeRange stretches the events within [start, end] away from start.
func (t *Timeline) ScaleTimeRange(start, end, factor float64) (int, error) {
	n, err := t.coord.ScaleTimeRange(start, end, factor)
	return n, t.reject("scale_time_range", err)
}

// ShiftTimeRange moves the events within [start, end] by offset seconds.
func (t *Timeline) ShiftTimeRange(start, end, offset float64) (int, error) {
	n, err := t.coord.ShiftTimeRange(start, end, offset)
	return n, t.reject("shift_time_range", err)
}

func (t *Timeline) Play(ctx context.Context) error {
	return t.reject("play", t.playback.Play(ctx))
}

func (t *Timeline) Pause(ctx context.Context) error {
	return t.reject("pause", t.playback.Pause(ctx))
}

func (t *Timeline) Stop(ctx context.Context) error {
	return t.reject("stop", t.playback.Stop(ctx))
}

// TogglePlayback pauses when playing and plays otherwise.
func (t *Timeline) TogglePlayback(ctx context.Context) error {
	if t.playback.State() == playback.Playing {
		return t.Pause(ctx)
	}
	return t.Play(ctx)
}

// Seek moves the playhead to t seconds, clamped to the duration.
func (t *Timeline) Seek(ctx context.Context, seconds float64) error {
	return t.reject("seek", t.playback.SeekTo(ctx, seconds))
}

// SeekToBeat moves the playhead to a 0-based beat.
func (t *Timeline) SeekToBeat(beat float64) error {
	return t.reject("seek_to_beat", t.coord.SeekToBeat(beat))
}

// SeekToMeasure moves the playhead to the start of a 0-based measure.
func (t *Timeline) SeekToMeasure(measure float64) error {
	return t.reject("seek_to_measure", t.coord.SeekToMeasure(measure))
}

func (t *Timeline) SeekByBeats(delta float64) error {
	return t.reject("seek_by_beats", t.coord.SeekByBeats(delta))
}

func (t *Timeline) SetLoop(enabled bool) {
	t.playback.SetLoop(enabled)
}

func (t *Timeline) Loop() bool {
	return t.playback.Loop()
}

// SetSnap turns snap-to-grid insertion on or off.
func (t *Timeline) SetSnap(enabled bool, subdivision float64) {
	t.tracks.SetSnap(enabled, subdivision)
}

func (t *Timeline) Snap() (bool, float64) {
	return t.tracks.Snap()
}

func (t *Timeline) CreateTrack(id string, kind track.Kind) error {
	return t.reject("create_track", t.tracks.CreateTrack(id, kind))
}

func (t *Timeline) RemoveTrack(id string, kind track.Kind) error {
	return t.reject("remove_track", t.tracks.RemoveTrack(id, kind))
}

func (t *Timeline) TrackIDs(kind track.Kind) []string {
	return t.tracks.TrackIDs(kind)
}

func (t *Timeline) AddKeyframe(trackID string, at float64, properties map[string]any) (track.Keyframe, error) {
	kf, err := t.tracks.AddKeyframe(trackID, at, properties)
	return kf, t.reject("add_keyframe", err)
}

// InsertKeyframe adds a keyframe that names an easing curve.
func (t *Timeline) InsertKeyframe(trackID string, kf track.Keyframe) (track.Keyframe, error) {
	kf, err := t.tracks.InsertKeyframe(trackID, kf)
	return kf, t.reject("add_keyframe", err)
}

func (t *Timeline) AddNote(trackID string, at float64, note track.NoteData) (track.Note, error) {
	n, err := t.tracks.AddNote(trackID, at, note)
	return n, t.reject("add_note", err)
}

func (t *Timeline) RemoveKeyframe(trackID, id string) error {
	return t.reject("remove_keyframe", t.tracks.RemoveKeyframe(trackID, id))
}

func (t *Timeline) RemoveNote(trackID, id string) error {
	return t.reject("remove_note", t.tracks.RemoveNote(trackID, id))
}

func (t *Timeline) Keyframes(trackID string) []track.Keyframe {
	return t.tracks.Keyframes(trackID)
}

func (t *Timeline) Notes(trackID string) []track.Note {
	return t.tracks.Notes(trackID)
}

func (t *Timeline) MaxTime() float64 {
	return t.tracks.MaxTime()
}

// Evaluate returns the interpolated properties of an animation track at the
// given time.
func (t *Timeline) Evaluate(trackID string, at float64) (map[string]any, bool) {
	return t.tracks.Evaluate(trackID, at)
}

func (t *Timeline) CopyTimeRange(start, end float64) (track.Selection, error) {
	sel, err := t.tracks.CopyTimeRange(start, end)
	return sel, t.reject("copy_time_range", err)
}

func (t *Timeline) PasteTimeRange(targetTime float64, sel track.Selection) (track.PasteResult, error) {
	res, err := t.tracks.PasteTimeRange(targetTime, sel)
	return res, t.reject("paste_time_range", err)
}

// Markers returns every beat marker for the current settings.
func (t *Timeline) Markers() []rhythm.Marker {
	v := t.state.Snapshot()
	return t.markers.Generate(v.Tempo, v.Signature, v.Duration)
}

// VisibleMarkers returns the markers within [start, end] seconds.
func (t *Timeline) VisibleMarkers(start, end float64) []rhythm.Marker {
	t.Markers()
	return t.markers.VisibleMarkers(start, end)
}

// SetZoom sets how many pixels one second spans on a ruler.
func (t *Timeline) SetZoom(pixelsPerSecond float64) error {
	if !scale.Finite(pixelsPerSecond) || pixelsPerSecond <= 0 {
		return t.reject("set_zoom", fmt.Errorf("%w: %v pixels per second", ErrInvalidZoom, pixelsPerSecond))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pixelsPerSecond = pixelsPerSecond
	return nil
}

func (t *Timeline) Zoom() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pixelsPerSecond
}

func (t *Timeline) TimeToPixels(seconds float64) float64 {
	return seconds * t.Zoom()
}

func (t *Timeline) PixelsToTime(px float64) float64 {
	return px / t.Zoom()
}

// ExportMIDI writes the music tracks as a Standard MIDI File at the current
// tempo and time signature.
func (t *Timeline) ExportMIDI(w io.Writer) error {
	notes := make(map[string][]track.Note)
	for _, id := range t.tracks.TrackIDs(track.Music) {
		notes[id] = t.tracks.Notes(id)
	}
	return t.reject("export_midi", export.WriteSMF(w, t.state.Converter(), notes))
}
