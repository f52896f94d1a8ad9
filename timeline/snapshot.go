package timeline

import (
	"context"
	"encoding/json"
	"io"

	commonerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/robmorgan/cadence/track"
)

// Snapshot is the saved form of a timeline. Beat markers are not saved; they
// are regenerated on restore.
type Snapshot struct {
	Tempo         float64              `json:"tempo"`
	TimeSignature rhythm.TimeSignature `json:"timeSignature"`
	Duration      float64              `json:"duration"`
	Tracks        track.Data           `json:"tracks"`
}

func (t *Timeline) Snapshot() Snapshot {
	v := t.state.Snapshot()
	return Snapshot{
		Tempo:         v.Tempo,
		TimeSignature: v.Signature,
		Duration:      v.Duration,
		Tracks:        t.tracks.Export(),
	}
}

// Restore stops playback and replaces the tracks and temporal settings with
// s. The duration is derived from the restored tracks. Nothing changes if s
// is invalid.
func (t *Timeline) Restore(ctx context.Context, s Snapshot) error {
	if err := rhythm.ValidateTempo(s.Tempo); err != nil {
		return t.reject("restore", err)
	}
	if err := s.TimeSignature.Validate(); err != nil {
		return t.reject("restore", err)
	}
	staged, err := t.tracks.Stage(s.Tracks)
	if err != nil {
		return t.reject("restore", err)
	}

	if err := t.playback.Stop(ctx); err != nil {
		return t.reject("restore", err)
	}
	count := t.tracks.Commit(staged)
	// the tempo handler recomputes duration and markers from the new tracks
	if err := t.coord.Load(s.Tempo, s.TimeSignature); err != nil {
		return t.reject("restore", err)
	}
	t.bus.Publish(track.TracksRetimed{Op: "load", Count: count})
	return nil
}

// WriteJSON encodes a snapshot of the timeline.
func (t *Timeline) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Snapshot()); err != nil {
		return commonerrors.WithStackTrace(err)
	}
	return nil
}

// ReadJSON decodes a snapshot and restores it.
func (t *Timeline) ReadJSON(ctx context.Context, r io.Reader) error {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return t.reject("restore", err)
	}
	return t.Restore(ctx, s)
}
