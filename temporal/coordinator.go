package temporal

import (
	"fmt"
	"sync"

	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/sirupsen/logrus"
)

// Retimer rescales and shifts event times across every track.
type Retimer interface {
	ScaleAll(ratio float64) (int, error)
	ScaleRange(start, end, factor float64) (int, error)
	ShiftRange(start, end, offset float64) (int, error)
}

// Seeker moves the playhead.
type Seeker interface {
	Seek(t float64) error
}

type discard struct{}

func (discard) Publish(event.Event) {}

// Coordinator is the only writer of tempo and time signature. A tempo change
// rescales every event so it keeps its beat position.
//
// Bus handlers for the events it publishes must not call back into the
// coordinator.
type Coordinator struct {
	mu     sync.Mutex
	state  *State
	tracks Retimer
	seeker Seeker
	pub    event.Publisher
	log    *logrus.Entry
}

// NewCoordinator returns a coordinator over state. pub may be nil.
func NewCoordinator(state *State, tracks Retimer, seeker Seeker, pub event.Publisher) *Coordinator {
	if pub == nil {
		pub = discard{}
	}
	return &Coordinator{
		state:  state,
		tracks: tracks,
		seeker: seeker,
		pub:    pub,
		log:    logger.GetComponentLogger("temporal"),
	}
}

// SetTempo changes the tempo. Every event time in every track, the current
// time and the duration are multiplied by old/new. The new tempo is stored
// before the tracks are rescaled, so subscribers to the retime notification
// already read the new tempo. A failed rescale restores the previous state.
// Setting the current tempo is a no-op.
//
// The rescale visits every event of every track.
func (c *Coordinator) SetTempo(bpm float64) (TempoChanged, error) {
	if err := rhythm.ValidateTempo(bpm); err != nil {
		return TempoChanged{}, err
	}

	c.mu.Lock()
	old := c.state.Tempo()
	if old == bpm {
		c.mu.Unlock()
		return TempoChanged{OldTempo: old, NewTempo: bpm, Ratio: 1}, nil
	}

	ratio := old / bpm
	prev := c.state.retune(bpm, ratio)
	moved, err := c.tracks.ScaleAll(ratio)
	if err != nil {
		c.state.restore(prev)
		c.mu.Unlock()
		return TempoChanged{}, fmt.Errorf("rescaling tracks for tempo %v: %w", bpm, err)
	}
	c.mu.Unlock()

	change := TempoChanged{OldTempo: old, NewTempo: bpm, Ratio: ratio}
	c.log.WithFields(logrus.Fields{
		"old_tempo": old,
		"new_tempo": bpm,
		"ratio":     ratio,
		"moved":     moved,
	}).Info("tempo changed")
	c.pub.Publish(change)
	return change, nil
}

// SetTimeSignature changes how the grid is read. Event times are not touched.
func (c *Coordinator) SetTimeSignature(numerator, denominator int) error {
	ts := rhythm.TimeSignature{Numerator: numerator, Denominator: denominator}
	if err := ts.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.Signature() == ts {
		c.mu.Unlock()
		return nil
	}
	c.state.setSignature(ts)
	c.mu.Unlock()

	c.log.WithField("time_signature", ts.String()).Info("time signature changed")
	c.pub.Publish(TimeSignatureChanged{TimeSignature: ts})
	return nil
}

// ScaleTimeRange stretches the events within [start, end] away from start.
func (c *Coordinator) ScaleTimeRange(start, end, factor float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracks.ScaleRange(start, end, factor)
}

// ShiftTimeRange moves the events within [start, end] by offset seconds.
func (c *Coordinator) ShiftTimeRange(start, end, offset float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracks.ShiftRange(start, end, offset)
}

func validPosition(kind string, v float64) error {
	if !scale.Finite(v) || v < 0 {
		return fmt.Errorf("%w: %s %v", ErrInvalidPosition, kind, v)
	}
	return nil
}

// SeekToBeat moves the playhead to a 0-based beat.
func (c *Coordinator) SeekToBeat(beat float64) error {
	if err := validPosition("beat", beat); err != nil {
		return err
	}
	return c.seeker.Seek(c.state.Converter().BeatsToSeconds(beat))
}

// SeekToMeasure moves the playhead to the start of a 0-based measure.
func (c *Coordinator) SeekToMeasure(measure float64) error {
	if err := validPosition("measure", measure); err != nil {
		return err
	}
	return c.seeker.Seek(c.state.Converter().MeasuresToSeconds(measure))
}

// SeekByBeats moves the playhead by delta beats, stopping at 0.
func (c *Coordinator) SeekByBeats(delta float64) error {
	if !scale.Finite(delta) {
		return fmt.Errorf("%w: beat delta %v", ErrInvalidPosition, delta)
	}
	conv := c.state.Converter()
	beat := conv.SecondsToBeats(c.state.CurrentTime()) + delta
	if beat < 0 {
		beat = 0
	}
	return c.seeker.Seek(conv.BeatsToSeconds(beat))
}

// Load replaces tempo and time signature without touching event times, for
// restoring saved state whose times already match the saved tempo.
func (c *Coordinator) Load(bpm float64, ts rhythm.TimeSignature) error {
	if err := rhythm.ValidateTempo(bpm); err != nil {
		return err
	}
	if err := ts.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	old := c.state.Tempo()
	c.state.setTempo(bpm)
	c.state.setSignature(ts)
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"tempo": bpm, "time_signature": ts.String()}).Info("temporal settings loaded")
	c.pub.Publish(TempoChanged{OldTempo: old, NewTempo: bpm, Ratio: 1})
	c.pub.Publish(TimeSignatureChanged{TimeSignature: ts})
	return nil
}
