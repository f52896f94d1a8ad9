package rhythm

import (
	"fmt"
	"math"
)

// Position is a musical readout of a point in time. Measure, Beat and
// Sixteenth are 1-based; Phase is how far through the current beat the point
// lies, in [0,1).
type Position struct {
	Measure   int
	Beat      int
	Sixteenth int
	Phase     float64
}

// PositionAt returns the musical position of seconds.
func (c Converter) PositionAt(seconds float64) Position {
	beats := c.SecondsToBeats(seconds)
	whole := math.Floor(beats)
	phase := beats - whole

	beat := int(whole)
	num := c.signature.Numerator
	return Position{
		Measure:   beat/num + 1,
		Beat:      beat%num + 1,
		Sixteenth: int(math.Floor(phase*4)) + 1,
		Phase:     phase,
	}
}

// Marker returns the position as "measure.beat.sixteenth".
func (p Position) Marker() string {
	return fmt.Sprintf("%d.%d.%d", p.Measure, p.Beat, p.Sixteenth)
}

// IsDownBeat reports whether the position falls on the first beat of a measure.
func (p Position) IsDownBeat() bool {
	return p.Beat == 1
}
