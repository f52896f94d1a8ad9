package temporal

import (
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/rhythm"
)

// TempoChanged carries the old and new tempo and the ratio every event time
// was multiplied by.
type TempoChanged struct {
	OldTempo float64
	NewTempo float64
	Ratio    float64
}

type TimeSignatureChanged struct {
	TimeSignature rhythm.TimeSignature
}

func (TempoChanged) Kind() event.Kind         { return event.TempoChanged }
func (TimeSignatureChanged) Kind() event.Kind { return event.TimeSignatureChanged }
