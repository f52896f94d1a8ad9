package timeline

import (
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/rhythm"
)

type DurationChanged struct {
	Duration float64
}

// BeatMarkersUpdated carries the full regenerated marker list.
type BeatMarkersUpdated struct {
	Markers []rhythm.Marker
}

func (DurationChanged) Kind() event.Kind    { return event.DurationChanged }
func (BeatMarkersUpdated) Kind() event.Kind { return event.BeatMarkersUpdated }
