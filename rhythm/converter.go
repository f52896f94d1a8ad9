package rhythm

import (
	"math"
	"time"

	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/logger"
	"github.com/sirupsen/logrus"
)

// Converter translates between seconds, beats and measures for one tempo and
// time signature. It holds no other state and is safe to copy.
type Converter struct {
	tempo     float64
	signature TimeSignature
}

// NewConverter returns a converter for the given tempo and signature. Invalid
// values fall back to DefaultTempo and CommonTime.
func NewConverter(tempo float64, signature TimeSignature) Converter {
	if ValidateTempo(tempo) != nil {
		tempo = DefaultTempo
	}
	if signature.Validate() != nil {
		signature = CommonTime
	}
	return Converter{tempo: tempo, signature: signature}
}

func (c Converter) Tempo() float64 {
	return c.tempo
}

func (c Converter) Signature() TimeSignature {
	return c.signature
}

// BeatInterval returns how long a single beat lasts.
func (c Converter) BeatInterval() time.Duration {
	return time.Duration(60.0 / c.tempo * float64(time.Second))
}

// BeatsToSeconds converts a beat position to seconds.
func (c Converter) BeatsToSeconds(beats float64) float64 {
	return sanitize("beats", beats) * 60.0 / c.tempo
}

// SecondsToBeats converts seconds to a beat position.
func (c Converter) SecondsToBeats(seconds float64) float64 {
	return sanitize("seconds", seconds) * c.tempo / 60.0
}

// MeasuresToSeconds converts a measure position to seconds.
func (c Converter) MeasuresToSeconds(measures float64) float64 {
	return c.BeatsToSeconds(sanitize("measures", measures) * float64(c.signature.Numerator))
}

// SecondsToMeasures converts seconds to a measure position.
func (c Converter) SecondsToMeasures(seconds float64) float64 {
	return c.SecondsToBeats(seconds) / float64(c.signature.Numerator)
}

// Quantize snaps seconds to the nearest multiple of subdivision beats. A
// non-positive subdivision uses DefaultSubdivision. Quantizing an already
// quantized time returns the same value.
func (c Converter) Quantize(seconds, subdivision float64) float64 {
	if !(subdivision > 0) || !scale.Finite(subdivision) {
		subdivision = DefaultSubdivision
	}
	steps := math.Round(c.SecondsToBeats(seconds) / subdivision)
	return steps * subdivision * 60.0 / c.tempo
}

// sanitize clamps non-finite and negative input to zero and reports it.
func sanitize(kind string, v float64) float64 {
	if scale.Finite(v) && v >= 0 {
		return v
	}
	logger.GetComponentLogger("rhythm").WithFields(logrus.Fields{"input": kind, "value": v}).
		Warn("clamping invalid time input to 0")
	return 0
}
