package rhythm

import (
	"errors"
	"fmt"
)

const (
	// MinTempo and MaxTempo bound the accepted tempo range in BPM.
	MinTempo = 60.0
	MaxTempo = 200.0

	DefaultTempo = 120.0

	// DefaultSubdivision is the grid size in beats (a sixteenth note).
	DefaultSubdivision = 0.25
)

var (
	ErrInvalidTempo         = errors.New("tempo out of range")
	ErrInvalidTimeSignature = errors.New("invalid time signature")
)

// TimeSignature is a musical meter such as 4/4 or 6/8.
type TimeSignature struct {
	Numerator   int `json:"numerator" toml:"numerator"`
	Denominator int `json:"denominator" toml:"denominator"`
}

// CommonTime is 4/4.
var CommonTime = TimeSignature{Numerator: 4, Denominator: 4}

// Validate checks the numerator is positive and the denominator is one of 1, 2, 4, 8 or 16.
func (ts TimeSignature) Validate() error {
	if ts.Numerator < 1 || ts.Numerator > 32 {
		return fmt.Errorf("%w: numerator %d", ErrInvalidTimeSignature, ts.Numerator)
	}
	switch ts.Denominator {
	case 1, 2, 4, 8, 16:
		return nil
	}
	return fmt.Errorf("%w: denominator %d", ErrInvalidTimeSignature, ts.Denominator)
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// ValidateTempo checks bpm is finite and within [MinTempo, MaxTempo].
func ValidateTempo(bpm float64) error {
	// NaN fails both comparisons, so test the accepted range instead.
	if !(bpm >= MinTempo && bpm <= MaxTempo) {
		return fmt.Errorf("%w: %v bpm (want %v..%v)", ErrInvalidTempo, bpm, MinTempo, MaxTempo)
	}
	return nil
}
