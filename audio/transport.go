package audio

import (
	"context"
	"fmt"
)

// Transport is the external audio engine. Every command may fail; callers
// are expected to keep going without audio when one does.
type Transport interface {
	StartPlayback(ctx context.Context, at float64) error
	PausePlayback(ctx context.Context) error
	StopPlayback(ctx context.Context) error
	SeekTo(ctx context.Context, t float64) error
	SetTempo(ctx context.Context, bpm float64) error
	SetTimeSignature(ctx context.Context, numerator, denominator int) error
}

// PositionReporter is implemented by transports that can report where their
// audio clock is, in timeline seconds.
type PositionReporter interface {
	Position() (float64, bool)
}

// TransportError is returned by every failed transport command.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("audio transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// Null is a transport with no audio behind it. Every command succeeds.
type Null struct{}

func (Null) StartPlayback(context.Context, float64) error     { return nil }
func (Null) PausePlayback(context.Context) error              { return nil }
func (Null) StopPlayback(context.Context) error               { return nil }
func (Null) SeekTo(context.Context, float64) error            { return nil }
func (Null) SetTempo(context.Context, float64) error          { return nil }
func (Null) SetTimeSignature(context.Context, int, int) error { return nil }
