package playback

import "github.com/robmorgan/cadence/event"

// TimeChanged is published after a seek.
type TimeChanged struct {
	CurrentTime float64
}

// TimeUpdate is published once per render-loop tick.
type TimeUpdate struct {
	CurrentTime float64
	DeltaTime   float64
}

type PlaybackStarted struct {
	CurrentTime float64
}

type PlaybackPaused struct {
	CurrentTime float64
}

type PlaybackStopped struct {
	CurrentTime float64
}

// PlaybackLooped is published when the playhead wraps back to 0.
type PlaybackLooped struct {
	CurrentTime float64
}

// TransportDegraded is published when a transport command failed and
// playback continues without audio.
type TransportDegraded struct {
	Op  string
	Err error
}

func (TimeChanged) Kind() event.Kind       { return event.TimeChanged }
func (TimeUpdate) Kind() event.Kind        { return event.TimeUpdate }
func (PlaybackStarted) Kind() event.Kind   { return event.PlaybackStarted }
func (PlaybackPaused) Kind() event.Kind    { return event.PlaybackPaused }
func (PlaybackStopped) Kind() event.Kind   { return event.PlaybackStopped }
func (PlaybackLooped) Kind() event.Kind    { return event.PlaybackLooped }
func (TransportDegraded) Kind() event.Kind { return event.TransportDegraded }
