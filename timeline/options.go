package timeline

import (
	"github.com/robmorgan/cadence/audio"
	"github.com/robmorgan/cadence/engine"
	"github.com/robmorgan/cadence/event"
	"k8s.io/utils/clock"
)

type options struct {
	clock     clock.Clock
	scheduler engine.Scheduler
	transport audio.Transport
	bus       *event.Bus
}

// Option customizes a Timeline.
type Option func(*options)

// WithClock sets the clock the render loop measures time with.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithScheduler sets what runs render-loop ticks. By default ticks run on
// timers from the clock.
func WithScheduler(s engine.Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithTransport sets the audio transport playback follows.
func WithTransport(t audio.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithBus publishes notifications on an existing bus.
func WithBus(b *event.Bus) Option {
	return func(o *options) { o.bus = b }
}
