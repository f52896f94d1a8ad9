package engine

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultFPS is the render-loop cadence when none is configured.
const DefaultFPS = 60

// FrameInterval returns the time between frames at n frames per second.
func FrameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Handle cancels a scheduled callback. Cancel is idempotent and may be called
// after the callback has run.
type Handle interface {
	Cancel()
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

// ClockScheduler schedules callbacks on timers from an injected clock.
type ClockScheduler struct {
	clock clock.Clock
}

func NewClockScheduler(c clock.Clock) *ClockScheduler {
	if c == nil {
		c = clock.RealClock{}
	}
	return &ClockScheduler{clock: c}
}

type timerHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *timerHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}

// Schedule starts a timer and runs fn on its own goroutine when it fires,
// unless the returned handle is cancelled first.
func (s *ClockScheduler) Schedule(d time.Duration, fn func()) Handle {
	h := &timerHandle{stop: make(chan struct{})}
	t := s.clock.NewTimer(d)

	go func() {
		defer t.Stop()
		select {
		case <-h.stop:
			return
		case <-t.C():
			select {
			case <-h.stop:
				return
			default:
			}
			fn()
		}
	}()

	return h
}
