package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robmorgan/cadence/audio"
	"github.com/robmorgan/cadence/engine"
	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/temporal"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

var (
	ErrInvalidTransition = errors.New("invalid playback transition")
	ErrInvalidTime       = errors.New("invalid time")
)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// Options tune the render loop and the audio sync.
type Options struct {
	FPS              int
	DriftTolerance   time.Duration
	ResyncInterval   time.Duration
	TransportTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		FPS:              engine.DefaultFPS,
		DriftTolerance:   10 * time.Millisecond,
		ResyncInterval:   250 * time.Millisecond,
		TransportTimeout: 2 * time.Second,
	}
}

type discard struct{}

func (discard) Publish(event.Event) {}

// Manager runs the play/pause/stop state machine. While playing, a
// scheduled tick advances the playhead by the wall-clock time since the
// previous tick and periodically pulls it towards the audio transport's
// reported position.
//
// cmdMu serializes commands and every call into the transport. mu guards the
// loop state. When both are needed cmdMu is taken first. The tick reads the
// transport position under mu, so transports must never call back into the
// manager.
type Manager struct {
	cmdMu sync.Mutex

	mu          sync.Mutex
	state       State
	gen         uint64
	handle      engine.Handle
	lastTick    time.Time
	lastResync  time.Time
	loop        bool
	audioActive bool

	temporal  *temporal.State
	transport audio.Transport
	clock     clock.PassiveClock
	sched     engine.Scheduler
	opts      Options
	pub       event.Publisher
	log       *logrus.Entry
}

// NewManager returns a stopped manager. A nil transport means visual-only
// playback and a nil publisher drops notifications.
func NewManager(state *temporal.State, transport audio.Transport, clk clock.PassiveClock, sched engine.Scheduler, opts Options, pub event.Publisher) *Manager {
	if transport == nil {
		transport = audio.Null{}
	}
	if pub == nil {
		pub = discard{}
	}
	defaults := DefaultOptions()
	if opts.FPS <= 0 {
		opts.FPS = defaults.FPS
	}
	if opts.DriftTolerance <= 0 {
		opts.DriftTolerance = defaults.DriftTolerance
	}
	if opts.ResyncInterval <= 0 {
		opts.ResyncInterval = defaults.ResyncInterval
	}
	if opts.TransportTimeout <= 0 {
		opts.TransportTimeout = defaults.TransportTimeout
	}
	return &Manager{
		temporal:  state,
		transport: transport,
		clock:     clk,
		sched:     sched,
		opts:      opts,
		pub:       pub,
		log:       logger.GetComponentLogger("playback"),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AudioActive reports whether the transport is following playback.
func (m *Manager) AudioActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioActive
}

func (m *Manager) SetLoop(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = enabled
}

func (m *Manager) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

// call runs a transport command with the configured timeout. The caller
// holds cmdMu.
func (m *Manager) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.TransportTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	var terr *audio.TransportError
	if !errors.As(err, &terr) {
		err = &audio.TransportError{Op: op, Err: err}
	}
	m.log.WithFields(logrus.Fields{"op": op, "error": err}).Warn("audio transport failed, continuing without audio")
	return err
}

// degrade turns audio following off after a failed command and returns the
// notification to publish once cmdMu is released.
func (m *Manager) degrade(op string, err error) event.Event {
	m.mu.Lock()
	m.audioActive = false
	m.mu.Unlock()
	return TransportDegraded{Op: op, Err: err}
}

func (m *Manager) publish(events []event.Event) {
	for _, e := range events {
		m.pub.Publish(e)
	}
}

// scheduleLocked queues the next tick for gen. The caller holds mu.
func (m *Manager) scheduleLocked(gen uint64) {
	m.handle = m.sched.Schedule(engine.FrameInterval(m.opts.FPS), func() { m.tick(gen) })
}

// cancelLocked invalidates any queued or in-flight tick. The caller holds mu.
func (m *Manager) cancelLocked() {
	m.gen++
	if m.handle != nil {
		m.handle.Cancel()
		m.handle = nil
	}
}

// Play starts playback from the current time. The audio transport is started
// first; if it fails playback still starts, without audio. Playing while
// already playing does nothing.
func (m *Manager) Play(ctx context.Context) error {
	m.cmdMu.Lock()

	m.mu.Lock()
	if m.state == Playing {
		m.mu.Unlock()
		m.cmdMu.Unlock()
		return nil
	}
	at := m.temporal.CurrentTime()
	if at >= m.temporal.Duration() {
		at = m.temporal.SetCurrentTime(0)
	}
	m.mu.Unlock()

	err := m.call(ctx, "start", func(ctx context.Context) error {
		return m.transport.StartPlayback(ctx, at)
	})

	m.mu.Lock()
	m.cancelLocked()
	gen := m.gen
	m.state = Playing
	m.audioActive = err == nil
	now := m.clock.Now()
	m.lastTick = now
	m.lastResync = now
	m.scheduleLocked(gen)
	m.mu.Unlock()
	m.cmdMu.Unlock()

	m.log.WithFields(logrus.Fields{"at": at, "audio": err == nil}).Info("playback started")
	m.pub.Publish(PlaybackStarted{CurrentTime: at})
	if err != nil {
		m.pub.Publish(TransportDegraded{Op: "start", Err: err})
	}
	return nil
}

// Pause stops the render loop and keeps the current time.
func (m *Manager) Pause(ctx context.Context) error {
	m.cmdMu.Lock()

	m.mu.Lock()
	if m.state != Playing {
		state := m.state
		m.mu.Unlock()
		m.cmdMu.Unlock()
		return fmt.Errorf("%w: pause while %s", ErrInvalidTransition, state)
	}
	m.cancelLocked()
	m.state = Paused
	audioActive := m.audioActive
	at := m.temporal.CurrentTime()
	m.mu.Unlock()

	var pending []event.Event
	if audioActive {
		if err := m.call(ctx, "pause", m.transport.PausePlayback); err != nil {
			pending = append(pending, m.degrade("pause", err))
		}
	}
	m.cmdMu.Unlock()

	m.log.WithField("at", at).Info("playback paused")
	m.pub.Publish(PlaybackPaused{CurrentTime: at})
	m.publish(pending)
	return nil
}

// Stop stops the render loop and resets the current time to 0.
func (m *Manager) Stop(ctx context.Context) error {
	m.cmdMu.Lock()
	pending := m.stopLocked(ctx)
	m.cmdMu.Unlock()

	m.publish(pending)
	return nil
}

// stopLocked is Stop for a caller already holding cmdMu. It returns the
// notifications to publish after cmdMu is released.
func (m *Manager) stopLocked(ctx context.Context) []event.Event {
	m.mu.Lock()
	m.cancelLocked()
	m.state = Stopped
	m.temporal.SetCurrentTime(0)
	m.mu.Unlock()

	pending := []event.Event{PlaybackStopped{CurrentTime: 0}}
	if err := m.call(ctx, "stop", m.transport.StopPlayback); err != nil {
		pending = append(pending, m.degrade("stop", err))
	}
	m.log.Info("playback stopped")
	return pending
}

// Seek moves the playhead, clamped to [0, duration]. While playing, the
// audio transport is moved to the same position.
func (m *Manager) Seek(t float64) error {
	return m.SeekTo(context.Background(), t)
}

func (m *Manager) SeekTo(ctx context.Context, t float64) error {
	if !scale.Finite(t) {
		return fmt.Errorf("%w: %v", ErrInvalidTime, t)
	}

	m.cmdMu.Lock()

	m.mu.Lock()
	at := m.temporal.SetCurrentTime(t)
	reseek := m.state == Playing && m.audioActive
	if m.state == Playing {
		now := m.clock.Now()
		m.lastTick = now
		m.lastResync = now
	}
	m.mu.Unlock()

	pending := []event.Event{TimeChanged{CurrentTime: at}}
	if reseek {
		if err := m.call(ctx, "seek", func(ctx context.Context) error {
			return m.transport.SeekTo(ctx, at)
		}); err != nil {
			pending = append(pending, m.degrade("seek", err))
		}
	}
	m.cmdMu.Unlock()

	m.publish(pending)
	return nil
}

// SetTempo pushes a tempo change to the transport.
func (m *Manager) SetTempo(ctx context.Context, bpm float64) {
	m.cmdMu.Lock()
	err := m.call(ctx, "tempo", func(ctx context.Context) error {
		return m.transport.SetTempo(ctx, bpm)
	})
	var degraded event.Event
	if err != nil {
		degraded = m.degrade("tempo", err)
	}
	m.cmdMu.Unlock()

	if degraded != nil {
		m.pub.Publish(degraded)
	}
}

// SetTimeSignature pushes a time signature change to the transport.
func (m *Manager) SetTimeSignature(ctx context.Context, numerator, denominator int) {
	m.cmdMu.Lock()
	err := m.call(ctx, "signature", func(ctx context.Context) error {
		return m.transport.SetTimeSignature(ctx, numerator, denominator)
	})
	var degraded event.Event
	if err != nil {
		degraded = m.degrade("signature", err)
	}
	m.cmdMu.Unlock()

	if degraded != nil {
		m.pub.Publish(degraded)
	}
}

// tick advances one frame. A tick whose generation is stale does nothing,
// so a callback already in flight when Pause or Stop ran cannot move the
// playhead.
func (m *Manager) tick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Playing {
		m.mu.Unlock()
		return
	}

	now := m.clock.Now()
	delta := now.Sub(m.lastTick).Seconds()
	if delta < 0 {
		delta = 0
	}
	m.lastTick = now

	prev := m.temporal.CurrentTime()
	t := prev + delta
	if m.audioActive && now.Sub(m.lastResync) >= m.opts.ResyncInterval {
		m.lastResync = now
		t = m.resync(prev, t)
	}

	if t >= m.temporal.Duration() {
		if !m.loop {
			m.mu.Unlock()
			m.finish(gen)
			return
		}
		m.temporal.SetCurrentTime(0)
		m.scheduleLocked(gen)
		audioActive := m.audioActive
		m.mu.Unlock()

		m.log.Debug("playback looped")
		m.pub.Publish(PlaybackLooped{CurrentTime: 0})
		m.pub.Publish(TimeUpdate{CurrentTime: 0, DeltaTime: delta})
		if audioActive {
			m.restart(gen)
		}
		return
	}

	t = m.temporal.SetCurrentTime(t)
	m.scheduleLocked(gen)
	m.mu.Unlock()

	m.pub.Publish(TimeUpdate{CurrentTime: t, DeltaTime: delta})
}

// resync pulls the visual time towards the audio position when they have
// drifted apart by more than the tolerance. It never moves the playhead
// behind prev. The caller holds mu.
func (m *Manager) resync(prev, t float64) float64 {
	r, ok := m.transport.(audio.PositionReporter)
	if !ok {
		return t
	}
	pos, ok := r.Position()
	if !ok || !scale.Finite(pos) {
		return t
	}
	drift := pos - t
	if math.Abs(drift) <= m.opts.DriftTolerance.Seconds() {
		return t
	}
	m.log.WithFields(logrus.Fields{"visual": t, "audio": pos, "drift": drift}).Debug("resyncing to audio clock")
	return math.Max(prev, pos)
}

// restart moves the transport back to 0 after a loop wrap, unless a command
// has run since the wrap.
func (m *Manager) restart(gen uint64) {
	m.cmdMu.Lock()

	m.mu.Lock()
	current := gen == m.gen
	m.mu.Unlock()

	var degraded event.Event
	if current {
		if err := m.call(context.Background(), "start", func(ctx context.Context) error {
			return m.transport.StartPlayback(ctx, 0)
		}); err != nil {
			degraded = m.degrade("start", err)
		}
	}
	m.cmdMu.Unlock()

	if degraded != nil {
		m.pub.Publish(degraded)
	}
}

// finish stops playback at the end of a non-looping timeline, unless a
// command has run since the tick.
func (m *Manager) finish(gen uint64) {
	m.cmdMu.Lock()

	m.mu.Lock()
	current := gen == m.gen && m.state == Playing
	m.mu.Unlock()

	var pending []event.Event
	if current {
		m.log.Debug("reached end of timeline")
		pending = m.stopLocked(context.Background())
	}
	m.cmdMu.Unlock()

	m.publish(pending)
}
