package track

import (
	"fmt"

	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/sirupsen/logrus"
)

type plan[E timed[E]] map[*series[E]][]E

// planRetime computes new event lists without mutating anything, so a
// transform that would produce an invalid time aborts the whole operation.
func planRetime[E timed[E]](tracks map[string]*series[E], match func(float64) bool, transform func(float64) float64, durationScale float64) (plan[E], int, error) {
	p := make(plan[E])
	moved := 0
	for _, s := range tracks {
		var next []E
		for i, e := range s.events {
			if !match(e.at()) {
				continue
			}
			t := transform(e.at())
			if !scale.Finite(t) || t < 0 {
				return nil, 0, fmt.Errorf("%w: event %s would move to %v", ErrInvalidTime, e.eventID(), t)
			}
			if next == nil {
				next = make([]E, len(s.events))
				copy(next, s.events)
			}
			next[i] = e.retimed(t, durationScale)
			moved++
		}
		if next != nil {
			p[s] = next
		}
	}
	return p, moved, nil
}

func (p plan[E]) commit() {
	for s, events := range p {
		s.events = events
		s.sort()
	}
}

func (m *Manager) retime(op string, match func(float64) bool, transform func(float64) float64, durationScale float64) (int, error) {
	m.mu.Lock()
	kfPlan, kfMoved, err := planRetime(m.animation, match, transform, durationScale)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	notePlan, notesMoved, err := planRetime(m.music, match, transform, durationScale)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	kfPlan.commit()
	notePlan.commit()
	m.mu.Unlock()

	moved := kfMoved + notesMoved
	m.log.WithFields(logrus.Fields{"op": op, "moved": moved}).Debug("tracks retimed")
	m.publish([]event.Event{TracksRetimed{Op: op, Count: moved}})
	return moved, nil
}

func validFactor(f float64) error {
	if !scale.Finite(f) || f <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	return nil
}

func validRange(start, end float64) error {
	if !scale.Finite(start) || !scale.Finite(end) || end < start {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, start, end)
	}
	return nil
}

// ScaleAll multiplies every event time, and every note duration, by ratio.
// This touches every event in every track.
func (m *Manager) ScaleAll(ratio float64) (int, error) {
	if err := validFactor(ratio); err != nil {
		return 0, err
	}
	return m.retime("scale_all",
		func(float64) bool { return true },
		func(t float64) float64 { return t * ratio },
		ratio)
}

// ScaleRange stretches the events with start <= time <= end away from start
// by factor. Note durations in the range are scaled by the same factor.
func (m *Manager) ScaleRange(start, end, factor float64) (int, error) {
	if err := validRange(start, end); err != nil {
		return 0, err
	}
	if err := validFactor(factor); err != nil {
		return 0, err
	}
	return m.retime("scale_range",
		func(t float64) bool { return t >= start && t <= end },
		func(t float64) float64 { return start + (t-start)*factor },
		factor)
}

// ShiftRange moves the events with start <= time <= end by offset seconds.
func (m *Manager) ShiftRange(start, end, offset float64) (int, error) {
	if err := validRange(start, end); err != nil {
		return 0, err
	}
	if !scale.Finite(offset) {
		return 0, fmt.Errorf("%w: offset %v", ErrInvalidTime, offset)
	}
	return m.retime("shift_range",
		func(t float64) bool { return t >= start && t <= end },
		func(t float64) float64 { return t + offset },
		1)
}
