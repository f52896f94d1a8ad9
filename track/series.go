package track

import (
	"golang.org/x/exp/slices"
)

// series is a time-ordered event list. Events with equal times keep their
// insertion order.
type series[E timed[E]] struct {
	id     string
	events []E
}

func newSeries[E timed[E]](id string) *series[E] {
	return &series[E]{id: id}
}

func compareTime[E timed[E]](a, b E) int {
	switch {
	case a.at() < b.at():
		return -1
	case a.at() > b.at():
		return 1
	}
	return 0
}

// insert places e after every event at or before its time.
func (s *series[E]) insert(e E) {
	i, _ := slices.BinarySearchFunc(s.events, e.at(), func(x E, t float64) int {
		if x.at() <= t {
			return -1
		}
		return 1
	})
	s.events = slices.Insert(s.events, i, e)
}

func (s *series[E]) remove(id string) (E, bool) {
	i := slices.IndexFunc(s.events, func(e E) bool { return e.eventID() == id })
	if i < 0 {
		var zero E
		return zero, false
	}
	e := s.events[i]
	s.events = slices.Delete(s.events, i, i+1)
	return e, true
}

func (s *series[E]) sort() {
	slices.SortStableFunc(s.events, compareTime[E])
}

// between returns the events with start <= time <= end.
func (s *series[E]) between(start, end float64) []E {
	var out []E
	for _, e := range s.events {
		if e.at() >= start && e.at() <= end {
			out = append(out, e)
		}
	}
	return out
}

func (s *series[E]) last() (E, bool) {
	if len(s.events) == 0 {
		var zero E
		return zero, false
	}
	return s.events[len(s.events)-1], true
}

func (s *series[E]) snapshot() []E {
	return slices.Clone(s.events)
}
