package temporal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/rhythm"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidPosition = errors.New("invalid musical position")
)

// Values is a point-in-time copy of the temporal state.
type Values struct {
	Tempo       float64              `json:"tempo"`
	Signature   rhythm.TimeSignature `json:"timeSignature"`
	Duration    float64              `json:"duration"`
	CurrentTime float64              `json:"currentTime"`
}

// State holds the authoritative tempo, time signature, duration and playhead
// of one timeline. The current time is always within [0, duration].
type State struct {
	mu          sync.RWMutex
	tempo       float64
	signature   rhythm.TimeSignature
	duration    float64
	currentTime float64
}

func NewState(tempo float64, signature rhythm.TimeSignature, duration float64) (*State, error) {
	if err := rhythm.ValidateTempo(tempo); err != nil {
		return nil, err
	}
	if err := signature.Validate(); err != nil {
		return nil, err
	}
	if err := validDuration(duration); err != nil {
		return nil, err
	}
	return &State{tempo: tempo, signature: signature, duration: duration}, nil
}

func validDuration(d float64) error {
	if !scale.Finite(d) || d < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return nil
}

func (s *State) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

func (s *State) Signature() rhythm.TimeSignature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signature
}

func (s *State) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

func (s *State) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTime
}

// Converter returns a converter for the current tempo and time signature.
func (s *State) Converter() rhythm.Converter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rhythm.NewConverter(s.tempo, s.signature)
}

func (s *State) Snapshot() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Values{
		Tempo:       s.tempo,
		Signature:   s.signature,
		Duration:    s.duration,
		CurrentTime: s.currentTime,
	}
}

// SetDuration changes the duration and pulls the current time back inside
// it. It reports whether the duration changed.
func (s *State) SetDuration(d float64) (bool, error) {
	if err := validDuration(d); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.duration {
		return false, nil
	}
	s.duration = d
	if s.currentTime > d {
		s.currentTime = d
	}
	return true, nil
}

// SetCurrentTime clamps t to [0, duration] and returns the stored value.
// Non-finite input moves the playhead to 0.
func (s *State) SetCurrentTime(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !scale.Finite(t) {
		t = 0
	}
	s.currentTime = scale.Clamp(t, 0, s.duration)
	return s.currentTime
}

func (s *State) setTempo(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = bpm
}

// retune stores a new tempo and multiplies the current time and duration by
// ratio, so the playhead keeps its beat. It returns the previous values.
func (s *State) retune(bpm, ratio float64) Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := Values{Tempo: s.tempo, Signature: s.signature, Duration: s.duration, CurrentTime: s.currentTime}
	s.tempo = bpm
	s.duration *= ratio
	s.currentTime *= ratio
	return prev
}

func (s *State) restore(v Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = v.Tempo
	s.duration = v.Duration
	s.currentTime = v.CurrentTime
}

func (s *State) setSignature(ts rhythm.TimeSignature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signature = ts
}
