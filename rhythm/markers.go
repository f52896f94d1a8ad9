package rhythm

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// markerCacheSize is how many distinct (tempo, signature, duration) layouts
// are kept. Scrubbing a tempo back and forth hits the cache.
const markerCacheSize = 16

// Marker is a derived visual timing reference. It is never authored or
// persisted; it is always a function of tempo, signature and duration.
type Marker struct {
	Time           float64 `json:"time"`
	BeatIndex      int     `json:"beatIndex"`
	MeasureIndex   int     `json:"measureIndex"`
	Subdivision    int     `json:"subdivision"`
	IsBeat         bool    `json:"isBeat"`
	IsMeasureStart bool    `json:"isMeasureStart"`
	IsVisible      bool    `json:"isVisible"`
}

type markerKey struct {
	tempo       float64
	signature   TimeSignature
	duration    float64
	subdivision float64
}

// MarkerGenerator produces beat and measure markers and caches them by layout.
type MarkerGenerator struct {
	mu          sync.Mutex
	subdivision float64
	cache       *lru.Cache[markerKey, []Marker]
	current     []Marker
	currentKey  markerKey
	generated   int
}

// NewMarkerGenerator returns a generator stepping in subdivision beats.
func NewMarkerGenerator(subdivision float64) (*MarkerGenerator, error) {
	if !(subdivision > 0) || !scale.Finite(subdivision) {
		subdivision = DefaultSubdivision
	}
	cache, err := lru.New[markerKey, []Marker](markerCacheSize)
	if err != nil {
		return nil, err
	}
	return &MarkerGenerator{subdivision: subdivision, cache: cache}, nil
}

// Generate returns the markers for the given layout, regenerating only when
// the layout has not been seen recently. The returned slice must not be
// modified.
func (g *MarkerGenerator) Generate(tempo float64, signature TimeSignature, duration float64) []Marker {
	conv := NewConverter(tempo, signature)
	if !(duration >= 0) || !scale.Finite(duration) {
		duration = 0
	}
	key := markerKey{tempo: conv.Tempo(), signature: conv.Signature(), duration: duration, subdivision: g.subdivision}

	g.mu.Lock()
	defer g.mu.Unlock()

	if markers, ok := g.cache.Get(key); ok {
		g.current, g.currentKey = markers, key
		return markers
	}

	markers := g.build(conv, duration)
	g.cache.Add(key, markers)
	g.current, g.currentKey = markers, key
	g.generated++

	logger.GetComponentLogger("rhythm").WithFields(logrus.Fields{
		"tempo": key.tempo, "signature": key.signature.String(), "duration": duration, "count": len(markers),
	}).Debug("generated beat markers")

	return markers
}

func (g *MarkerGenerator) build(conv Converter, duration float64) []Marker {
	totalBeats := conv.SecondsToBeats(duration)
	// the epsilon keeps a marker that lands exactly on duration
	steps := int(math.Floor(totalBeats/g.subdivision+1e-9)) + 1
	perBeat := int(math.Round(1 / g.subdivision))
	if perBeat < 1 {
		perBeat = 1
	}
	num := conv.Signature().Numerator

	markers := make([]Marker, 0, steps)
	for i := 0; i < steps; i++ {
		beats := float64(i) * g.subdivision
		beatIndex := int(math.Floor(beats + 1e-9))
		sub := i % perBeat
		isBeat := math.Abs(beats-math.Round(beats)) < 1e-9
		markers = append(markers, Marker{
			Time:           conv.BeatsToSeconds(beats),
			BeatIndex:      beatIndex,
			MeasureIndex:   beatIndex / num,
			Subdivision:    sub,
			IsBeat:         isBeat,
			IsMeasureStart: isBeat && beatIndex%num == 0,
		})
	}
	return markers
}

// Markers returns the most recently generated markers.
func (g *MarkerGenerator) Markers() []Marker {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Generated returns how many times markers were actually built rather than
// served from the cache.
func (g *MarkerGenerator) Generated() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generated
}

// VisibleMarkers returns copies of the current markers within [start, end],
// flagged visible. The cached sequence is left untouched.
func (g *MarkerGenerator) VisibleMarkers(start, end float64) []Marker {
	g.mu.Lock()
	markers := g.current
	g.mu.Unlock()

	if end < start {
		return nil
	}
	lo, _ := slices.BinarySearchFunc(markers, start, func(m Marker, t float64) int {
		return cmpFloat(m.Time, t)
	})
	hi, found := slices.BinarySearchFunc(markers, end, func(m Marker, t float64) int {
		return cmpFloat(m.Time, t)
	})
	if found {
		hi++
	}
	if lo >= hi {
		return nil
	}

	visible := slices.Clone(markers[lo:hi])
	for i := range visible {
		visible[i].IsVisible = true
	}
	return visible
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
