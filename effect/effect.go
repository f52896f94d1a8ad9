package effect

import (
	"sort"
	"strings"

	"github.com/fogleman/ease"
	"github.com/robmorgan/cadence/engine/scale"
)

// DefaultEasing is used when a keyframe names no easing, or an unknown one.
const DefaultEasing = "linear"

var easings = map[string]ease.Function{
	"linear":         ease.Linear,
	"in-quad":        ease.InQuad,
	"out-quad":       ease.OutQuad,
	"in-out-quad":    ease.InOutQuad,
	"in-cubic":       ease.InCubic,
	"out-cubic":      ease.OutCubic,
	"in-out-cubic":   ease.InOutCubic,
	"in-quart":       ease.InQuart,
	"out-quart":      ease.OutQuart,
	"in-out-quart":   ease.InOutQuart,
	"in-sine":        ease.InSine,
	"out-sine":       ease.OutSine,
	"in-out-sine":    ease.InOutSine,
	"in-expo":        ease.InExpo,
	"out-expo":       ease.OutExpo,
	"in-out-expo":    ease.InOutExpo,
	"out-bounce":     ease.OutBounce,
	"out-elastic":    ease.OutElastic,
	"in-out-elastic": ease.InOutElastic,
}

// Easing looks up an easing curve by name.
func Easing(name string) (ease.Function, bool) {
	fn, ok := easings[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// EasingNames lists the supported easing curves.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interpolate blends two property maps. progress is clamped to [0,1] and then
// shaped by the named easing curve. Numbers are interpolated linearly, colour
// strings are blended in Lab space, and anything else switches from the "from"
// value to the "to" value once progress reaches 1. Keys present in only one
// map hold that map's value.
func Interpolate(from, to map[string]any, progress float64, easing string) map[string]any {
	fn, ok := Easing(easing)
	if !ok {
		fn = ease.Linear
	}
	t := fn(scale.Clamp(progress, 0, 1))

	out := make(map[string]any, len(from)+len(to))
	for k, v := range from {
		out[k] = v
	}
	for k, b := range to {
		a, ok := from[k]
		if !ok {
			out[k] = b
			continue
		}
		out[k] = blend(a, b, t, progress >= 1)
	}
	return out
}

func blend(a, b any, t float64, done bool) any {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return scale.Lerp(fa, fb, t)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			if blended, ok := BlendColors(sa, sb, t); ok {
				return blended
			}
		}
	}
	if done {
		return b
	}
	return a
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
