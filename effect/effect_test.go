package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasingLookup(t *testing.T) {
	t.Parallel()

	fn, ok := Easing("In-Out-Quart")
	require.True(t, ok)
	assert.Equal(t, 0.0, fn(0))
	assert.Equal(t, 1.0, fn(1))

	_, ok = Easing("wobble")
	assert.False(t, ok)
	assert.Contains(t, EasingNames(), DefaultEasing)
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		from     map[string]any
		to       map[string]any
		progress float64
		easing   string
		key      string
		expected any
	}{
		{"linear number", map[string]any{"x": 0.0}, map[string]any{"x": 10.0}, 0.5, "linear", "x", 5.0},
		{"int promoted", map[string]any{"x": 0}, map[string]any{"x": 4}, 0.25, "", "x", 1.0},
		{"progress clamped", map[string]any{"x": 0.0}, map[string]any{"x": 10.0}, 3, "linear", "x", 10.0},
		{"eased start", map[string]any{"x": 0.0}, map[string]any{"x": 10.0}, 0, "in-quad", "x", 0.0},
		{"step before end", map[string]any{"mode": "walk"}, map[string]any{"mode": "run"}, 0.9, "linear", "mode", "walk"},
		{"step at end", map[string]any{"mode": "walk"}, map[string]any{"mode": "run"}, 1, "linear", "mode", "run"},
		{"only in to", map[string]any{}, map[string]any{"y": 2.0}, 0.1, "linear", "y", 2.0},
		{"only in from", map[string]any{"z": 3.0}, map[string]any{}, 0.1, "linear", "z", 3.0},
		{"colour endpoint", map[string]any{"c": "#ff0000"}, map[string]any{"c": "#0000ff"}, 1, "linear", "c", "#0000ff"},
		{"named colour start", map[string]any{"c": "white"}, map[string]any{"c": "black"}, 0, "linear", "c", "#ffffff"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := Interpolate(tc.from, tc.to, tc.progress, tc.easing)
			assert.Equal(t, tc.expected, out[tc.key])
		})
	}
}

func TestBlendColors(t *testing.T) {
	t.Parallel()

	mid, ok := BlendColors("#000000", "#ffffff", 0.5)
	require.True(t, ok)
	assert.NotEqual(t, "#000000", mid)
	assert.NotEqual(t, "#ffffff", mid)

	_, ok = BlendColors("not a colour", "#ffffff", 0.5)
	assert.False(t, ok)
}
