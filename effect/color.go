package effect

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var namedColors = map[string]string{
	"white":  "#ffffff",
	"black":  "#000000",
	"red":    "#ff0000",
	"green":  "#00ff00",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"gold":   "#ffd700",
	"orange": "#ffa500",
	"purple": "#800080",
}

// ParseColor accepts "#rrggbb" hex strings and a handful of colour names.
func ParseColor(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		return colorful.Color{}, false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

// BlendColors blends two colours in Lab space and returns the result as hex.
// ok is false when either input is not a colour.
func BlendColors(from, to string, t float64) (string, bool) {
	a, ok := ParseColor(from)
	if !ok {
		return "", false
	}
	b, ok := ParseColor(to)
	if !ok {
		return "", false
	}
	return a.BlendLab(b, t).Clamped().Hex(), true
}
