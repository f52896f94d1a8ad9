package rhythm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMarkers(t *testing.T) {
	t.Parallel()

	g, err := NewMarkerGenerator(DefaultSubdivision)
	require.NoError(t, err)

	markers := g.Generate(120, CommonTime, 2)
	require.Len(t, markers, 17)

	assert.True(t, markers[0].IsMeasureStart)
	assert.Equal(t, 0.0, markers[0].Time)

	assert.Equal(t, 0.125, markers[1].Time)
	assert.False(t, markers[1].IsBeat)
	assert.Equal(t, 1, markers[1].Subdivision)

	assert.True(t, markers[4].IsBeat)
	assert.False(t, markers[4].IsMeasureStart)
	assert.Equal(t, 1, markers[4].BeatIndex)

	last := markers[16]
	assert.Equal(t, 2.0, last.Time)
	assert.Equal(t, 4, last.BeatIndex)
	assert.Equal(t, 1, last.MeasureIndex)
	assert.True(t, last.IsMeasureStart)

	for i := 1; i < len(markers); i++ {
		require.Greater(t, markers[i].Time, markers[i-1].Time)
	}
}

func TestGenerateOddMeter(t *testing.T) {
	t.Parallel()

	g, err := NewMarkerGenerator(1)
	require.NoError(t, err)

	markers := g.Generate(60, TimeSignature{Numerator: 3, Denominator: 4}, 6)
	require.Len(t, markers, 7)

	var starts []int
	for _, m := range markers {
		if m.IsMeasureStart {
			starts = append(starts, m.BeatIndex)
		}
	}
	assert.Equal(t, []int{0, 3, 6}, starts)
}

func TestGenerateUsesCache(t *testing.T) {
	t.Parallel()

	g, err := NewMarkerGenerator(DefaultSubdivision)
	require.NoError(t, err)

	g.Generate(120, CommonTime, 10)
	g.Generate(120, CommonTime, 10)
	assert.Equal(t, 1, g.Generated())

	faster := g.Generate(140, CommonTime, 10)
	assert.Equal(t, 2, g.Generated())
	assert.Equal(t, faster, g.Markers())

	// switching back is served from the cache but still becomes current
	again := g.Generate(120, CommonTime, 10)
	assert.Equal(t, 2, g.Generated())
	assert.Equal(t, again, g.Markers())
	assert.Equal(t, 0.125, g.Markers()[1].Time)
}

func TestVisibleMarkers(t *testing.T) {
	t.Parallel()

	g, err := NewMarkerGenerator(DefaultSubdivision)
	require.NoError(t, err)
	g.Generate(120, CommonTime, 4)

	visible := g.VisibleMarkers(0.5, 1.0)
	require.Len(t, visible, 5)
	assert.Equal(t, 0.5, visible[0].Time)
	assert.Equal(t, 1.0, visible[4].Time)
	for _, m := range visible {
		assert.True(t, m.IsVisible)
	}

	// the cached sequence is not mutated
	assert.False(t, g.Markers()[4].IsVisible)

	assert.Len(t, g.VisibleMarkers(0.51, 0.6), 0)
	assert.Nil(t, g.VisibleMarkers(3, 1))
}
