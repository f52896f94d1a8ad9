package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Clamp(-1.0, 0, 10))
	assert.Equal(t, 10.0, Clamp(11.0, 0, 10))
	assert.Equal(t, 5.0, Clamp(5.0, 10, 0))
	assert.Equal(t, 3, Clamp(3, 1, 4))
}

func TestToUnitClamp(t *testing.T) {
	t.Parallel()

	f := ToUnitClamp(2, 4)
	assert.Equal(t, 0.0, f(1))
	assert.Equal(t, 0.5, f(3))
	assert.Equal(t, 1.0, f(9))
	assert.Equal(t, 0.0, ToUnitClamp(1, 1)(1))
}

func TestFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, Finite(1.5))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(-1)))
}
