package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	// Silk Board to Electronic City, roughly 10.5 km apart
	d := Haversine(12.9178, 77.6229, 12.8399, 77.6770)
	assert.InDelta(t, 10.46, d, 0.1)

	assert.Zero(t, Haversine(12.9178, 77.6229, 12.9178, 77.6229))
	assert.InDelta(t, d, Haversine(12.8399, 77.6770, 12.9178, 77.6229), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
	assert.Equal(t, 0.0, Clamp(0, 0, 10))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 7, ClampInt(7, 0, 10))
	assert.Equal(t, 0, ClampInt(-3, 0, 10))
	assert.Equal(t, 10, ClampInt(42, 0, 10))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 33.8, RoundTo(33.75, 1))
	assert.Equal(t, -8.8, RoundTo(-8.75, 1))
	assert.Equal(t, 3.0, RoundTo(2.5, 0))
	assert.Equal(t, 3.14, RoundTo(3.14159, 2))
	assert.Equal(t, 0.0, RoundTo(0.04, 1))
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
	assert.Equal(t, 2.0, Lerp(2, 4, 0))
	assert.Equal(t, 4.0, Lerp(2, 4, 1))
	assert.Equal(t, 12.5, Lerp(10, 20, 0.25))
	assert.Equal(t, 15.0, Lerp(0, 10, 1.5))
}
