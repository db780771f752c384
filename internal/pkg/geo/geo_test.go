package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Latitude: -6.2088, Longitude: 106.8456} // Jakarta
	b := Point{Latitude: -7.7956, Longitude: 110.3695} // Yogyakarta

	ab, err := Distance(a, b)
	require.NoError(t, err)
	ba, err := Distance(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Greater(t, ab, 0.0)
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Latitude: 52.5200, Longitude: 13.4050}

	d, err := Distance(p, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestDistanceKnownValue(t *testing.T) {
	// Roughly 111.19 km per degree of latitude at the equator.
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 1, Longitude: 0}

	d, err := Distance(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 111195, d, 50)
}

func TestDistanceRejectsInvalidInput(t *testing.T) {
	valid := Point{Latitude: 0, Longitude: 0}

	cases := []struct {
		name string
		p    Point
	}{
		{"nan latitude", Point{Latitude: math.NaN(), Longitude: 0}},
		{"inf longitude", Point{Latitude: 0, Longitude: math.Inf(1)}},
		{"latitude above range", Point{Latitude: 90.1, Longitude: 0}},
		{"longitude below range", Point{Latitude: 0, Longitude: -180.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Distance(valid, tc.p)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)

			_, err = Distance(tc.p, valid)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestWithinFence(t *testing.T) {
	center := Point{Latitude: -6.2088, Longitude: 106.8456}
	// ~100m north of center.
	near := Point{Latitude: center.Latitude + 100.0/111195.0, Longitude: center.Longitude}

	within, d, err := WithinFence(near, center, 150)
	require.NoError(t, err)
	assert.True(t, within)
	assert.InDelta(t, 100, d, 2)

	within, _, err = WithinFence(near, center, 50)
	require.NoError(t, err)
	assert.False(t, within)
}

func TestWithinFencePtrFailsClosedOnMissingCoordinate(t *testing.T) {
	lat := -6.2088
	lon := 106.8456

	within, d := WithinFencePtr(nil, &lon, &lat, &lon, 1000)
	assert.False(t, within)
	assert.Equal(t, 0.0, d)

	within, _ = WithinFencePtr(&lat, &lon, nil, nil, 1000)
	assert.False(t, within)
}
