package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_IdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{4.711, -74.0721},
		{90, 0},
		{-90, 180},
		{12.5, 179.9999},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, DistanceKm(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{0, 0, 0, 1},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{89.9, 10, 89.9, -170},
		{10, 179.9, 10, -179.9},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}
	for _, p := range pairs {
		assert.Equal(t, DistanceKm(p[0], p[1], p[2], p[3]), DistanceKm(p[2], p[3], p[0], p[1]))
	}
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	// one degree of arc on the equator
	oneDegree := EarthRadiusKm * math.Pi / 180
	assert.InDelta(t, oneDegree, DistanceKm(0, 0, 0, 1), 1e-9)
	assert.InDelta(t, oneDegree, DistanceKm(0, 0, 1, 0), 1e-9)

	// antipodes are half the circumference apart
	assert.InDelta(t, EarthRadiusKm*math.Pi, DistanceKm(0, 0, 0, 180), 1e-6)

	// crossing the date line takes the short way round
	assert.InDelta(t, 2*oneDegree, DistanceKm(0, 179, 0, -179), 1e-6)

	// London to Paris is roughly 344 km
	assert.InDelta(t, 343.5, DistanceKm(51.5074, -0.1278, 48.8566, 2.3522), 1.0)
}

func TestDistanceKm_NearPole(t *testing.T) {
	// two points on opposite meridians close to the pole
	d := DistanceKm(89.99, 0, 89.99, 180)
	assert.InDelta(t, 2*0.01*EarthRadiusKm*math.Pi/180, d, 1e-6)
}
