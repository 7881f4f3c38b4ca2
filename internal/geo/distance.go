package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for all trip distances.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometers between two
// latitude/longitude pairs given in degrees. Inputs are expected to be
// normalized to [-90,90]x[-180,180]; nothing is validated here.
//
// The points are put in a fixed order first so that swapping them gives a
// bit-identical result.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 > lat2 || (lat1 == lat2 && lon1 > lon2) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusKm
}
