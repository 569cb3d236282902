// Package geo provides the spherical geometry for midpoint lookups.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Midpoint returns the geographic midpoint of two coordinates, computed by
// averaging their unit vectors on the sphere. Unlike a naive lat/lng
// average, this stays correct across the antimeridian.
func Midpoint(aLat, aLng, bLat, bLng float64) (lat, lng float64) {
	aLatR, aLngR := radians(aLat), radians(aLng)
	bLatR, bLngR := radians(bLat), radians(bLng)

	ax := math.Cos(aLatR) * math.Cos(aLngR)
	ay := math.Cos(aLatR) * math.Sin(aLngR)
	az := math.Sin(aLatR)

	bx := math.Cos(bLatR) * math.Cos(bLngR)
	by := math.Cos(bLatR) * math.Sin(bLngR)
	bz := math.Sin(bLatR)

	mx, my, mz := (ax+bx)/2, (ay+by)/2, (az+bz)/2

	lng = degrees(math.Atan2(my, mx))
	hyp := math.Sqrt(mx*mx + my*my)
	lat = degrees(math.Atan2(mz, hyp))
	return lat, lng
}

// HaversineMeters returns the great-circle distance between two coordinates
// in meters.
func HaversineMeters(aLat, aLng, bLat, bLng float64) float64 {
	dLat := radians(bLat - aLat)
	dLng := radians(bLng - aLng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(radians(aLat))*math.Cos(radians(bLat))*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
