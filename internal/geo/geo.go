// Package geo holds the great-circle math behind proximity queries.
package geo

import (
	"cmp"
	"slices"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const (
	// EarthRadiusKm is the mean earth radius used for all distance conversions.
	EarthRadiusKm = 6371.0

	// KmPerDegreeLat approximates the length of one degree of latitude.
	KmPerDegreeLat = 111.0
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies within the latitude and longitude ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusKm
}

// Box is a latitude/longitude rectangle in degrees. Lon bounds span the full
// range when the covered area crosses the antimeridian or touches a pole.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoundingBox returns a box covering every point within radiusKm of center.
// The box may be larger than the circle; callers filter by DistanceKm.
func BoundingBox(center Point, radiusKm float64) Box {
	angle := s1.Angle(radiusKm / EarthRadiusKm)
	rect := s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), angle).RectBound()

	box := Box{
		MinLat: rect.Lo().Lat.Degrees(),
		MaxLat: rect.Hi().Lat.Degrees(),
		MinLon: -180,
		MaxLon: 180,
	}
	if !rect.Lng.IsFull() && !rect.Lng.IsInverted() {
		box.MinLon = rect.Lo().Lng.Degrees()
		box.MaxLon = rect.Hi().Lng.Degrees()
	}
	return box
}

// RadiusFromLatitudeSpan approximates the radius in km shown by a map viewport
// spanning latitudeDelta degrees: half the span times ~111 km per degree.
func RadiusFromLatitudeSpan(latitudeDelta float64) float64 {
	if latitudeDelta < 0 {
		latitudeDelta = -latitudeDelta
	}
	return latitudeDelta / 2 * KmPerDegreeLat
}

// Ranked pairs an item with its distance from a query center.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// Nearest keeps the items within radiusKm of center and orders them nearest
// first. Items at equal distance keep their input order.
func Nearest[T any](center Point, radiusKm float64, items []T, at func(T) Point) []Ranked[T] {
	ranked := make([]Ranked[T], 0, len(items))
	for _, item := range items {
		d := DistanceKm(center, at(item))
		if d <= radiusKm {
			ranked = append(ranked, Ranked[T]{Item: item, DistanceKm: d})
		}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked[T]) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return ranked
}
