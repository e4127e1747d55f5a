package service

import (
	"math"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

const (
	earthRadiusMeters = 6371000

	// DefaultDeviationRadius is how far from every route point a user can be
	// before counting as off-route.
	DefaultDeviationRadius = 100.0
)

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just outside [0,1] near antipodes
	h = math.Min(1, math.Max(0, h))
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// DeviationChecker classifies a position against a route's point set.
type DeviationChecker struct {
	radius float64
}

func NewDeviationChecker(radius float64) DeviationChecker {
	if radius <= 0 {
		radius = DefaultDeviationRadius
	}
	return DeviationChecker{radius: radius}
}

func (c DeviationChecker) Radius() float64 {
	return c.radius
}

// Check finds the nearest route point to current. The comparison is against
// points, not segments between them.
func (c DeviationChecker) Check(current domain.Coordinate, points []domain.Coordinate) domain.DeviationResult {
	if len(points) == 0 {
		return domain.DeviationResult{}
	}

	minDistance := math.Inf(1)
	for _, p := range points {
		if d := Distance(current, p); d < minDistance {
			minDistance = d
		}
	}

	return domain.DeviationResult{
		IsDeviated:  minDistance > c.radius,
		MinDistance: minDistance,
	}
}

// CheckDeviation runs Check with DefaultDeviationRadius.
func CheckDeviation(current domain.Coordinate, points []domain.Coordinate) domain.DeviationResult {
	return NewDeviationChecker(DefaultDeviationRadius).Check(current, points)
}
