package main

import (
	"math"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/service"
)

const metersPerDegreeLat = 111195.0

// walker turns route points into the fixes a device would report. Fixes
// closer than minMovement to the last reported one are dropped, matching the
// device-side location filter.
type walker struct {
	points      []domain.Coordinate
	minMovement float64
	driftFrom   int
	driftMeters float64

	next     int
	last     *domain.Coordinate
	reported int
}

func newWalker(points []domain.Coordinate, minMovement float64, driftFrom int, driftMeters float64) *walker {
	return &walker{
		points:      points,
		minMovement: minMovement,
		driftFrom:   driftFrom,
		driftMeters: driftMeters,
	}
}

// Next returns the next fix to report, or false once the route is done.
func (w *walker) Next() (domain.Coordinate, bool) {
	for w.next < len(w.points) {
		i := w.next
		w.next++

		pos := w.points[i]
		if w.driftMeters > 0 && w.driftFrom >= 0 && i >= w.driftFrom {
			pos = shiftEast(pos, w.driftMeters)
		}

		if w.last != nil && service.Distance(*w.last, pos) < w.minMovement {
			continue
		}
		w.last = &pos
		w.reported++
		return pos, true
	}
	return domain.Coordinate{}, false
}

func shiftEast(c domain.Coordinate, meters float64) domain.Coordinate {
	scale := math.Cos(c.Lat * math.Pi / 180)
	if scale < 1e-6 {
		return c
	}
	return domain.Coordinate{Lat: c.Lat, Lon: c.Lon + meters/(metersPerDegreeLat*scale)}
}
