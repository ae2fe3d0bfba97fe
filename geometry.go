package main

import "math"

// toScreen converts a graph-space point to screen cells for the given pan
// offset and zoom scale: screen = viewportCenter + pan + graph*zoom.
func toScreen(p Point, pan Point, zoom float64, viewW, viewH int) Point {
	return Point{
		X: float64(viewW)/2 + pan.X + p.X*zoom,
		Y: float64(viewH)/2 + pan.Y + p.Y*zoom,
	}
}

// toGraph is the exact inverse of toScreen.
func toGraph(s Point, pan Point, zoom float64, viewW, viewH int) Point {
	return Point{
		X: (s.X - float64(viewW)/2 - pan.X) / zoom,
		Y: (s.Y - float64(viewH)/2 - pan.Y) / zoom,
	}
}

// nearestRadius is the connect/snap radius in graph units. Zooming out
// widens it so the on-screen radius stays usable.
func nearestRadius(zoom float64) float64 {
	return math.Max(nearestRadiusBase, nearestRadiusZoomed/zoom)
}

// nearestNote returns the candidate closest to the given graph point,
// excluding self, provided the distance is within the zoom-adjusted radius.
// Ties keep the first candidate encountered.
func nearestNote(candidates []*Note, excluding int64, near Point, zoom float64) (int64, bool) {
	radius := nearestRadius(zoom)
	best := int64(0)
	bestDist := math.Inf(1)
	for _, n := range candidates {
		if n.ID == excluding {
			continue
		}
		dx := n.X - near.X
		dy := n.Y - near.Y
		d := math.Hypot(dx, dy)
		if d <= radius && d < bestDist {
			best = n.ID
			bestDist = d
		}
	}
	if best == 0 {
		return 0, false
	}
	return best, true
}

func clampZoom(z float64) float64 {
	if z < zoomMin {
		return zoomMin
	}
	if z > zoomMax {
		return zoomMax
	}
	return z
}
