// Package geom provides the planar and geographic geometry primitives shared
// by the route post-processing pipeline: arc lengths, turn angles, local
// metric projection and bounding-box tiling.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a position along a route in local planar meters. Z is carried
// through every transformation but is typically zero for driving routes.
type Point = r3.Vec

// Constants for degenerate-geometry detection
const (
	// MinSegmentLength is the segment length below which a direction is
	// considered undefined.
	MinSegmentLength = 1e-8
	// MinTotalLength is the total arc length below which a polyline is
	// treated as a single degenerate point cloud.
	MinTotalLength = 1e-6
)

// ArcLengths returns the cumulative arc length at every vertex (s[0]=0) and
// the total length of the polyline.
func ArcLengths(points []Point) ([]float64, float64) {
	s := make([]float64, len(points))
	if len(points) < 2 {
		return s, 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += r3.Norm(r3.Sub(points[i], points[i-1]))
		s[i] = total
	}
	return s, total
}

// TurnAngles returns the turn angle in degrees at every vertex: the angle
// between the segment arriving at the vertex and the segment leaving it.
// Endpoints and vertices adjacent to a near-zero segment report 0.
func TurnAngles(points []Point) []float64 {
	angles := make([]float64, len(points))
	if len(points) < 3 {
		return angles
	}
	for i := 1; i < len(points)-1; i++ {
		a := r3.Sub(points[i], points[i-1])
		b := r3.Sub(points[i+1], points[i])
		if r3.Norm(a) < MinSegmentLength || r3.Norm(b) < MinSegmentLength {
			continue
		}
		angles[i] = math.Acos(clamp(r3.Cos(a, b), -1, 1)) * 180 / math.Pi
	}
	return angles
}

// Direction returns the unit vector from points[a] to points[b]. The second
// return value is false when either index is out of range or the segment is
// too short to carry a direction.
func Direction(points []Point, a, b int) (Point, bool) {
	if a < 0 || b < 0 || a >= len(points) || b >= len(points) || a == b {
		return Point{}, false
	}
	v := r3.Sub(points[b], points[a])
	if r3.Norm(v) < MinSegmentLength {
		return Point{}, false
	}
	return r3.Unit(v), true
}

// AngleBetweenDeg returns the angle between two vectors in degrees (0-180).
func AngleBetweenDeg(a, b Point) float64 {
	return math.Acos(clamp(r3.Cos(a, b), -1, 1)) * 180 / math.Pi
}

// PointToSegment returns the closest point Q on segment AB to P, and the
// parameter t in [0,1] locating Q along AB. Works in the XY plane only; Z is
// interpolated.
func PointToSegment(p, a, b Point) (Point, float64) {
	v := r3.Sub(b, a)
	segLen2 := v.X*v.X + v.Y*v.Y
	if segLen2 == 0 {
		return a, 0
	}
	w := r3.Sub(p, a)
	t := clamp((w.X*v.X+w.Y*v.Y)/segLen2, 0, 1)
	return r3.Add(a, r3.Scale(t, v)), t
}

// PerpendicularDistance returns the XY-plane distance from p to the segment
// ab, falling back to point distance when the segment is degenerate.
func PerpendicularDistance(p, a, b Point) float64 {
	q, _ := PointToSegment(p, a, b)
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
