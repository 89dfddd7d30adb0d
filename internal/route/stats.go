package route

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

// Stats summarises the shape of a route polyline for API consumers and the
// bulk-run report.
type Stats struct {
	PointCount      int     `json:"point_count"`
	LengthM         float64 `json:"length_m"`
	SegmentP50M     float64 `json:"segment_p50_m"`
	SegmentP95M     float64 `json:"segment_p95_m"`
	MaxTurnAngleDeg float64 `json:"max_turn_angle_deg"`
}

// ComputeStats returns summary statistics for a polyline. Quantiles are
// empirical over segment lengths; a path with fewer than two points reports
// zeros.
func ComputeStats(points []geom.Point) Stats {
	s := Stats{PointCount: len(points)}
	if len(points) < 2 {
		return s
	}

	segments := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		d := r3.Norm(r3.Sub(points[i], points[i-1]))
		segments = append(segments, d)
		s.LengthM += d
	}
	sort.Float64s(segments)
	s.SegmentP50M = stat.Quantile(0.50, stat.Empirical, segments, nil)
	s.SegmentP95M = stat.Quantile(0.95, stat.Empirical, segments, nil)

	for _, a := range geom.TurnAngles(points) {
		if a > s.MaxTurnAngleDeg {
			s.MaxTurnAngleDeg = a
		}
	}
	return s
}
