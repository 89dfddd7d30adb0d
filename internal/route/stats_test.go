package route

import (
	"math"
	"testing"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

func TestComputeStats(t *testing.T) {
	// Four segments of 100, 100, 200 and 400 units with one right angle.
	pts := []struct{ x, y float64 }{
		{0, 0}, {100, 0}, {200, 0}, {400, 0}, {400, 400},
	}
	path := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		path = append(path, pt(p.x, p.y))
	}

	s := ComputeStats(path)
	if s.PointCount != 5 {
		t.Errorf("PointCount = %d, want 5", s.PointCount)
	}
	if math.Abs(s.LengthM-800) > 1e-9 {
		t.Errorf("LengthM = %v, want 800", s.LengthM)
	}
	// Empirical quantiles over sorted segments [100 100 200 400].
	if math.Abs(s.SegmentP50M-100) > 1e-9 {
		t.Errorf("SegmentP50M = %v, want 100", s.SegmentP50M)
	}
	if math.Abs(s.SegmentP95M-400) > 1e-9 {
		t.Errorf("SegmentP95M = %v, want 400", s.SegmentP95M)
	}
	if math.Abs(s.MaxTurnAngleDeg-90) > 1e-9 {
		t.Errorf("MaxTurnAngleDeg = %v, want 90", s.MaxTurnAngleDeg)
	}
}

func TestComputeStats_Degenerate(t *testing.T) {
	if s := ComputeStats(nil); s != (Stats{}) {
		t.Errorf("empty path should report zeros, got %+v", s)
	}
	s := ComputeStats([]geom.Point{pt(1, 2)})
	if s.PointCount != 1 || s.LengthM != 0 {
		t.Errorf("single point should have zero length, got %+v", s)
	}
}
