package geom

import (
	"math"
	"testing"
)

func TestArcLengths(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 14},
	}
	s, total := ArcLengths(pts)
	want := []float64{0, 5, 15}
	for i := range want {
		if math.Abs(s[i]-want[i]) > 1e-12 {
			t.Errorf("s[%d] = %v, want %v", i, s[i], want[i])
		}
	}
	if math.Abs(total-15) > 1e-12 {
		t.Errorf("total = %v, want 15", total)
	}

	if s, total := ArcLengths(nil); len(s) != 0 || total != 0 {
		t.Error("empty path should yield empty arc lengths")
	}
	if s, total := ArcLengths([]Point{{X: 7}}); len(s) != 1 || s[0] != 0 || total != 0 {
		t.Error("single point should yield zero arc length")
	}
}

func TestTurnAngles(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}
	angles := TurnAngles(pts)
	if angles[0] != 0 || angles[len(angles)-1] != 0 {
		t.Error("endpoint angles must be zero")
	}
	for i := 1; i < len(angles)-1; i++ {
		if math.Abs(angles[i]-90) > 1e-9 {
			t.Errorf("angles[%d] = %v, want 90", i, angles[i])
		}
	}
}

func TestTurnAngles_DegenerateSegment(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10},
	}
	angles := TurnAngles(pts)
	if angles[1] != 0 || angles[2] != 0 {
		t.Errorf("vertices on a zero-length segment must report 0, got %v", angles)
	}
}

func TestTurnAngles_Collinear(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}
	if a := TurnAngles(pts)[1]; math.Abs(a) > 1e-9 {
		t.Errorf("straight-through vertex angle = %v, want 0", a)
	}
	rev := []Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 0}}
	if a := TurnAngles(rev)[1]; math.Abs(a-180) > 1e-9 {
		t.Errorf("full reversal angle = %v, want 180", a)
	}
}

func TestDirection(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 3, Y: 4}}

	d, ok := Direction(pts, 0, 2)
	if !ok {
		t.Fatal("expected a defined direction")
	}
	if math.Abs(d.X-0.6) > 1e-12 || math.Abs(d.Y-0.8) > 1e-12 {
		t.Errorf("direction = %v, want (0.6, 0.8)", d)
	}

	if _, ok := Direction(pts, 0, 1); ok {
		t.Error("zero-length segment must have no direction")
	}
	if _, ok := Direction(pts, 0, 5); ok {
		t.Error("out-of-range index must have no direction")
	}
	if _, ok := Direction(pts, 1, 1); ok {
		t.Error("identical indices must have no direction")
	}
}

func TestAngleBetweenDeg(t *testing.T) {
	cases := []struct {
		a, b Point
		want float64
	}{
		{Point{X: 1}, Point{X: 1}, 0},
		{Point{X: 1}, Point{Y: 1}, 90},
		{Point{X: 1}, Point{X: -1}, 180},
	}
	for _, c := range cases {
		if got := AngleBetweenDeg(c.a, c.b); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("AngleBetweenDeg(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPointToSegment(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 10, Y: 0}

	q, tt := PointToSegment(Point{X: 4, Y: 3}, a, b)
	if math.Abs(q.X-4) > 1e-12 || math.Abs(q.Y) > 1e-12 || math.Abs(tt-0.4) > 1e-12 {
		t.Errorf("projection = %v at t=%v, want (4,0) at 0.4", q, tt)
	}

	// Beyond either end the parameter clamps.
	if _, tt := PointToSegment(Point{X: -5, Y: 1}, a, b); tt != 0 {
		t.Errorf("t = %v, want clamp to 0", tt)
	}
	if _, tt := PointToSegment(Point{X: 15, Y: 1}, a, b); tt != 1 {
		t.Errorf("t = %v, want clamp to 1", tt)
	}

	q, tt = PointToSegment(Point{X: 5, Y: 5}, a, a)
	if q != a || tt != 0 {
		t.Error("degenerate segment should return its endpoint")
	}
}

func TestPerpendicularDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 10, Y: 0}
	if d := PerpendicularDistance(Point{X: 5, Y: 7}, a, b); math.Abs(d-7) > 1e-12 {
		t.Errorf("distance = %v, want 7", d)
	}
	if d := PerpendicularDistance(Point{X: 3, Y: 4}, a, a); math.Abs(d-5) > 1e-12 {
		t.Errorf("distance to degenerate line = %v, want 5", d)
	}
}
