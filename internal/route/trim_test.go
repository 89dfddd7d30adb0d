package route

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

func pt(x, y float64) geom.Point {
	return geom.Point{X: x, Y: y}
}

// sameSlice reports whether two slices share the same backing array and
// length, i.e. the trimmer returned its input untouched.
func sameSlice(a, b []geom.Point) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

func TestTrimUTurns_ShortInputReturnsSameSlice(t *testing.T) {
	cfg := DefaultTrimConfig()

	for _, pts := range [][]geom.Point{
		nil,
		{},
		{pt(0, 0)},
		{pt(0, 0), pt(1, 0)},
		{pt(0, 0), pt(1, 0), pt(1, 1)},
	} {
		out := TrimUTurns(pts, cfg)
		if !sameSlice(pts, out) {
			t.Errorf("expected identity for %d points, got %d points", len(pts), len(out))
		}
	}
}

func TestTrimUTurns_ZeroLengthReturnsSameSlice(t *testing.T) {
	pts := []geom.Point{pt(3, 4), pt(3, 4), pt(3, 4), pt(3, 4), pt(3, 4)}
	out := TrimUTurns(pts, DefaultTrimConfig())
	if !sameSlice(pts, out) {
		t.Error("expected identity for zero-length polyline")
	}
}

func TestTrimUTurns_CleanPathUnchangedAndIdempotent(t *testing.T) {
	// Gentle curve, no sharp corners anywhere.
	pts := []geom.Point{
		pt(0, 0), pt(100, 5), pt(200, 15), pt(300, 30), pt(400, 50), pt(500, 75),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())
	if !sameSlice(pts, out) {
		t.Fatal("clean path should be returned unchanged")
	}
	again := TrimUTurns(out, DefaultTrimConfig())
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("second pass changed output (-first +second):\n%s", diff)
	}
}

func TestTrimUTurns_DegenerateSegmentsTolerated(t *testing.T) {
	// Repeated vertices produce zero-length segments; turn angles there are
	// treated as zero and must not panic or trigger a trim.
	pts := []geom.Point{
		pt(0, 0), pt(0, 0), pt(100, 0), pt(100, 0), pt(200, 0), pt(300, 0),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())
	if !sameSlice(pts, out) {
		t.Error("straight path with duplicate vertices should be unchanged")
	}
}

func TestTrimUTurns_StartLoop(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(-340, 10),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())

	want := []geom.Point{pt(0, 10), pt(-340, 10)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("start loop trim mismatch (-want +got):\n%s", diff)
	}
}

func TestTrimUTurns_EndLoop(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(300, 0), pt(600, 0), pt(880, 0), pt(900, 0), pt(900, 10), pt(850, 10),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())

	want := []geom.Point{pt(0, 0), pt(300, 0), pt(600, 0), pt(880, 0), pt(900, 0)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("end loop trim mismatch (-want +got):\n%s", diff)
	}
}

func TestTrimUTurns_BothEnds(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10),
		pt(-300, 10), pt(-560, 10), pt(-600, 10),
		pt(-600, 0), pt(-590, 0),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())

	want := []geom.Point{pt(0, 10), pt(-300, 10), pt(-560, 10), pt(-600, 10)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("double-ended trim mismatch (-want +got):\n%s", diff)
	}
}

func TestTrimUTurns_MidRouteLoopPreserved(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(200, 0), pt(200, 10), pt(150, 10), pt(150, 0), pt(700, 0),
	}
	out := TrimUTurns(pts, DefaultTrimConfig())
	if !sameSlice(pts, out) {
		t.Error("interior hairpin must never be trimmed")
	}
}

func TestTrimUTurns_OversizedLoopRejected(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(-340, 10),
	}
	cfg := DefaultTrimConfig()
	cfg.MaxUTurnFraction = 0.05 // loop spans ~8% of total length
	out := TrimUTurns(pts, cfg)
	if !sameSlice(pts, out) {
		t.Error("loop larger than MaxUTurnFraction must be kept")
	}
}

func TestTrimUTurns_ParameterGates(t *testing.T) {
	pts := []geom.Point{
		pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(-340, 10),
	}

	t.Run("shrunk window", func(t *testing.T) {
		cfg := DefaultTrimConfig()
		cfg.WindowFraction = 0.01
		if out := TrimUTurns(pts, cfg); !sameSlice(pts, out) {
			t.Error("loop outside the analysis window must be kept")
		}
	})

	t.Run("raised corner threshold", func(t *testing.T) {
		cfg := DefaultTrimConfig()
		cfg.CornerAngleMinDeg = 175
		if out := TrimUTurns(pts, cfg); !sameSlice(pts, out) {
			t.Error("90-degree corners below the threshold must not trigger a trim")
		}
	})

	t.Run("out-of-range corner threshold", func(t *testing.T) {
		cfg := DefaultTrimConfig()
		cfg.CornerAngleMinDeg = 200 // outside 0-180; simply yields no candidates
		if out := TrimUTurns(pts, cfg); !sameSlice(pts, out) {
			t.Error("impossible corner threshold must behave as no candidates")
		}
	})
}

func TestTrimUTurns_SafetyGuard(t *testing.T) {
	// The loop qualifies on every threshold, but cutting it would keep only
	// 20 of 320 units, below min(50, 20% of total).
	pts := []geom.Point{
		pt(0, 0), pt(100, 0), pt(100, 100), pt(0, 100), pt(-20, 100),
	}
	cfg := DefaultTrimConfig()
	cfg.WindowFraction = 0.95
	cfg.MaxUTurnFraction = 0.95
	out := TrimUTurns(pts, cfg)
	if !sameSlice(pts, out) {
		t.Error("trim violating the minimum-remaining guard must be discarded")
	}
}

func TestTrimUTurns_OutputIsContiguousSubsequence(t *testing.T) {
	inputs := [][]geom.Point{
		{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(-340, 10)},
		{pt(0, 0), pt(300, 0), pt(600, 0), pt(880, 0), pt(900, 0), pt(900, 10), pt(850, 10)},
		{pt(0, 0), pt(200, 0), pt(200, 10), pt(150, 10), pt(150, 0), pt(700, 0)},
		{pt(0, 0), pt(100, 5), pt(200, 15), pt(300, 30)},
	}
	for _, pts := range inputs {
		out := TrimUTurns(pts, DefaultTrimConfig())
		if len(out) > len(pts) {
			t.Fatalf("output grew: %d -> %d points", len(pts), len(out))
		}
		if !isContiguousSubsequence(pts, out) {
			t.Errorf("output is not a contiguous subsequence of the input: %v", out)
		}
	}
}

func isContiguousSubsequence(in, out []geom.Point) bool {
	if len(out) == 0 {
		return true
	}
	for offset := 0; offset+len(out) <= len(in); offset++ {
		match := true
		for i := range out {
			if in[offset+i] != out[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
