// Package route implements route polyline post-processing: trimming the
// spurious U-turn loops routing services sometimes append at either end of a
// path, thinning dense geometry, and summarising what is left.
package route

import (
	"math"

	"github.com/cashcab-studio/routeprep/internal/geom"
)

// Safety guard: a trim is discarded when the kept portion of the path would
// fall below both of these bounds.
const (
	minRemainingLengthM  = 50.0
	minRemainingFraction = 0.20
)

// TrimConfig holds the thresholds for U-turn detection. All values are used
// as given; out-of-range values simply yield no candidates.
type TrimConfig struct {
	// WindowFraction is the fraction of total arc length examined at each
	// end of the path.
	WindowFraction float64 `json:"window_fraction"`
	// CornerAngleMinDeg is the minimum turn angle at a vertex to count it as
	// a corner candidate.
	CornerAngleMinDeg float64 `json:"corner_angle_min_deg"`
	// DirectionReverseDeg is the minimum angle between the headings before
	// and after a corner pair for the pair to qualify as a U-turn.
	DirectionReverseDeg float64 `json:"direction_reverse_deg"`
	// MaxUTurnFraction rejects candidate loops spanning more than this
	// fraction of total arc length.
	MaxUTurnFraction float64 `json:"max_uturn_fraction"`
}

// DefaultTrimConfig returns the thresholds tuned for road routes from OSRM.
func DefaultTrimConfig() TrimConfig {
	return TrimConfig{
		WindowFraction:      0.10,
		CornerAngleMinDeg:   70.0,
		DirectionReverseDeg: 150.0,
		MaxUTurnFraction:    0.10,
	}
}

// TrimUTurns detects and removes U-turn loops near the start and end of a
// polyline. Start and end are evaluated independently; a start trim is
// applied first and the end window is then recomputed on the shortened path.
//
// The input is never mutated. When nothing is trimmed the original slice is
// returned unchanged, which callers use to detect a no-op cheaply. Inputs
// with fewer than four points or near-zero total length are returned as-is.
func TrimUTurns(points []geom.Point, cfg TrimConfig) []geom.Point {
	n := len(points)
	if n < 4 {
		return points
	}
	s, total := geom.ArcLengths(points)
	if total < geom.MinTotalLength {
		return points
	}

	angles := geom.TurnAngles(points)
	windowLen := math.Max(0, cfg.WindowFraction) * total
	pts := points

	// Start side: cut after the detected loop.
	startCut := -1
	if startMax := windowEndIndex(s, windowLen); startMax >= 3 {
		corners := cornerIndexes(angles, 1, startMax, cfg.CornerAngleMinDeg)
		for k := 0; k+1 < len(corners); k++ {
			i, j := corners[k], corners[k+1]
			i0, j1 := max(i-1, 0), min(j+1, n-1)
			if s[j1]-s[i0] > cfg.MaxUTurnFraction*total {
				// Too long to be a spurious loop; try the next pair.
				continue
			}
			dirBefore, ok := geom.Direction(pts, i-1, i)
			if !ok {
				continue
			}
			dirAfter, ok := geom.Direction(pts, j, j1)
			if !ok {
				continue
			}
			if geom.AngleBetweenDeg(dirBefore, dirAfter) < cfg.DirectionReverseDeg {
				continue
			}
			if j1 < n-1 && total-s[j1] >= minRemaining(total) {
				startCut = j1
			}
			// First reversal match wins, qualified or not.
			break
		}
	}

	startTrimmed := false
	if startCut > 0 {
		pts = pts[startCut:]
		startTrimmed = true
		n = len(pts)
		if n < 4 {
			return pts
		}
		s, total = geom.ArcLengths(pts)
		if total < geom.MinTotalLength {
			return pts
		}
		angles = geom.TurnAngles(pts)
		windowLen = math.Max(0, cfg.WindowFraction) * total
	}

	// End side: cut before the detected loop, keeping its first corner.
	if endMin := windowStartIndex(s, math.Max(0, total-windowLen)); endMin <= n-4 {
		corners := cornerIndexes(angles, endMin, n-1, cfg.CornerAngleMinDeg)
		for k := 0; k+1 < len(corners); k++ {
			i, j := corners[k], corners[k+1]
			i0, j1 := max(i-1, 0), min(j+1, n-1)
			if s[j1]-s[i0] > cfg.MaxUTurnFraction*total {
				continue
			}
			dirBefore, ok := geom.Direction(pts, i-1, i)
			if !ok {
				continue
			}
			dirAfter, ok := geom.Direction(pts, j, j1)
			if !ok {
				continue
			}
			if geom.AngleBetweenDeg(dirBefore, dirAfter) < cfg.DirectionReverseDeg {
				continue
			}
			if i < n-1 && s[i] >= minRemaining(total) {
				return pts[:i+1]
			}
			break
		}
	}

	if startTrimmed {
		return pts
	}
	return points
}

// minRemaining is the arc length the kept portion must retain for a trim to
// be committed.
func minRemaining(total float64) float64 {
	return math.Min(minRemainingLengthM, total*minRemainingFraction)
}

// windowEndIndex returns the largest index with s[i] <= maxS.
func windowEndIndex(s []float64, maxS float64) int {
	idx := 0
	for i, v := range s {
		if v > maxS {
			break
		}
		idx = i
	}
	return idx
}

// windowStartIndex returns the smallest index with s[i] >= minS, or the last
// index when none qualifies.
func windowStartIndex(s []float64, minS float64) int {
	for i, v := range s {
		if v >= minS {
			return i
		}
	}
	return max(0, len(s)-1)
}

// cornerIndexes collects vertex indexes in [lo, hi) whose turn angle meets
// the corner threshold.
func cornerIndexes(angles []float64, lo, hi int, minDeg float64) []int {
	var out []int
	for i := lo; i < hi; i++ {
		if angles[i] >= minDeg {
			out = append(out, i)
		}
	}
	return out
}
