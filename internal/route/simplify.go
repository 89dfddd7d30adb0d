package route

import "github.com/cashcab-studio/routeprep/internal/geom"

// Simplify thins a polyline with the Douglas-Peucker algorithm. Points
// farther than epsilon (in the same linear units as the input) from the
// simplified shape are always kept. Endpoints are never removed.
func Simplify(points []geom.Point, epsilon float64) []geom.Point {
	if len(points) <= 2 || epsilon <= 0 {
		return points
	}
	return douglasPeucker(points, epsilon)
}

func douglasPeucker(points []geom.Point, epsilon float64) []geom.Point {
	if len(points) <= 2 {
		return points
	}

	end := len(points) - 1
	dmax := 0.0
	index := 0
	for i := 1; i < end; i++ {
		d := geom.PerpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax > epsilon {
		left := douglasPeucker(points[:index+1], epsilon)
		right := douglasPeucker(points[index:], epsilon)
		result := make([]geom.Point, 0, len(left)+len(right)-1)
		result = append(result, left[:len(left)-1]...)
		result = append(result, right...)
		return result
	}

	return []geom.Point{points[0], points[end]}
}
