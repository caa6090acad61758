package spatialmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
)

// PathPoint is one sample along a drivable path. S is the arc length from the first sample.
type PathPoint struct {
	Position r2.Point `json:"position"`
	Heading  float64  `json:"heading"`
	Kappa    float64  `json:"kappa"`
	S        float64  `json:"s"`
}

// Positions extracts the positions of a slice of path points.
func Positions(points []PathPoint) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = p.Position
	}
	return out
}

// ArcLengths returns the cumulative distance along pts, starting at zero.
func ArcLengths(pts []r2.Point) []float64 {
	if len(pts) == 0 {
		return nil
	}
	seg := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		seg[i] = pts[i].Sub(pts[i-1]).Norm()
	}
	return floats.CumSum(seg, seg)
}

// NewPathPoints samples pts into path points with arc length, heading and curvature filled in.
// Heading uses central differences; curvature is the change in heading per unit arc length.
func NewPathPoints(pts []r2.Point) []PathPoint {
	n := len(pts)
	if n == 0 {
		return nil
	}
	s := ArcLengths(pts)
	out := make([]PathPoint, n)
	for i := range pts {
		out[i] = PathPoint{Position: pts[i], S: s[i]}
	}
	if n == 1 {
		return out
	}
	for i := range out {
		prev, next := max(i-1, 0), min(i+1, n-1)
		d := pts[next].Sub(pts[prev])
		out[i].Heading = math.Atan2(d.Y, d.X)
	}
	for i := range out {
		prev, next := max(i-1, 0), min(i+1, n-1)
		ds := s[next] - s[prev]
		if ds <= 0 {
			continue
		}
		out[i].Kappa = NormalizeAngle(out[next].Heading-out[prev].Heading) / ds
	}
	return out
}

// Projection is where a point falls relative to a polyline.
type Projection struct {
	// S is the arc length of the foot point. It runs below zero or past the polyline's length
	// when the point lies before the start or after the end.
	S float64
	// Lateral is the signed offset, positive to the left of the direction of travel.
	Lateral float64
	// Distance is the unsigned distance to the closest point on the polyline.
	Distance float64
}

// Project finds the closest point to p on the polyline pts, whose cumulative arc lengths are s.
// It returns false when pts is empty.
func Project(pts []r2.Point, s []float64, p r2.Point) (Projection, bool) {
	switch len(pts) {
	case 0:
		return Projection{}, false
	case 1:
		d := p.Sub(pts[0]).Norm()
		return Projection{Lateral: d, Distance: d}, true
	}

	best := -1
	bestDist := math.Inf(1)
	bestT := 0.
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		ab := b.Sub(a)
		segLen2 := ab.Dot(ab)
		t := 0.
		if segLen2 > 0 {
			t = p.Sub(a).Dot(ab) / segLen2
		}
		clamped := math.Max(0, math.Min(1, t))
		d := p.Sub(a.Add(ab.Mul(clamped))).Norm()
		if d < bestDist {
			best, bestDist, bestT = i, d, clamped
			// before the start and after the end, keep extrapolating along the end segments.
			if (i == 0 && t < 0) || (i == len(pts)-2 && t > 1) {
				bestT = t
			}
		}
	}

	a, b := pts[best], pts[best+1]
	ab := b.Sub(a)
	segLen := ab.Norm()
	proj := Projection{S: s[best] + bestT*segLen, Distance: bestDist}
	if segLen == 0 {
		proj.Lateral = bestDist
		return proj, true
	}
	proj.Lateral = ab.Cross(p.Sub(a)) / segLen
	return proj, true
}

// Interpolate returns the point at arc length at along pts, clamped to the polyline's ends.
func Interpolate(pts []r2.Point, s []float64, at float64) r2.Point {
	n := len(pts)
	if n == 0 {
		return r2.Point{}
	}
	if at <= s[0] {
		return pts[0]
	}
	if at >= s[n-1] {
		return pts[n-1]
	}
	i := sort.SearchFloat64s(s, at)
	// s[i-1] < at <= s[i]
	span := s[i] - s[i-1]
	if span <= 0 {
		return pts[i]
	}
	t := (at - s[i-1]) / span
	return pts[i-1].Add(pts[i].Sub(pts[i-1]).Mul(t))
}

// Slice returns the part of pts between arc lengths from and to, with interpolated end points.
func Slice(pts []r2.Point, s []float64, from, to float64) []r2.Point {
	if len(pts) == 0 || to < from {
		return nil
	}
	out := []r2.Point{Interpolate(pts, s, from)}
	for i, p := range pts {
		if s[i] > from && s[i] < to {
			out = AppendDistinct(out, p)
		}
	}
	return AppendDistinct(out, Interpolate(pts, s, to))
}

// AppendDistinct appends pts to dst, dropping any point that repeats the one before it.
func AppendDistinct(dst []r2.Point, pts ...r2.Point) []r2.Point {
	for _, p := range pts {
		if len(dst) > 0 && p.Sub(dst[len(dst)-1]).Norm() <= pointEpsilon {
			continue
		}
		dst = append(dst, p)
	}
	return dst
}

// pointEpsilon is the distance under which two points are the same point.
const pointEpsilon = 1e-6

// Densify subdivides every segment of pts so no two consecutive points are more than maxSpacing
// apart. The original vertices are kept.
func Densify(pts []r2.Point, maxSpacing float64) []r2.Point {
	if len(pts) < 2 || maxSpacing <= 0 {
		return append([]r2.Point(nil), pts...)
	}
	out := []r2.Point{pts[0]}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		pieces := int(math.Ceil(b.Sub(a).Norm() / maxSpacing))
		for k := 1; k < pieces; k++ {
			out = append(out, a.Add(b.Sub(a).Mul(float64(k)/float64(pieces))))
		}
		out = append(out, b)
	}
	return out
}
