// Package referenceline builds the smoothed centerline candidates a planning cycle optimizes
// against and pairs each with the obstacles relevant to it.
package referenceline

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planframe/spatialmath"
)

// ReferenceLine is an ordered, continuous sequence of path points. It is never modified after
// construction.
type ReferenceLine struct {
	points    []spatialmath.PathPoint
	positions []r2.Point
	s         []float64
	laneIDs   []string
}

// NewReferenceLine builds a reference line through pts, recomputing arc length, heading and
// curvature. Consecutive repeated points are dropped.
func NewReferenceLine(pts []r2.Point, laneIDs []string) (*ReferenceLine, error) {
	pts = spatialmath.AppendDistinct(nil, pts...)
	if len(pts) < 2 {
		return nil, errors.New("a reference line needs at least two distinct points")
	}
	for i, p := range pts {
		if !spatialmath.IsFinite(p.X) || !spatialmath.IsFinite(p.Y) {
			return nil, errors.Errorf("reference line point %d is not finite", i)
		}
	}
	return newFromPathPoints(spatialmath.NewPathPoints(pts), laneIDs), nil
}

func newFromPathPoints(points []spatialmath.PathPoint, laneIDs []string) *ReferenceLine {
	rl := &ReferenceLine{
		points:    points,
		positions: spatialmath.Positions(points),
		s:         make([]float64, len(points)),
		laneIDs:   append([]string(nil), laneIDs...),
	}
	for i, p := range points {
		rl.s[i] = p.S
	}
	return rl
}

// Points returns a copy of the line's samples.
func (rl *ReferenceLine) Points() []spatialmath.PathPoint {
	return append([]spatialmath.PathPoint(nil), rl.points...)
}

// NumPoints returns the number of samples.
func (rl *ReferenceLine) NumPoints() int {
	return len(rl.points)
}

// Length returns the arc length of the line.
func (rl *ReferenceLine) Length() float64 {
	return rl.s[len(rl.s)-1]
}

// LaneIDs returns the lanes the line was built from.
func (rl *ReferenceLine) LaneIDs() []string {
	return append([]string(nil), rl.laneIDs...)
}

// Project locates p relative to the line.
func (rl *ReferenceLine) Project(p r2.Point) spatialmath.Projection {
	proj, _ := spatialmath.Project(rl.positions, rl.s, p)
	return proj
}

// PositionAt returns the point at arc length s, clamped to the line's ends.
func (rl *ReferenceLine) PositionAt(s float64) r2.Point {
	return spatialmath.Interpolate(rl.positions, rl.s, s)
}

// Contains reports whether p projects onto the line within lateralLimit of it.
func (rl *ReferenceLine) Contains(p r2.Point, lateralLimit float64) bool {
	proj := rl.Project(p)
	return proj.S >= 0 && proj.S <= rl.Length() && proj.Lateral <= lateralLimit && proj.Lateral >= -lateralLimit
}

func (rl *ReferenceLine) String() string {
	start, end := rl.positions[0], rl.positions[len(rl.positions)-1]
	return fmt.Sprintf("reference line %v of %.1fm from (%.2f, %.2f) to (%.2f, %.2f)",
		rl.laneIDs, rl.Length(), start.X, start.Y, end.X, end.Y)
}
