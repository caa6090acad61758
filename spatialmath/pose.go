// Package spatialmath defines the planar geometry the planner works in: vehicle poses, path
// points and projections onto polylines.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a planar position with a heading in radians, measured counterclockwise from +x.
type Pose struct {
	Position r2.Point `json:"position"`
	Heading  float64  `json:"heading"`
}

// NewPose builds a Pose from raw coordinates.
func NewPose(x, y, heading float64) Pose {
	return Pose{Position: r2.Point{X: x, Y: y}, Heading: heading}
}

// IsValid reports whether every coordinate of the pose is finite.
func (p Pose) IsValid() bool {
	return IsFinite(p.Position.X) && IsFinite(p.Position.Y) && IsFinite(p.Heading)
}

func (p Pose) String() string {
	return fmt.Sprintf("{x: %.3f, y: %.3f, heading: %.3f}", p.Position.X, p.Position.Y, p.Heading)
}

// IsFinite is false for NaN and both infinities.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NormalizeAngle wraps an angle in radians into [-pi, pi).
func NormalizeAngle(theta float64) float64 {
	a := math.Mod(theta+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
