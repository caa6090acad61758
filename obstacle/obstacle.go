// Package obstacle builds the per-cycle set of obstacles the planner reasons about.
package obstacle

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planframe/prediction"
	"go.viam.com/planframe/spatialmath"
)

// Obstacle is a single obstacle in the planning cycle. Trajectory is nil for obstacles without a
// prediction, such as static or externally injected ones.
type Obstacle struct {
	ID         string
	Position   r2.Point
	Heading    float64
	Length     float64
	Width      float64
	Trajectory *prediction.Trajectory
	// External is set for obstacles that were injected rather than derived from prediction.
	External bool
}

// Radius returns half the larger footprint dimension.
func (o *Obstacle) Radius() float64 {
	return max(o.Length, o.Width) / 2
}

// Validate checks that the obstacle has an id and finite geometry.
func (o *Obstacle) Validate() error {
	if o == nil {
		return errors.New("obstacle is nil")
	}
	if o.ID == "" {
		return errors.New("obstacle has no id")
	}
	for _, v := range []float64{o.Position.X, o.Position.Y, o.Heading, o.Length, o.Width} {
		if !spatialmath.IsFinite(v) {
			return errors.Errorf("obstacle %q has non-finite geometry", o.ID)
		}
	}
	if o.Trajectory != nil {
		for i, pt := range o.Trajectory.Points {
			if !spatialmath.IsFinite(pt.Position.X) || !spatialmath.IsFinite(pt.Position.Y) {
				return errors.Errorf("obstacle %q trajectory point %d is not finite", o.ID, i)
			}
		}
	}
	return nil
}

func (o *Obstacle) String() string {
	return fmt.Sprintf("obstacle %q at (%.2f, %.2f)", o.ID, o.Position.X, o.Position.Y)
}

// FromPrediction converts one predicted obstacle. The most probable trajectory is kept; the first
// one wins ties.
func FromPrediction(p *prediction.PredictedObstacle) *Obstacle {
	obs := &Obstacle{
		ID:       p.ID,
		Position: p.Position,
		Heading:  p.Heading,
		Length:   p.Length,
		Width:    p.Width,
	}
	for i := range p.Trajectories {
		if obs.Trajectory == nil || p.Trajectories[i].Probability > obs.Trajectory.Probability {
			obs.Trajectory = &p.Trajectories[i]
		}
	}
	return obs
}

// FromPredictions converts every obstacle in set, in order.
func FromPredictions(set *prediction.Set) []*Obstacle {
	if set == nil {
		return nil
	}
	out := make([]*Obstacle, 0, len(set.Obstacles))
	for i := range set.Obstacles {
		out = append(out, FromPrediction(&set.Obstacles[i]))
	}
	return out
}
