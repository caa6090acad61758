// Package prediction holds the predicted future trajectories of tracked obstacles and the
// conversion of their timestamps into the planning cycle's time base.
package prediction

import (
	"math"

	"github.com/golang/geo/r2"
)

// Header stamps a prediction set with the time the prediction subsystem captured its snapshot.
type Header struct {
	TimestampSec float64 `json:"timestamp_sec"`
	SequenceNum  uint32  `json:"sequence_num"`
}

// TrajectoryPoint is one predicted state. RelativeTime is in seconds from the owning set's
// header timestamp until Rebase moves it to another reference time.
type TrajectoryPoint struct {
	Position     r2.Point `json:"position"`
	Heading      float64  `json:"heading"`
	Velocity     float64  `json:"velocity"`
	RelativeTime float64  `json:"relative_time"`
}

// Trajectory is one hypothesis of where an obstacle will go.
type Trajectory struct {
	Probability float64           `json:"probability"`
	Points      []TrajectoryPoint `json:"points"`
}

// PredictedObstacle is a tracked obstacle with its current footprint and predicted trajectories.
type PredictedObstacle struct {
	ID           string       `json:"id"`
	Position     r2.Point     `json:"position"`
	Heading      float64      `json:"heading"`
	Length       float64      `json:"length"`
	Width        float64      `json:"width"`
	Trajectories []Trajectory `json:"trajectories,omitempty"`
}

// Set is one batch of predictions.
type Set struct {
	Header    Header              `json:"header"`
	Obstacles []PredictedObstacle `json:"obstacles"`
}

// headerTimeEpsilon is how far apart two timestamps may be and still count as the same instant.
const headerTimeEpsilon = 1e-9

// NeedsRebase reports whether the set's timestamps are expressed against a different reference
// time than trajectoryHeaderTime.
func NeedsRebase(set *Set, trajectoryHeaderTime float64) bool {
	if set == nil {
		return false
	}
	return math.Abs(set.Header.TimestampSec-trajectoryHeaderTime) > headerTimeEpsilon
}

// Rebase rewrites every trajectory point's RelativeTime, in place, so that it is measured from
// trajectoryHeaderTime rather than from the set's header timestamp.
//
// This is a transform, not an assignment: calling it twice shifts the times twice. Call it at
// most once per planning cycle.
func Rebase(set *Set, trajectoryHeaderTime float64) {
	if set == nil {
		return
	}
	headerTime := set.Header.TimestampSec
	for i := range set.Obstacles {
		for j := range set.Obstacles[i].Trajectories {
			points := set.Obstacles[i].Trajectories[j].Points
			for k := range points {
				points[k].RelativeTime = headerTime + points[k].RelativeTime - trajectoryHeaderTime
			}
		}
	}
}

// Clone deep copies the set so a frame can rebase its own copy.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	out := &Set{Header: s.Header, Obstacles: make([]PredictedObstacle, len(s.Obstacles))}
	for i, obs := range s.Obstacles {
		obs.Trajectories = make([]Trajectory, len(s.Obstacles[i].Trajectories))
		for j, traj := range s.Obstacles[i].Trajectories {
			obs.Trajectories[j] = Trajectory{
				Probability: traj.Probability,
				Points:      append([]TrajectoryPoint(nil), traj.Points...),
			}
		}
		out.Obstacles[i] = obs
	}
	return out
}
