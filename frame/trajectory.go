package frame

import (
	"maps"
	"slices"
	"time"

	"github.com/golang/geo/r2"

	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

// Header stamps the planned trajectory.
type Header struct {
	TimestampSec float64 `json:"timestamp_sec"`
	SequenceNum  uint32  `json:"sequence_num"`
}

// TrajectoryPoint is one state of the planned trajectory. RelativeTime is measured from the
// trajectory header's timestamp.
type TrajectoryPoint struct {
	Position     r2.Point `json:"position"`
	Heading      float64  `json:"heading"`
	Kappa        float64  `json:"kappa"`
	S            float64  `json:"s"`
	Velocity     float64  `json:"velocity"`
	Acceleration float64  `json:"acceleration"`
	RelativeTime float64  `json:"relative_time"`
}

// Chassis is the vehicle state reported by the chassis at the start of the cycle.
type Chassis struct {
	SpeedMPS        float64 `json:"speed_mps"`
	SteeringPercent float64 `json:"steering_percent"`
	Gear            string  `json:"gear,omitempty"`
}

// DebugInputs is a snapshot of the cycle's raw inputs kept for offline replay.
type DebugInputs struct {
	Localization spatialmath.Pose  `json:"localization"`
	Chassis      Chassis           `json:"chassis"`
	Routing      *routing.Response `json:"routing,omitempty"`
}

func (in *DebugInputs) clone() *DebugInputs {
	if in == nil {
		return nil
	}
	out := *in
	if in.Routing != nil {
		r := *in.Routing
		r.Segments = slices.Clone(in.Routing.Segments)
		r.Waypoints = slices.Clone(in.Routing.Waypoints)
		out.Routing = &r
	}
	return &out
}

// Debug carries what the planner recorded about a cycle alongside its trajectory.
type Debug struct {
	// Inputs is only set when debug input recording is enabled.
	Inputs     *DebugInputs      `json:"inputs,omitempty"`
	RecordedAt time.Time         `json:"recorded_at,omitempty"`
	Notes      map[string]string `json:"notes,omitempty"`
}

// Annotate attaches a free-form note, replacing any previous note under key.
func (d *Debug) Annotate(key, value string) {
	if d.Notes == nil {
		d.Notes = map[string]string{}
	}
	d.Notes[key] = value
}

// Trajectory is the cycle's output container, written by the optimizer.
type Trajectory struct {
	Header Header            `json:"header"`
	Points []TrajectoryPoint `json:"points"`
	Debug  *Debug            `json:"debug,omitempty"`
}

// Clone deep copies the trajectory.
func (t *Trajectory) Clone() *Trajectory {
	if t == nil {
		return nil
	}
	out := &Trajectory{Header: t.Header, Points: slices.Clone(t.Points)}
	if t.Debug != nil {
		out.Debug = &Debug{
			Inputs:     t.Debug.Inputs.clone(),
			RecordedAt: t.Debug.RecordedAt,
			Notes:      maps.Clone(t.Debug.Notes),
		}
	}
	return out
}
