package cli

import (
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/planframe/config"
	"go.viam.com/planframe/hdmap"
	"go.viam.com/planframe/obstacle"
	"go.viam.com/planframe/prediction"
	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

const defaultCycleTimeSec = 0.1

// Scenario is a recorded or hand-written drive to replay: the road, the route, where the vehicle
// starts and what the prediction subsystem reported.
type Scenario struct {
	Lanes      []hdmap.Lane     `json:"lanes"`
	Routing    routing.Response `json:"routing"`
	Pose       spatialmath.Pose `json:"pose"`
	Prediction prediction.Set   `json:"prediction"`

	// Obstacles are injected into every cycle in addition to the predicted ones.
	Obstacles []obstacle.Obstacle `json:"obstacles,omitempty"`

	// The vehicle moves along its heading at VelocityMPS, one step of CycleTimeSec per cycle.
	VelocityMPS  float64 `json:"velocity_mps"`
	CycleTimeSec float64 `json:"cycle_time_sec,omitempty"`
	// StartTimeSec is the planning start time of the first cycle.
	StartTimeSec float64 `json:"start_time_sec"`
}

// ReadScenario decodes a scenario, rejecting unknown fields. Scenarios are often written by
// hand, so JSON5 comments and unquoted keys are accepted.
func ReadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	if err := config.DecodeStrict(r, &sc); err != nil {
		return nil, errors.Wrap(err, "cannot decode scenario")
	}
	if sc.CycleTimeSec < 0 || sc.VelocityMPS < 0 {
		return nil, errors.New("scenario cycle time and velocity cannot be negative")
	}
	if sc.CycleTimeSec == 0 {
		sc.CycleTimeSec = defaultCycleTimeSec
	}
	return &sc, nil
}

// ReadScenarioFile reads the scenario at path.
func ReadScenarioFile(path string) (*Scenario, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open scenario %q", path)
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	return ReadScenario(f)
}

// poseAt returns the vehicle's pose at the start of cycle i.
func (sc *Scenario) poseAt(i int) spatialmath.Pose {
	d := sc.VelocityMPS * sc.CycleTimeSec * float64(i)
	return spatialmath.NewPose(
		sc.Pose.Position.X+d*math.Cos(sc.Pose.Heading),
		sc.Pose.Position.Y+d*math.Sin(sc.Pose.Heading),
		sc.Pose.Heading,
	)
}

// startTimeAt returns the planning start time of cycle i.
func (sc *Scenario) startTimeAt(i int) float64 {
	return sc.StartTimeSec + sc.CycleTimeSec*float64(i)
}
