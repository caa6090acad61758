// Package frame assembles and validates the context of one planning cycle: the vehicle's pose,
// its route, the obstacles around it and the reference line candidates the optimizer will
// choose between.
package frame

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/planframe/config"
	"go.viam.com/planframe/hdmap"
	"go.viam.com/planframe/logging"
	"go.viam.com/planframe/obstacle"
	"go.viam.com/planframe/prediction"
	"go.viam.com/planframe/referenceline"
	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

// State is where a frame is in its lifecycle.
type State int

// A frame starts Created, becomes Configured once its pose, route and prediction are set, and ends
// Initialized or Failed depending on how Init went.
const (
	Created State = iota
	Configured
	Initialized
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Configured:
		return "configured"
	case Initialized:
		return "initialized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Environment is shared by every frame of one planner.
type Environment struct {
	// Map must be set before the first Init and is never changed afterwards.
	Map      *hdmap.Handle
	Smoother referenceline.Smoother
	Config   *config.Config
	Clock    clock.Clock
}

// NewEnvironment validates cfg and builds the smoother it names. A nil handle is replaced by an
// empty one to be set later.
func NewEnvironment(cfg *config.Config, handle *hdmap.Handle) (*Environment, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate("planner"); err != nil {
		return nil, err
	}
	smoother, err := referenceline.NewSmoother(cfg.Smoother)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		handle = hdmap.NewHandle()
	}
	return &Environment{Map: handle, Smoother: smoother, Config: cfg, Clock: clock.New()}, nil
}

// Frame is the context of one planning cycle. Inputs are set first, then Init derives the
// obstacles and reference line candidates from them. After Init the inputs can no longer change.
//
// A frame is driven by a single planning task. Once Initialized it may be read concurrently, but
// only one goroutine may write its trajectory.
type Frame struct {
	seq    uint32
	env    Environment
	logger logging.Logger

	state State

	pose                 spatialmath.Pose
	poseSet              bool
	routing              *routing.Response
	prediction           *prediction.Set
	planningStartTime    float64
	hasPlanningStartTime bool
	external             []*obstacle.Obstacle
	debugInputs          *DebugInputs

	rebased       bool
	obstacles     *obstacle.Registry
	infos         []*referenceline.Info
	referenceLine *referenceline.ReferenceLine
	trajectory    *Trajectory
	initDuration  time.Duration
}

// New returns a frame for cycle seq. Missing parts of env fall back to defaults, except the map.
func New(seq uint32, env *Environment, logger logging.Logger) *Frame {
	var e Environment
	if env != nil {
		e = *env
	}
	if e.Config == nil {
		e.Config = config.Default()
	}
	if e.Clock == nil {
		e.Clock = clock.New()
	}
	if e.Smoother == nil {
		if smoother, err := referenceline.NewSmoother(e.Config.Smoother); err == nil {
			e.Smoother = smoother
		}
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Frame{seq: seq, env: e, logger: logger, state: Created}
}

func (f *Frame) sealed() bool {
	return f.state == Initialized || f.state == Failed
}

func (f *Frame) markConfigured() {
	if f.state == Created && f.poseSet && f.routing != nil && f.prediction != nil {
		f.state = Configured
	}
}

// SetPose sets the vehicle's pose at the start of the cycle.
func (f *Frame) SetPose(pose spatialmath.Pose) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	f.pose, f.poseSet = pose, true
	f.markConfigured()
	return nil
}

// SetRoutingResponse sets the route to follow.
func (f *Frame) SetRoutingResponse(resp *routing.Response) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	f.routing = resp
	f.markConfigured()
	return nil
}

// SetPrediction sets the cycle's predictions. The frame keeps its own copy, which Init may
// rebase; a nil set is stored as an empty one.
func (f *Frame) SetPrediction(set *prediction.Set) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	if set == nil {
		set = &prediction.Set{}
	}
	f.prediction = set.Clone()
	f.markConfigured()
	return nil
}

// SetPlanningStartTime sets the reference time, in seconds, of the trajectory this cycle plans.
// When it differs from the prediction header time, predicted trajectories are rebased onto it.
func (f *Frame) SetPlanningStartTime(sec float64) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	f.planningStartTime, f.hasPlanningStartTime = sec, true
	return nil
}

// AddExternalObstacle hands an obstacle that does not come from prediction to the frame. It is
// registered after the predicted obstacles when Init runs.
func (f *Frame) AddExternalObstacle(obs *obstacle.Obstacle) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	if err := obs.Validate(); err != nil {
		return err
	}
	f.external = append(f.external, obs)
	return nil
}

// SetDebugInputs sets the raw input snapshot recorded into the trajectory when debug input
// recording is enabled.
func (f *Frame) SetDebugInputs(in DebugInputs) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	f.debugInputs = in.clone()
	return nil
}

// Init derives the cycle's obstacles and reference line candidates. Every failure is an
// *InitError naming the stage and leaves the frame Failed, with no candidates. Init can only be
// called once.
func (f *Frame) Init(ctx context.Context) error {
	if f.sealed() {
		return ErrFrameSealed
	}
	ctx, span := trace.StartSpan(ctx, "frame::Init")
	defer span.End()
	span.AddAttributes(trace.Int64Attribute("seq", int64(f.seq)))

	start := f.env.Clock.Now()
	err := f.init(ctx)
	f.initDuration = f.env.Clock.Since(start)
	if err != nil {
		f.state = Failed
		f.obstacles, f.infos, f.referenceLine, f.trajectory = nil, nil, nil, nil
		var initErr *InitError
		stage := Stage("")
		if errors.As(err, &initErr) {
			stage = initErr.Stage
		}
		span.AddAttributes(trace.StringAttribute("failed_stage", string(stage)))
		f.logger.Warnw("frame init failed", "seq", f.seq, "stage", string(stage), "err", err)
		return err
	}

	f.state = Initialized
	f.logger.CDebugw(ctx, "frame initialized",
		"seq", f.seq,
		"candidates", len(f.infos),
		"obstacles", f.obstacles.Len(),
		"rebased", f.rebased,
		"duration", f.initDuration)
	return nil
}

func (f *Frame) init(ctx context.Context) error {
	m, ok := f.env.Map.Get()
	if !ok {
		return NewInitError(f.seq, StageMap, ErrMapNotSet)
	}
	if !f.poseSet {
		return NewInitError(f.seq, StagePose, errors.New("pose is not set"))
	}
	if !f.pose.IsValid() {
		return NewInitError(f.seq, StagePose, errors.Errorf("pose %v has a non-finite component", f.pose))
	}

	lines, err := f.buildReferenceLines(ctx, m)
	if err != nil {
		return NewInitError(f.seq, StageReferenceLine, err)
	}

	reg, err := f.buildObstacles(ctx)
	if err != nil {
		return NewInitError(f.seq, StageObstacles, err)
	}

	infos, err := referenceline.Assemble(ctx, lines, reg, f.env.Config.CorridorHalfWidth)
	if err != nil {
		return NewInitError(f.seq, StageAttachment, err)
	}

	f.obstacles = reg
	f.infos = infos
	f.referenceLine = infos[0].Line()
	f.trajectory = f.newTrajectory()
	return nil
}

func (f *Frame) buildReferenceLines(ctx context.Context, m hdmap.Map) ([]*referenceline.ReferenceLine, error) {
	if f.env.Smoother == nil {
		return nil, referenceline.NewSmoothingError("no smoother named %q", f.env.Config.Smoother.Type)
	}
	cfg := f.env.Config
	builder := referenceline.NewBuilder(f.env.Smoother, cfg.LookBackwardDistance, cfg.LookForwardDistance, f.logger)
	lines, err := builder.Build(ctx, m, f.pose, f.routing)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("no reference line candidates were produced")
	}
	return lines, nil
}

func (f *Frame) buildObstacles(ctx context.Context) (*obstacle.Registry, error) {
	_, span := trace.StartSpan(ctx, "frame::buildObstacles")
	defer span.End()

	reg := obstacle.NewRegistry()
	if f.env.Config.EnableObstacleIngestion {
		if f.hasPlanningStartTime && prediction.NeedsRebase(f.prediction, f.planningStartTime) {
			prediction.Rebase(f.prediction, f.planningStartTime)
			f.rebased = true
		}
		var err error
		if reg, err = obstacle.NewRegistryFromPredictions(f.prediction); err != nil {
			return nil, err
		}
	}
	for _, obs := range f.external {
		if err := reg.AddExternal(obs); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (f *Frame) newTrajectory() *Trajectory {
	headerTime := f.planningStartTime
	if !f.hasPlanningStartTime {
		headerTime = float64(f.env.Clock.Now().UnixNano()) / float64(time.Second)
	}
	traj := &Trajectory{
		Header: Header{TimestampSec: headerTime, SequenceNum: f.seq},
		Debug:  &Debug{},
	}
	if f.env.Config.RecordDebugInputs && f.debugInputs != nil {
		traj.Debug.Inputs = f.debugInputs.clone()
		traj.Debug.RecordedAt = f.env.Clock.Now()
	}
	return traj
}

// SequenceNum returns the cycle's sequence number.
func (f *Frame) SequenceNum() uint32 {
	return f.seq
}

// State returns the frame's lifecycle state.
func (f *Frame) State() State {
	return f.state
}

// Pose returns the vehicle's pose.
func (f *Frame) Pose() spatialmath.Pose {
	return f.pose
}

// RoutingResponse returns the route.
func (f *Frame) RoutingResponse() *routing.Response {
	return f.routing
}

// Prediction returns the frame's copy of the predictions, rebased if Init rebased them.
func (f *Frame) Prediction() *prediction.Set {
	return f.prediction
}

// PlanningStartTime returns the planning start time and whether one was set.
func (f *Frame) PlanningStartTime() (float64, bool) {
	return f.planningStartTime, f.hasPlanningStartTime
}

// Rebased reports whether Init moved the predicted trajectories onto the planning start time.
func (f *Frame) Rebased() bool {
	return f.rebased
}

// ReferenceLine returns the primary candidate's reference line, or nil unless Initialized.
func (f *Frame) ReferenceLine() *referenceline.ReferenceLine {
	if f.state != Initialized {
		return nil
	}
	return f.referenceLine
}

// ReferenceLineInfos returns the candidates in generation order. It is empty unless Initialized.
func (f *Frame) ReferenceLineInfos() []*referenceline.Info {
	if f.state != Initialized {
		return nil
	}
	return append([]*referenceline.Info(nil), f.infos...)
}

// PrimaryCandidate returns the first candidate, the one the optimizer decides on by default. It
// is nil unless Initialized.
func (f *Frame) PrimaryCandidate() *referenceline.Info {
	if f.state != Initialized {
		return nil
	}
	return f.infos[0]
}

// Obstacles returns the cycle's obstacle registry, or nil unless Initialized.
func (f *Frame) Obstacles() *obstacle.Registry {
	if f.state != Initialized {
		return nil
	}
	return f.obstacles
}

// Trajectory returns the cycle's output trajectory, or nil unless Initialized.
func (f *Frame) Trajectory() *Trajectory {
	if f.state != Initialized {
		return nil
	}
	return f.trajectory
}

// SetTrajectory stores the optimizer's planned points.
func (f *Frame) SetTrajectory(points []TrajectoryPoint) error {
	if f.state != Initialized {
		return errors.Wrapf(ErrFrameNotInitialized, "frame %d is %v", f.seq, f.state)
	}
	f.trajectory.Points = append([]TrajectoryPoint(nil), points...)
	return nil
}

// InitDuration returns how long Init took.
func (f *Frame) InitDuration() time.Duration {
	return f.initDuration
}

// DebugInputs returns the input snapshot set on the frame, if any.
func (f *Frame) DebugInputs() *DebugInputs {
	return f.debugInputs
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame %d (%v) at %v", f.seq, f.state, f.pose)
}
