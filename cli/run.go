package cli

import (
	"context"
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/planframe/config"
	"go.viam.com/planframe/frame"
	"go.viam.com/planframe/hdmap"
	"go.viam.com/planframe/logging"
	"go.viam.com/planframe/referenceline"
)

// trajectoryHorizonSec is how far ahead the replay's stand-in optimizer plans.
const trajectoryHorizonSec = 2.0

const (
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 3
)

// RunResult is what replaying a scenario produced.
type RunResult struct {
	History     *frame.History
	Initialized int
	Failed      int
}

// RunAction is the corresponding action for 'run'.
func RunAction(c *cli.Context) error {
	runID := uuid.NewString()
	logger := logging.NewBlankLogger("planframe." + runID)
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if path := c.String(flagLogFile); path != "" {
		logFile := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			Compress:   true,
		}
		defer func() {
			//nolint:errcheck
			logFile.Close()
		}()
		logger.AddAppender(logging.NewWriterAppender(logFile))
	}

	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return err
		}
	}
	logger.SetLevel(cfg.Level())
	ctx := c.Context
	if c.Bool(flagDebug) {
		// debug lines from frame init and reference line building, for this run only
		ctx = logging.EnableDebugMode(ctx, runID)
	}

	sc, err := ReadScenarioFile(c.String(flagScenario))
	if err != nil {
		return err
	}

	cycles := c.Int(flagCycles)
	logger.Infow("starting replay", "run_id", runID, "cycles", cycles, "scenario", c.String(flagScenario))
	res, err := Run(ctx, sc, cfg, cycles, logger)
	if err != nil {
		return err
	}
	summary, err := res.History.Summary()
	if err != nil {
		return err
	}

	printf(c.App.Writer, "run %s: %d cycles, %d initialized, %d failed", runID, cycles, res.Initialized, res.Failed)
	if summary.Frames == 0 {
		printf(c.App.Writer, "history: empty")
		return logger.Sync()
	}
	printf(c.App.Writer, "history: %d frames, seq %d..%d", summary.Frames, summary.OldestSeq, summary.NewestSeq)
	printf(c.App.Writer, "init latency: mean %v, p95 %v", summary.MeanInitDuration, summary.P95InitDuration)
	printf(c.App.Writer, "per frame: %.2f candidates, %.2f obstacles", summary.MeanCandidates, summary.MeanObstacles)
	if c.Bool(flagTable) {
		printf(c.App.Writer, "%s", res.History)
	}
	return logger.Sync()
}

// SchemaAction is the corresponding action for 'schema'.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal config schema")
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// Run drives cycles planning frames through sc and keeps the initialized ones in a history sized
// by cfg. A frame that fails Init is logged and skipped, the way a live planner would fall back
// to its previous trajectory.
func Run(ctx context.Context, sc *Scenario, cfg *config.Config, cycles int, logger logging.Logger) (*RunResult, error) {
	if cycles < 1 {
		return nil, errors.Errorf("need at least one cycle, got %d", cycles)
	}
	laneMap, err := hdmap.NewLaneMap(sc.Lanes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid scenario lanes")
	}
	handle, err := hdmap.NewHandleWithMap(laneMap)
	if err != nil {
		return nil, err
	}
	env, err := frame.NewEnvironment(cfg, handle)
	if err != nil {
		return nil, err
	}

	res := &RunResult{History: frame.NewHistory(cfg.MaxHistoryFrames)}
	frameLogger := logger.Sublogger("frame")
	for i := range cycles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := newScenarioFrame(uint32(i+1), i, sc, env, frameLogger)
		if err != nil {
			return nil, err
		}
		if err := f.Init(ctx); err != nil {
			res.Failed++
			continue
		}
		if err := f.SetTrajectory(cruise(f.ReferenceLine(), f, sc.VelocityMPS, sc.CycleTimeSec)); err != nil {
			return nil, err
		}
		f.Trajectory().Debug.Annotate("planner", "cruise")
		if err := res.History.Add(f); err != nil {
			return nil, err
		}
		res.Initialized++
	}
	return res, nil
}

func newScenarioFrame(seq uint32, cycle int, sc *Scenario, env *frame.Environment, logger logging.Logger) (*frame.Frame, error) {
	pose := sc.poseAt(cycle)
	f := frame.New(seq, env, logger)
	err := multierr.Combine(
		f.SetPose(pose),
		f.SetRoutingResponse(&sc.Routing),
		f.SetPrediction(&sc.Prediction),
		f.SetPlanningStartTime(sc.startTimeAt(cycle)),
		f.SetDebugInputs(frame.DebugInputs{
			Localization: pose,
			Chassis:      frame.Chassis{SpeedMPS: sc.VelocityMPS, Gear: "drive"},
			Routing:      &sc.Routing,
		}),
	)
	for i := range sc.Obstacles {
		obs := sc.Obstacles[i]
		err = multierr.Append(err, f.AddExternalObstacle(&obs))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot configure frame %d", seq)
	}
	return f, nil
}

// cruise stands in for the optimizer: it holds speed along the reference line from the
// vehicle's projection for trajectoryHorizonSec.
func cruise(line *referenceline.ReferenceLine, f *frame.Frame, speed, dt float64) []frame.TrajectoryPoint {
	start := math.Max(line.Project(f.Pose().Position).S, 0)
	n := int(math.Round(trajectoryHorizonSec / dt))
	points := make([]frame.TrajectoryPoint, 0, n+1)
	for k := 0; k <= n; k++ {
		t := float64(k) * dt
		s := math.Min(start+speed*t, line.Length())
		points = append(points, frame.TrajectoryPoint{
			Position:     line.PositionAt(s),
			S:            s,
			Velocity:     speed,
			RelativeTime: t,
		})
	}
	return points
}
