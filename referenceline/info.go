package referenceline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/planframe/obstacle"
	"go.viam.com/planframe/prediction"
	"go.viam.com/planframe/registry"
)

// DefaultCorridorHalfWidth is the lateral distance, in meters, either side of a reference line
// within which an obstacle is considered relevant to it.
const DefaultCorridorHalfWidth = 3.5

// DecisionType is what the optimizer decided to do about an obstacle.
type DecisionType int

// The decisions an optimizer can record.
const (
	DecisionIgnore DecisionType = iota
	DecisionStop
	DecisionFollow
	DecisionYield
	DecisionOvertake
	DecisionNudge
)

func (dt DecisionType) String() string {
	switch dt {
	case DecisionIgnore:
		return "ignore"
	case DecisionStop:
		return "stop"
	case DecisionFollow:
		return "follow"
	case DecisionYield:
		return "yield"
	case DecisionOvertake:
		return "overtake"
	case DecisionNudge:
		return "nudge"
	}
	return fmt.Sprintf("unknown(%d)", int(dt))
}

// Decision records how the optimizer treats one obstacle.
type Decision struct {
	Type DecisionType
	// DistanceS is the along-line distance the decision applies at, e.g. where to stop.
	DistanceS float64
	Reason    string
}

// PathDecision holds the optimizer's per-obstacle decisions for one candidate. Decisions can only
// be made about obstacles attached to the candidate.
type PathDecision struct {
	known     map[string]struct{}
	decisions *registry.IndexedList[string, Decision]
}

func newPathDecision(obstacleIDs []string) *PathDecision {
	known := make(map[string]struct{}, len(obstacleIDs))
	for _, id := range obstacleIDs {
		known[id] = struct{}{}
	}
	return &PathDecision{known: known, decisions: registry.NewIndexedList[string, Decision](0, registry.OverwriteDuplicates)}
}

// AddDecision records, or replaces, the decision for obstacleID.
func (pd *PathDecision) AddDecision(obstacleID string, d Decision) error {
	if _, ok := pd.known[obstacleID]; !ok {
		return errors.Errorf("obstacle %q is not attached to this reference line", obstacleID)
	}
	return pd.decisions.Add(obstacleID, d)
}

// Decision returns the decision recorded for obstacleID.
func (pd *PathDecision) Decision(obstacleID string) (Decision, bool) {
	return pd.decisions.Get(obstacleID)
}

// Decisions returns the obstacle ids with decisions, in the order they were first decided.
func (pd *PathDecision) Decisions() []string {
	return pd.decisions.Keys()
}

// Len returns the number of decisions.
func (pd *PathDecision) Len() int {
	return pd.decisions.Len()
}

// Info is one reference line candidate: the line, the obstacles relevant to it and the decision
// state the optimizer fills in.
type Info struct {
	line      *ReferenceLine
	obstacles []*obstacle.Obstacle
	decision  *PathDecision

	// Cost is written by the optimizer when it ranks candidates.
	Cost float64
}

// Line returns the candidate's reference line.
func (info *Info) Line() *ReferenceLine {
	return info.line
}

// Obstacles returns the relevant obstacles in registry order.
func (info *Info) Obstacles() []*obstacle.Obstacle {
	return append([]*obstacle.Obstacle(nil), info.obstacles...)
}

// ObstacleIDs returns the ids of the relevant obstacles in registry order.
func (info *Info) ObstacleIDs() []string {
	return lo.Map(info.obstacles, func(obs *obstacle.Obstacle, _ int) string { return obs.ID })
}

// PathDecision returns the candidate's mutable decision state.
func (info *Info) PathDecision() *PathDecision {
	return info.decision
}

// IsRelevant reports whether obs matters to line: its current position or any point of its
// predicted trajectory projects onto the line between its start and end, within halfWidth plus
// the obstacle's radius laterally.
func IsRelevant(line *ReferenceLine, obs *obstacle.Obstacle, halfWidth float64) bool {
	limit := halfWidth + obs.Radius()
	if line.Contains(obs.Position, limit) {
		return true
	}
	if obs.Trajectory == nil {
		return false
	}
	return lo.SomeBy(obs.Trajectory.Points, func(pt prediction.TrajectoryPoint) bool {
		return line.Contains(pt.Position, limit)
	})
}

// NewInfo attaches the obstacles in reg that are relevant to line.
func NewInfo(line *ReferenceLine, reg *obstacle.Registry, halfWidth float64) (*Info, error) {
	if line == nil {
		return nil, errors.New("reference line is nil")
	}
	if reg == nil {
		return nil, errors.New("obstacle registry is nil")
	}
	info := &Info{line: line}
	for _, obs := range reg.Items() {
		if err := obs.Validate(); err != nil {
			return nil, err
		}
		if IsRelevant(line, obs, halfWidth) {
			info.obstacles = append(info.obstacles, obs)
		}
	}
	info.decision = newPathDecision(info.ObstacleIDs())
	return info, nil
}

// ErrObstacleAttachment matches every AttachmentError.
var ErrObstacleAttachment = errors.New("obstacle attachment failed")

// AttachmentError reports which candidate failed to attach its obstacles.
type AttachmentError struct {
	Candidate int
	Err       error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("%s for candidate %d: %v", ErrObstacleAttachment, e.Candidate, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrObstacleAttachment.
func (e *AttachmentError) Is(target error) bool {
	return target == ErrObstacleAttachment
}

// Assemble pairs every candidate with its relevant obstacles and an empty decision state. It is
// all or nothing: if any candidate fails, no infos are returned.
func Assemble(ctx context.Context, lines []*ReferenceLine, reg *obstacle.Registry, halfWidth float64) ([]*Info, error) {
	_, span := trace.StartSpan(ctx, "referenceline::Assemble")
	defer span.End()

	infos := make([]*Info, 0, len(lines))
	for i, line := range lines {
		info, err := NewInfo(line, reg, halfWidth)
		if err != nil {
			return nil, &AttachmentError{Candidate: i, Err: err}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
