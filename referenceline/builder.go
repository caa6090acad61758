package referenceline

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/planframe/hdmap"
	"go.viam.com/planframe/logging"
	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

// Builder turns a route and the vehicle's pose into smoothed reference line candidates.
type Builder struct {
	smoother     Smoother
	lookBackward float64
	lookForward  float64
	logger       logging.Logger
}

// NewBuilder returns a builder that asks the map for lookBackward meters behind and lookForward
// meters ahead of the vehicle.
func NewBuilder(smoother Smoother, lookBackward, lookForward float64, logger logging.Logger) *Builder {
	return &Builder{
		smoother:     smoother,
		lookBackward: lookBackward,
		lookForward:  lookForward,
		logger:       logger,
	}
}

// Build returns the candidates for this cycle, in preference order. It currently produces
// exactly one candidate. Map failures wrap hdmap.ErrMapPath and smoother failures wrap
// ErrSmoothing.
func (b *Builder) Build(
	ctx context.Context,
	m hdmap.Map,
	pose spatialmath.Pose,
	resp *routing.Response,
) ([]*ReferenceLine, error) {
	ctx, span := trace.StartSpan(ctx, "referenceline::Build")
	defer span.End()

	path, err := m.PathFromRouting(resp, pose.Position, b.lookBackward, b.lookForward)
	if err != nil {
		if !errors.Is(err, hdmap.ErrMapPath) {
			err = hdmap.NewMapPathError("%v", err)
		}
		return nil, err
	}

	raw, err := NewReferenceLine(spatialmath.Positions(path.Points), path.LaneIDs)
	if err != nil {
		return nil, hdmap.NewMapPathError("map returned an unusable path: %v", err)
	}

	smoothed, err := b.smoother.Smooth(raw)
	if err != nil {
		if !errors.Is(err, ErrSmoothing) {
			err = NewSmoothingError("%v", err)
		}
		return nil, err
	}
	if smoothed == nil {
		return nil, NewSmoothingError("smoother returned no reference line")
	}
	b.logger.CDebugf(ctx, "built reference line: %d raw points -> %d smoothed points, %.1fm on lanes %v",
		raw.NumPoints(), smoothed.NumPoints(), smoothed.Length(), smoothed.LaneIDs())

	return []*ReferenceLine{smoothed}, nil
}
