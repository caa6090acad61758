package referenceline

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"

	"go.viam.com/planframe/spatialmath"
)

// ErrSmoothing is wrapped by every smoother failure.
var ErrSmoothing = errors.New("reference line smoothing failed")

// NewSmoothingError is used when a smoother rejects its input or produces an unusable line.
func NewSmoothingError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrSmoothing, format, args...)
}

// Smoother fits a drivable curve to a raw reference line.
type Smoother interface {
	Smooth(raw *ReferenceLine) (*ReferenceLine, error)
}

// Names of the built in smoothers.
const (
	SplineSmootherName      = "spline"
	PassthroughSmootherName = "passthrough"
)

// SmootherConfig selects and parameterizes a registered smoother.
type SmootherConfig struct {
	Type string `json:"type,omitempty"`
	// ResampleResolution is the spacing, in meters, of the smoothed line's samples.
	ResampleResolution float64 `json:"resample_resolution,omitempty"`
	// MaxDeviation rejects smoothed lines that stray further than this from the raw line. Zero
	// disables the check.
	MaxDeviation float64 `json:"max_deviation,omitempty"`
}

// SmootherConstructor creates a smoother from its config.
type SmootherConstructor func(cfg SmootherConfig) (Smoother, error)

var smootherRegistry = map[string]SmootherConstructor{}

func init() {
	RegisterSmoother(SplineSmootherName, func(cfg SmootherConfig) (Smoother, error) {
		return NewSplineSmoother(cfg)
	})
	RegisterSmoother(PassthroughSmootherName, func(SmootherConfig) (Smoother, error) {
		return passthroughSmoother{}, nil
	})
}

// RegisterSmoother registers a smoother constructor under a name.
func RegisterSmoother(name string, constructor SmootherConstructor) {
	if _, old := smootherRegistry[name]; old {
		panic(errors.Errorf("trying to register two smoothers with same name %s", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for smoother %s", name))
	}
	smootherRegistry[name] = constructor
}

// RegisteredSmoothers returns the registered smoother names, sorted.
func RegisteredSmoothers() []string {
	names := make([]string, 0, len(smootherRegistry))
	for name := range smootherRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSmoother constructs the smoother named by cfg.Type, defaulting to the spline smoother.
func NewSmoother(cfg SmootherConfig) (Smoother, error) {
	name := cfg.Type
	if name == "" {
		name = SplineSmootherName
	}
	constructor, ok := smootherRegistry[name]
	if !ok {
		return nil, errors.Errorf("no smoother registered with name %q", name)
	}
	return constructor(cfg)
}

// DefaultResampleResolution is the smoothed sample spacing used when none is configured.
const DefaultResampleResolution = 0.5

// minSplinePoints is the fewest raw points a natural cubic spline is fit through.
const minSplinePoints = 3

// SplineSmoother fits a natural cubic spline per axis over arc length and resamples it evenly.
type SplineSmoother struct {
	resolution   float64
	maxDeviation float64
}

// NewSplineSmoother returns a spline smoother.
func NewSplineSmoother(cfg SmootherConfig) (*SplineSmoother, error) {
	resolution := cfg.ResampleResolution
	if resolution == 0 {
		resolution = DefaultResampleResolution
	}
	if resolution < 0 || !spatialmath.IsFinite(resolution) {
		return nil, errors.Errorf("invalid resample resolution %v", cfg.ResampleResolution)
	}
	if cfg.MaxDeviation < 0 {
		return nil, errors.Errorf("invalid max deviation %v", cfg.MaxDeviation)
	}
	return &SplineSmoother{resolution: resolution, maxDeviation: cfg.MaxDeviation}, nil
}

// Smooth implements Smoother.
func (sm *SplineSmoother) Smooth(raw *ReferenceLine) (*ReferenceLine, error) {
	if raw == nil {
		return nil, NewSmoothingError("no reference line to smooth")
	}
	if raw.NumPoints() < minSplinePoints {
		return nil, NewSmoothingError("need at least %d points, got %d", minSplinePoints, raw.NumPoints())
	}

	xs := make([]float64, len(raw.positions))
	ys := make([]float64, len(raw.positions))
	for i, p := range raw.positions {
		xs[i], ys[i] = p.X, p.Y
	}
	var fx, fy interp.NaturalCubic
	if err := fx.Fit(raw.s, xs); err != nil {
		return nil, NewSmoothingError("fitting x: %v", err)
	}
	if err := fy.Fit(raw.s, ys); err != nil {
		return nil, NewSmoothingError("fitting y: %v", err)
	}

	length := raw.Length()
	n := int(math.Ceil(length/sm.resolution)) + 1
	pts := make([]r2.Point, 0, n)
	headings := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		at := math.Min(float64(i)*sm.resolution, length)
		p := r2.Point{X: fx.Predict(at), Y: fy.Predict(at)}
		if !spatialmath.IsFinite(p.X) || !spatialmath.IsFinite(p.Y) {
			return nil, NewSmoothingError("spline diverged at s=%.2f", at)
		}
		if sm.maxDeviation > 0 {
			if proj := raw.Project(p); proj.Distance > sm.maxDeviation {
				return nil, NewSmoothingError("smoothed point at s=%.2f is %.3fm from the raw line, limit %.3fm",
					at, proj.Distance, sm.maxDeviation)
			}
		}
		pts = append(pts, p)
		headings = append(headings, math.Atan2(fy.PredictDerivative(at), fx.PredictDerivative(at)))
	}

	deduped := spatialmath.AppendDistinct(nil, pts...)
	if len(deduped) < 2 {
		return nil, NewSmoothingError("smoothed line collapsed to a point")
	}
	points := spatialmath.NewPathPoints(deduped)
	if len(deduped) == len(pts) {
		for i := range points {
			points[i].Heading = headings[i]
		}
	}
	return newFromPathPoints(points, raw.laneIDs), nil
}

// passthroughSmoother returns its input unchanged. Useful when the map already provides smooth
// centerlines.
type passthroughSmoother struct{}

func (passthroughSmoother) Smooth(raw *ReferenceLine) (*ReferenceLine, error) {
	if raw == nil {
		return nil, NewSmoothingError("no reference line to smooth")
	}
	return raw, nil
}
