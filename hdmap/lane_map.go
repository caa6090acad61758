package hdmap

import (
	"encoding/json"
	"io"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

const (
	// DefaultOffRoadTolerance is how far, in meters, the vehicle may sit from the routed centerline.
	DefaultOffRoadTolerance = 5.0
	// DefaultSampleSpacing is the largest gap, in meters, between consecutive points of a path.
	DefaultSampleSpacing = 1.0
)

// Lane is one lane of the road network, described by its centerline.
type Lane struct {
	ID         string     `json:"id"`
	Centerline []r2.Point `json:"centerline"`
	Width      float64    `json:"width,omitempty"`

	s []float64
}

// Length returns the lane's centerline length.
func (l *Lane) Length() float64 {
	if len(l.s) == 0 {
		return 0
	}
	return l.s[len(l.s)-1]
}

// LaneMap is an in-memory Map made of independent lanes referenced by id from routes.
type LaneMap struct {
	lanes map[string]*Lane

	// OffRoadTolerance is the largest lateral offset from the route that still counts as on it.
	OffRoadTolerance float64
	// SampleSpacing bounds the distance between consecutive points of returned paths.
	SampleSpacing float64
}

// NewLaneMap indexes lanes by id.
func NewLaneMap(lanes []Lane) (*LaneMap, error) {
	m := &LaneMap{lanes: make(map[string]*Lane, len(lanes)), OffRoadTolerance: DefaultOffRoadTolerance, SampleSpacing: DefaultSampleSpacing}
	for i := range lanes {
		lane := lanes[i]
		if lane.ID == "" {
			return nil, errors.Errorf("lane %d has no id", i)
		}
		if _, ok := m.lanes[lane.ID]; ok {
			return nil, errors.Errorf("lane %q defined twice", lane.ID)
		}
		if len(lane.Centerline) < 2 {
			return nil, errors.Errorf("lane %q needs at least two centerline points", lane.ID)
		}
		lane.Centerline = spatialmath.AppendDistinct(nil, lane.Centerline...)
		lane.s = spatialmath.ArcLengths(lane.Centerline)
		m.lanes[lane.ID] = &lane
	}
	return m, nil
}

type laneMapFile struct {
	Lanes []Lane `json:"lanes"`
}

// ReadLaneMap decodes a JSON document of the form {"lanes": [...]}.
func ReadLaneMap(r io.Reader) (*LaneMap, error) {
	var f laneMapFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "cannot decode lane map")
	}
	return NewLaneMap(f.Lanes)
}

// Lane returns the lane with the given id.
func (m *LaneMap) Lane(id string) (*Lane, bool) {
	l, ok := m.lanes[id]
	return l, ok
}

// PathFromRouting stitches the routed lane segments together, locates the vehicle on them and
// clips the result to the look-backward/look-forward window.
func (m *LaneMap) PathFromRouting(
	resp *routing.Response,
	position r2.Point,
	lookBackward, lookForward float64,
) (*Path, error) {
	if err := resp.Validate(); err != nil {
		return nil, NewMapPathError("invalid routing response: %v", err)
	}
	if lookBackward < 0 || lookForward <= 0 {
		return nil, NewMapPathError("invalid look window [-%v, %v]", lookBackward, lookForward)
	}

	var (
		route      []r2.Point
		laneStarts []int
	)
	for _, seg := range resp.Segments {
		lane, ok := m.lanes[seg.LaneID]
		if !ok {
			return nil, NewMapPathError("lane %q not in map", seg.LaneID)
		}
		if seg.StartS > lane.Length() {
			return nil, NewMapPathError("segment [%v, %v] is beyond the end of lane %q", seg.StartS, seg.EndS, lane.ID)
		}
		laneStarts = append(laneStarts, max(len(route)-1, 0))
		route = spatialmath.AppendDistinct(route, spatialmath.Slice(lane.Centerline, lane.s, seg.StartS, seg.EndS)...)
	}
	if len(route) < 2 {
		return nil, NewMapPathError("routed lanes have no length")
	}

	s := spatialmath.ArcLengths(route)
	total := s[len(s)-1]
	proj, _ := spatialmath.Project(route, s, position)
	tolerance := m.OffRoadTolerance
	if tolerance <= 0 {
		tolerance = DefaultOffRoadTolerance
	}
	if proj.S < -tolerance || proj.S > total+tolerance {
		return nil, NewMapPathError("route does not cover position (%.2f, %.2f)", position.X, position.Y)
	}
	if proj.Distance > tolerance {
		return nil, NewMapPathError("position (%.2f, %.2f) is %.2fm off the route, tolerance %.2fm",
			position.X, position.Y, proj.Distance, tolerance)
	}

	from, to := max(proj.S-lookBackward, 0), min(proj.S+lookForward, total)
	clipped := spatialmath.Slice(route, s, from, to)
	if len(clipped) < 2 {
		return nil, NewMapPathError("no route left inside window [%.2f, %.2f]", from, to)
	}

	return &Path{
		LaneIDs: lanesInWindow(resp, laneStarts, s, from, to),
		Points:  spatialmath.NewPathPoints(spatialmath.Densify(clipped, m.SampleSpacing)),
	}, nil
}

// lanesInWindow returns the ids of the routed lanes that overlap [from, to] along the route.
func lanesInWindow(resp *routing.Response, laneStarts []int, s []float64, from, to float64) []string {
	var ids []string
	for i, seg := range resp.Segments {
		startS, endS := s[min(laneStarts[i], len(s)-1)], s[len(s)-1]
		if i+1 < len(laneStarts) {
			endS = s[min(laneStarts[i+1], len(s)-1)]
		}
		if startS <= to && endS >= from {
			ids = append(ids, seg.LaneID)
		}
	}
	return ids
}
