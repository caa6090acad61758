// Package routing holds the road-network level route the planner is asked to follow.
package routing

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Header stamps a routing response.
type Header struct {
	TimestampSec float64 `json:"timestamp_sec"`
	SequenceNum  uint32  `json:"sequence_num"`
}

// LaneSegment is the portion [StartS, EndS] of one lane's centerline that the route uses.
type LaneSegment struct {
	LaneID string  `json:"lane_id"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// Length returns the length of the segment along its lane.
func (ls LaneSegment) Length() float64 {
	return ls.EndS - ls.StartS
}

// Waypoint is a requested stop along the route.
type Waypoint struct {
	ID       string   `json:"id"`
	LaneID   string   `json:"lane_id"`
	Position r2.Point `json:"position"`
}

// Response is an ordered route through the lane network.
type Response struct {
	Header    Header        `json:"header"`
	Segments  []LaneSegment `json:"segments"`
	Waypoints []Waypoint    `json:"waypoints,omitempty"`
}

// Validate checks that the response describes a usable route.
func (r *Response) Validate() error {
	if r == nil {
		return errors.New("routing response is nil")
	}
	if len(r.Segments) == 0 {
		return errors.New("routing response has no lane segments")
	}
	for i, seg := range r.Segments {
		if seg.LaneID == "" {
			return errors.Errorf("segment %d has no lane id", i)
		}
		if seg.EndS < seg.StartS {
			return errors.Errorf("segment %d on lane %q has inverted range [%v, %v]", i, seg.LaneID, seg.StartS, seg.EndS)
		}
	}
	return nil
}

// LaneIDs returns the routed lanes in order.
func (r *Response) LaneIDs() []string {
	ids := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		ids = append(ids, seg.LaneID)
	}
	return ids
}
