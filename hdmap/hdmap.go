// Package hdmap is the road-network collaborator: it turns a routing response and the vehicle's
// position into the raw geometric path the reference line is built from.
package hdmap

import (
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planframe/routing"
	"go.viam.com/planframe/spatialmath"
)

var (
	// ErrMapPath is wrapped by every failure to produce a path from a route.
	ErrMapPath = errors.New("cannot extract map path")
	// ErrMapAlreadySet is returned when a Handle is set a second time.
	ErrMapAlreadySet = errors.New("map is already set")
)

// NewMapPathError is used when the map cannot produce a path for a route and position.
func NewMapPathError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMapPath, format, args...)
}

// Path is a drivable geometric path through the routed lanes.
type Path struct {
	LaneIDs []string
	Points  []spatialmath.PathPoint
}

// Map produces drivable paths from routes.
type Map interface {
	// PathFromRouting returns the routed path around position, covering lookBackward meters
	// behind and lookForward meters ahead of the vehicle's projection onto the route.
	PathFromRouting(resp *routing.Response, position r2.Point, lookBackward, lookForward float64) (*Path, error)
}

type mapHolder struct {
	m Map
}

// Handle is the shared, read-only map reference every frame reads. It is set exactly once,
// normally at startup, and never changes afterwards; readers do not lock.
type Handle struct {
	once sync.Once
	m    atomic.Pointer[mapHolder]
}

// NewHandle returns an unset handle.
func NewHandle() *Handle {
	return &Handle{}
}

// NewHandleWithMap returns a handle already set to m.
func NewHandleWithMap(m Map) (*Handle, error) {
	h := NewHandle()
	if err := h.Set(m); err != nil {
		return nil, err
	}
	return h, nil
}

// Set stores m. Only the first successful call has any effect.
func (h *Handle) Set(m Map) error {
	if m == nil {
		return errors.New("cannot set a nil map")
	}
	set := false
	h.once.Do(func() {
		h.m.Store(&mapHolder{m: m})
		set = true
	})
	if !set {
		return ErrMapAlreadySet
	}
	return nil
}

// Get returns the map, or false if it has not been set. A nil handle is never set.
func (h *Handle) Get() (Map, bool) {
	if h == nil {
		return nil, false
	}
	holder := h.m.Load()
	if holder == nil {
		return nil, false
	}
	return holder.m, true
}
