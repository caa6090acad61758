package obstacle

import (
	"errors"
	"fmt"
	"iter"

	"go.viam.com/planframe/prediction"
	"go.viam.com/planframe/registry"
)

// ErrDuplicateObstacleID matches every DuplicateIDError.
var ErrDuplicateObstacleID = errors.New("duplicate obstacle id")

// DuplicateIDError is returned when two obstacles share an id within one cycle.
type DuplicateIDError struct {
	ID string
}

// NewDuplicateIDError is used when an obstacle id is added twice.
func NewDuplicateIDError(id string) error {
	return &DuplicateIDError{ID: id}
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q", ErrDuplicateObstacleID, e.ID)
}

// Is lets errors.Is match ErrDuplicateObstacleID.
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateObstacleID
}

// Registry owns the obstacles of one planning cycle, keyed by id, in insertion order.
type Registry struct {
	obstacles *registry.IndexedList[string, *Obstacle]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{obstacles: registry.NewIndexedList[string, *Obstacle](0, registry.RejectDuplicates)}
}

// NewRegistryFromPredictions builds a registry holding one obstacle per predicted obstacle in
// set. Two predictions with the same id fail the whole construction.
func NewRegistryFromPredictions(set *prediction.Set) (*Registry, error) {
	r := NewRegistry()
	for _, obs := range FromPredictions(set) {
		if err := r.add(obs); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(obs *Obstacle) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	if r.obstacles.Contains(obs.ID) {
		return NewDuplicateIDError(obs.ID)
	}
	return r.obstacles.Add(obs.ID, obs)
}

// AddExternal hands ownership of an obstacle not derived from prediction to the registry.
func (r *Registry) AddExternal(obs *Obstacle) error {
	if obs != nil {
		obs.External = true
	}
	return r.add(obs)
}

// Get returns the obstacle with the given id.
func (r *Registry) Get(id string) (*Obstacle, bool) {
	return r.obstacles.Get(id)
}

// Len returns the number of obstacles.
func (r *Registry) Len() int {
	return r.obstacles.Len()
}

// IDs returns the obstacle ids in insertion order.
func (r *Registry) IDs() []string {
	return r.obstacles.Keys()
}

// Items iterates over the obstacles in insertion order.
func (r *Registry) Items() iter.Seq2[string, *Obstacle] {
	return r.obstacles.Items()
}
