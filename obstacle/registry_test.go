package obstacle

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/planframe/prediction"
)

func TestFromPrediction(t *testing.T) {
	p := &prediction.PredictedObstacle{
		ID:       "7",
		Position: r2.Point{X: 1, Y: 2},
		Length:   4,
		Width:    2,
		Trajectories: []prediction.Trajectory{
			{Probability: 0.2, Points: []prediction.TrajectoryPoint{{RelativeTime: 1}}},
			{Probability: 0.7, Points: []prediction.TrajectoryPoint{{RelativeTime: 2}}},
			{Probability: 0.7, Points: []prediction.TrajectoryPoint{{RelativeTime: 3}}},
		},
	}
	obs := FromPrediction(p)
	test.That(t, obs.ID, test.ShouldEqual, "7")
	test.That(t, obs.Radius(), test.ShouldEqual, 2.)
	test.That(t, obs.Trajectory, test.ShouldNotBeNil)
	test.That(t, obs.Trajectory.Points[0].RelativeTime, test.ShouldEqual, 2.)

	static := FromPrediction(&prediction.PredictedObstacle{ID: "s"})
	test.That(t, static.Trajectory, test.ShouldBeNil)
}

func TestNewRegistryFromPredictions(t *testing.T) {
	t.Run("keeps prediction order", func(t *testing.T) {
		set := &prediction.Set{Obstacles: []prediction.PredictedObstacle{{ID: "b"}, {ID: "a"}, {ID: "c"}}}
		reg, err := NewRegistryFromPredictions(set)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reg.Len(), test.ShouldEqual, 3)
		test.That(t, reg.IDs(), test.ShouldResemble, []string{"b", "a", "c"})

		obs, ok := reg.Get("a")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, obs.External, test.ShouldBeFalse)
	})

	t.Run("empty and nil sets", func(t *testing.T) {
		reg, err := NewRegistryFromPredictions(&prediction.Set{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reg.Len(), test.ShouldEqual, 0)

		reg, err = NewRegistryFromPredictions(nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reg.Len(), test.ShouldEqual, 0)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		set := &prediction.Set{Obstacles: []prediction.PredictedObstacle{
			{ID: "1", Position: r2.Point{X: 1}},
			{ID: "2"},
			{ID: "1", Position: r2.Point{X: 9}},
		}}
		for i := 0; i < 3; i++ {
			reg, err := NewRegistryFromPredictions(set)
			test.That(t, reg, test.ShouldBeNil)
			test.That(t, errors.Is(err, ErrDuplicateObstacleID), test.ShouldBeTrue)
			var dup *DuplicateIDError
			test.That(t, errors.As(err, &dup), test.ShouldBeTrue)
			test.That(t, dup.ID, test.ShouldEqual, "1")
		}
	})

	t.Run("non-finite geometry is rejected", func(t *testing.T) {
		set := &prediction.Set{Obstacles: []prediction.PredictedObstacle{{ID: "n", Position: r2.Point{X: math.NaN()}}}}
		_, err := NewRegistryFromPredictions(set)
		test.That(t, err, test.ShouldBeError, `obstacle "n" has non-finite geometry`)
	})
}

func TestAddExternal(t *testing.T) {
	reg, err := NewRegistryFromPredictions(&prediction.Set{Obstacles: []prediction.PredictedObstacle{{ID: "p"}}})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, reg.AddExternal(&Obstacle{ID: "cone", Length: 0.3, Width: 0.3}), test.ShouldBeNil)
	test.That(t, reg.IDs(), test.ShouldResemble, []string{"p", "cone"})
	cone, ok := reg.Get("cone")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cone.External, test.ShouldBeTrue)

	err = reg.AddExternal(&Obstacle{ID: "p"})
	test.That(t, errors.Is(err, ErrDuplicateObstacleID), test.ShouldBeTrue)
	test.That(t, reg.AddExternal(nil), test.ShouldBeError, "obstacle is nil")
	test.That(t, reg.AddExternal(&Obstacle{}), test.ShouldBeError, "obstacle has no id")

	var ids []string
	for id, obs := range reg.Items() {
		test.That(t, obs.ID, test.ShouldEqual, id)
		ids = append(ids, id)
	}
	test.That(t, ids, test.ShouldResemble, []string{"p", "cone"})
}
