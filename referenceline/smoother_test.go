package referenceline

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func straightLine(t *testing.T, length float64, n int) *ReferenceLine {
	t.Helper()
	pts := make([]r2.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, r2.Point{X: length * float64(i) / float64(n-1), Y: 4})
	}
	line, err := NewReferenceLine(pts, []string{"lane"})
	test.That(t, err, test.ShouldBeNil)
	return line
}

func TestNewReferenceLine(t *testing.T) {
	line := straightLine(t, 30, 4)
	test.That(t, line.NumPoints(), test.ShouldEqual, 4)
	test.That(t, line.Length(), test.ShouldAlmostEqual, 30)
	test.That(t, line.LaneIDs(), test.ShouldResemble, []string{"lane"})
	test.That(t, line.PositionAt(15), test.ShouldResemble, r2.Point{X: 15, Y: 4})
	test.That(t, line.String(), test.ShouldContainSubstring, "30.0m")

	test.That(t, line.Contains(r2.Point{X: 10, Y: 6}, 3), test.ShouldBeTrue)
	test.That(t, line.Contains(r2.Point{X: 10, Y: 8}, 3), test.ShouldBeFalse)
	test.That(t, line.Contains(r2.Point{X: -1, Y: 4}, 3), test.ShouldBeFalse)
	test.That(t, line.Contains(r2.Point{X: 31, Y: 4}, 3), test.ShouldBeFalse)

	t.Run("points are copies", func(t *testing.T) {
		pts := line.Points()
		pts[0].Position.X = 1000
		test.That(t, line.Points()[0].Position.X, test.ShouldEqual, 0.)
	})

	_, err := NewReferenceLine([]r2.Point{{X: 1}, {X: 1}}, nil)
	test.That(t, err, test.ShouldBeError, "a reference line needs at least two distinct points")

	_, err = NewReferenceLine([]r2.Point{{X: 1}, {X: math.NaN()}}, nil)
	test.That(t, err, test.ShouldBeError, "reference line point 1 is not finite")
}

func TestSplineSmoother(t *testing.T) {
	sm, err := NewSplineSmoother(SmootherConfig{ResampleResolution: 0.5})
	test.That(t, err, test.ShouldBeNil)

	t.Run("straight line stays straight", func(t *testing.T) {
		smoothed, err := sm.Smooth(straightLine(t, 30, 4))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, smoothed.NumPoints(), test.ShouldEqual, 61)
		test.That(t, smoothed.Length(), test.ShouldAlmostEqual, 30)
		for _, p := range smoothed.Points() {
			test.That(t, p.Position.Y, test.ShouldAlmostEqual, 4)
			test.That(t, p.Heading, test.ShouldAlmostEqual, 0)
			test.That(t, p.Kappa, test.ShouldAlmostEqual, 0)
		}
		test.That(t, smoothed.LaneIDs(), test.ShouldResemble, []string{"lane"})
	})

	t.Run("too few points", func(t *testing.T) {
		_, err := sm.Smooth(straightLine(t, 30, 2))
		test.That(t, errors.Is(err, ErrSmoothing), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "need at least 3 points, got 2")
	})

	t.Run("nil line", func(t *testing.T) {
		_, err := sm.Smooth(nil)
		test.That(t, errors.Is(err, ErrSmoothing), test.ShouldBeTrue)
	})

	t.Run("deviation limit rejects curvy fits", func(t *testing.T) {
		strict, err := NewSplineSmoother(SmootherConfig{MaxDeviation: 1e-6})
		test.That(t, err, test.ShouldBeNil)
		zigzag, err := NewReferenceLine([]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 20, Y: 0}, {X: 30, Y: 5}}, nil)
		test.That(t, err, test.ShouldBeNil)
		_, err = strict.Smooth(zigzag)
		test.That(t, errors.Is(err, ErrSmoothing), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "from the raw line")
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := NewSplineSmoother(SmootherConfig{ResampleResolution: -1})
		test.That(t, err, test.ShouldNotBeNil)
		_, err = NewSplineSmoother(SmootherConfig{MaxDeviation: -1})
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestSmootherRegistry(t *testing.T) {
	test.That(t, RegisteredSmoothers(), test.ShouldResemble, []string{PassthroughSmootherName, SplineSmootherName})

	sm, err := NewSmoother(SmootherConfig{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sm, test.ShouldHaveSameTypeAs, &SplineSmoother{})

	pass, err := NewSmoother(SmootherConfig{Type: PassthroughSmootherName})
	test.That(t, err, test.ShouldBeNil)
	line := straightLine(t, 10, 2)
	out, err := pass.Smooth(line)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, line)

	_, err = NewSmoother(SmootherConfig{Type: "bezier"})
	test.That(t, err, test.ShouldBeError, `no smoother registered with name "bezier"`)

	test.That(t, func() { RegisterSmoother(SplineSmootherName, nil) }, test.ShouldPanic)
	test.That(t, func() { RegisterSmoother("nil-constructor", nil) }, test.ShouldPanic)
}
