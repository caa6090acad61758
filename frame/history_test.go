package frame

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"
)

func initializedFrames(t *testing.T, seqs ...uint32) []*Frame {
	t.Helper()
	m := straightRoad(t)
	env, mock := testEnv(t, m)
	m.clk = mock
	frames := make([]*Frame, 0, len(seqs))
	for i, seq := range seqs {
		m.cost = time.Duration(i+1) * 10 * time.Millisecond
		f := configuredFrame(t, seq, env, singleObstaclePrediction())
		test.That(t, f.Init(context.Background()), test.ShouldBeNil)
		frames = append(frames, f)
	}
	return frames
}

func TestHistoryEviction(t *testing.T) {
	const capacity = 3
	h := NewHistory(capacity)
	test.That(t, h.Capacity(), test.ShouldEqual, capacity)

	frames := initializedFrames(t, 10, 11, 12, 13)
	for _, f := range frames {
		test.That(t, h.Add(f), test.ShouldBeNil)
	}

	test.That(t, h.Len(), test.ShouldEqual, capacity)
	_, ok := h.Get(10)
	test.That(t, ok, test.ShouldBeFalse)
	for _, f := range frames[1:] {
		got, ok := h.Get(f.SequenceNum())
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, f)
	}
	test.That(t, h.Frames(), test.ShouldResemble, frames[1:])

	latest, ok := h.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latest, test.ShouldEqual, frames[3])
}

func TestHistoryRejects(t *testing.T) {
	frames := initializedFrames(t, 5, 6)
	h := NewHistory(10)
	test.That(t, h.Add(frames[1]), test.ShouldBeNil)

	t.Run("older sequence number", func(t *testing.T) {
		err := h.Add(frames[0])
		test.That(t, errors.Is(err, ErrHistoryKeyConflict), test.ShouldBeTrue)
		var conflict *HistoryKeyConflictError
		test.That(t, errors.As(err, &conflict), test.ShouldBeTrue)
		test.That(t, conflict.Seq, test.ShouldEqual, uint32(5))
		test.That(t, conflict.Newest, test.ShouldEqual, uint32(6))
	})

	t.Run("same sequence number", func(t *testing.T) {
		test.That(t, errors.Is(h.Add(frames[1]), ErrHistoryKeyConflict), test.ShouldBeTrue)
	})

	t.Run("uninitialized frame", func(t *testing.T) {
		env, _ := testEnv(t, straightRoad(t))
		f := configuredFrame(t, 7, env, nil)
		err := h.Add(f)
		test.That(t, errors.Is(err, ErrFrameNotInitialized), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "frame 7 is configured")
	})

	t.Run("failed frame", func(t *testing.T) {
		env, _ := testEnv(t, nil)
		f := configuredFrame(t, 8, env, nil)
		test.That(t, f.Init(context.Background()), test.ShouldNotBeNil)
		test.That(t, errors.Is(h.Add(f), ErrFrameNotInitialized), test.ShouldBeTrue)
	})

	t.Run("nil frame", func(t *testing.T) {
		test.That(t, h.Add(nil), test.ShouldNotBeNil)
	})

	test.That(t, h.Len(), test.ShouldEqual, 1)
}

func TestHistorySummary(t *testing.T) {
	h := NewHistory(10)
	sum, err := h.Summary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sum, test.ShouldResemble, Summary{})

	for _, f := range initializedFrames(t, 1, 2, 3, 4) {
		test.That(t, h.Add(f), test.ShouldBeNil)
	}
	sum, err = h.Summary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sum.Frames, test.ShouldEqual, 4)
	test.That(t, sum.OldestSeq, test.ShouldEqual, uint32(1))
	test.That(t, sum.NewestSeq, test.ShouldEqual, uint32(4))
	test.That(t, sum.MeanInitDuration, test.ShouldEqual, 25*time.Millisecond)
	test.That(t, sum.P95InitDuration, test.ShouldEqual, 35*time.Millisecond)
	test.That(t, sum.MeanCandidates, test.ShouldEqual, 1.)
	test.That(t, sum.MeanObstacles, test.ShouldEqual, 1.)
}

func TestHistoryString(t *testing.T) {
	h := NewHistory(10)
	for _, f := range initializedFrames(t, 7, 8) {
		test.That(t, h.Add(f), test.ShouldBeNil)
	}
	out := h.String()
	test.That(t, out, test.ShouldContainSubstring, "SEQ")
	test.That(t, out, test.ShouldContainSubstring, "X:10.00, Y:5.00, Heading:0.00")
	test.That(t, out, test.ShouldContainSubstring, "10ms")
	test.That(t, out, test.ShouldContainSubstring, "20ms")
	// header, two frames and the borders
	test.That(t, len(strings.Split(strings.TrimSpace(out), "\n")), test.ShouldEqual, 6)
}

func TestHistoryConcurrentReaders(t *testing.T) {
	frames := initializedFrames(t, 1, 2, 3, 4, 5, 6)
	h := NewHistory(4)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, f := range h.Frames() {
					_ = f.PrimaryCandidate()
				}
				_, _ = h.Latest()
				_, _ = h.Summary()
			}
		}()
	}
	for _, f := range frames {
		test.That(t, h.Add(f), test.ShouldBeNil)
	}
	close(stop)
	wg.Wait()

	test.That(t, h.Len(), test.ShouldEqual, 4)
	_, ok := h.Get(2)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNewHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	test.That(t, h.Capacity(), test.ShouldEqual, 1)
	frames := initializedFrames(t, 1, 2)
	test.That(t, h.Add(frames[0]), test.ShouldBeNil)
	test.That(t, h.Add(frames[1]), test.ShouldBeNil)
	test.That(t, h.Frames(), test.ShouldResemble, []*Frame{frames[1]})
}
