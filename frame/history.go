package frame

import (
	"fmt"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/planframe/registry"
)

// History keeps the most recent initialized frames, keyed by sequence number, for inspection
// after the fact. The oldest frame is evicted once capacity is reached.
//
// One planning task adds frames while any number of readers inspect them.
type History struct {
	mu     sync.RWMutex
	frames *registry.IndexedList[uint32, *Frame]
}

// NewHistory returns a history holding at most capacity frames. A capacity below one holds a
// single frame.
func NewHistory(capacity int) *History {
	return &History{frames: registry.NewIndexedList[uint32, *Frame](max(capacity, 1), registry.RejectDuplicates)}
}

// Add stores an initialized frame. Its sequence number must be larger than any stored before.
func (h *History) Add(f *Frame) error {
	if f == nil {
		return errors.New("cannot add a nil frame to history")
	}
	if f.State() != Initialized {
		return errors.Wrapf(ErrFrameNotInitialized, "frame %d is %v", f.SequenceNum(), f.State())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if newest, _, ok := h.frames.Newest(); ok && f.SequenceNum() <= newest {
		return NewHistoryKeyConflictError(f.SequenceNum(), newest)
	}
	_, _, err := h.frames.AddWithEviction(f.SequenceNum(), f)
	return err
}

// Get returns the frame with sequence number seq, if still held.
func (h *History) Get(seq uint32) (*Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frames.Get(seq)
}

// Latest returns the most recently added frame.
func (h *History) Latest() (*Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, f, ok := h.frames.Newest()
	return f, ok
}

// Len returns the number of frames held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frames.Len()
}

// Capacity returns the most frames the history holds.
func (h *History) Capacity() int {
	return h.frames.Capacity()
}

// Frames returns the held frames, oldest first.
func (h *History) Frames() []*Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Frame, 0, h.frames.Len())
	for _, f := range h.frames.Items() {
		out = append(out, f)
	}
	return out
}

// String prints a table of the held frames, oldest first, with columns of sequence number, pose,
// reference line length, candidate and obstacle counts, and init latency.
func (h *History) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Seq", "Pose", "Line Length", "Candidates", "Obstacles", "Init"})
	for _, f := range h.Frames() {
		pose := f.Pose()
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", f.SequenceNum()),
			fmt.Sprintf("X:%.2f, Y:%.2f, Heading:%.2f", pose.Position.X, pose.Position.Y, pose.Heading),
			fmt.Sprintf("%.1f", f.ReferenceLine().Length()),
			len(f.ReferenceLineInfos()),
			f.Obstacles().Len(),
			f.InitDuration().String(),
		})
	}
	return t.Render()
}

// Summary describes the frames currently in a history.
type Summary struct {
	Frames    int
	OldestSeq uint32
	NewestSeq uint32

	MeanInitDuration time.Duration
	P95InitDuration  time.Duration

	MeanCandidates float64
	MeanObstacles  float64
}

// Summary aggregates init latency and candidate and obstacle counts over the held frames.
func (h *History) Summary() (Summary, error) {
	frames := h.Frames()
	if len(frames) == 0 {
		return Summary{}, nil
	}

	latencies := make(stats.Float64Data, 0, len(frames))
	candidates := make(stats.Float64Data, 0, len(frames))
	obstacles := make(stats.Float64Data, 0, len(frames))
	for _, f := range frames {
		latencies = append(latencies, float64(f.InitDuration()))
		candidates = append(candidates, float64(len(f.ReferenceLineInfos())))
		obstacles = append(obstacles, float64(f.Obstacles().Len()))
	}

	sum := Summary{
		Frames:    len(frames),
		OldestSeq: frames[0].SequenceNum(),
		NewestSeq: frames[len(frames)-1].SequenceNum(),
	}
	mean, err := latencies.Mean()
	if err != nil {
		return Summary{}, err
	}
	p95, err := latencies.Percentile(95)
	if err != nil {
		return Summary{}, err
	}
	sum.MeanInitDuration, sum.P95InitDuration = time.Duration(mean), time.Duration(p95)
	if sum.MeanCandidates, err = candidates.Mean(); err != nil {
		return Summary{}, err
	}
	if sum.MeanObstacles, err = obstacles.Mean(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}
