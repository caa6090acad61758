package frame

import (
	"errors"
	"fmt"

	"go.viam.com/planframe/obstacle"
	"go.viam.com/planframe/referenceline"
)

var (
	// ErrMapNotSet is returned by Init when the shared map handle has not been set.
	ErrMapNotSet = errors.New("map is not set")
	// ErrInvalidPose is returned by Init when the pose has a non-finite component.
	ErrInvalidPose = errors.New("invalid pose")
	// ErrReferenceLine matches every failure to produce reference lines, whether the map or the
	// smoother failed.
	ErrReferenceLine = errors.New("reference line generation failed")
	// ErrObstacleAttachment is referenceline.ErrObstacleAttachment.
	ErrObstacleAttachment = referenceline.ErrObstacleAttachment
	// ErrDuplicateObstacleID is obstacle.ErrDuplicateObstacleID.
	ErrDuplicateObstacleID = obstacle.ErrDuplicateObstacleID

	// ErrFrameSealed is returned when a frame's inputs are changed, or Init is called, after Init ran.
	ErrFrameSealed = errors.New("frame is sealed after init")
	// ErrFrameNotInitialized is returned when an operation needs a successfully initialized frame.
	ErrFrameNotInitialized = errors.New("frame is not initialized")
	// ErrHistoryKeyConflict matches every HistoryKeyConflictError.
	ErrHistoryKeyConflict = errors.New("history key conflict")
)

// Stage names a step of Init.
type Stage string

// The Init stages, in the order they run.
const (
	StageMap           Stage = "map"
	StagePose          Stage = "pose"
	StageReferenceLine Stage = "reference_line"
	StageObstacles     Stage = "obstacles"
	StageAttachment    Stage = "attachment"
)

// sentinel is the error every failure of the stage matches, or nil when the cause carries its own.
func (s Stage) sentinel() error {
	switch s {
	case StageMap:
		return ErrMapNotSet
	case StagePose:
		return ErrInvalidPose
	case StageReferenceLine:
		return ErrReferenceLine
	default:
		return nil
	}
}

// InitError reports the stage at which Init failed and why.
type InitError struct {
	Seq   uint32
	Stage Stage
	Err   error
}

// NewInitError is used when the given stage of Init fails.
func NewInitError(seq uint32, stage Stage, err error) *InitError {
	return &InitError{Seq: seq, Stage: stage, Err: err}
}

func (e *InitError) Error() string {
	return fmt.Sprintf("frame %d init failed at %s stage: %v", e.Seq, e.Stage, e.Err)
}

// Unwrap returns the stage's cause.
func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches the stage's sentinel error.
func (e *InitError) Is(target error) bool {
	sentinel := e.Stage.sentinel()
	return sentinel != nil && target == sentinel
}

// HistoryKeyConflictError is returned when a frame is added to a history whose newest frame does
// not have a smaller sequence number.
type HistoryKeyConflictError struct {
	Seq    uint32
	Newest uint32
}

// NewHistoryKeyConflictError is used when seq does not come after the newest stored frame.
func NewHistoryKeyConflictError(seq, newest uint32) error {
	return &HistoryKeyConflictError{Seq: seq, Newest: newest}
}

func (e *HistoryKeyConflictError) Error() string {
	return fmt.Sprintf("%s: sequence number %d does not follow newest frame %d", ErrHistoryKeyConflict, e.Seq, e.Newest)
}

// Is lets errors.Is match ErrHistoryKeyConflict.
func (e *HistoryKeyConflictError) Is(target error) bool {
	return target == ErrHistoryKeyConflict
}
