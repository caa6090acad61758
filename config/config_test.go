package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/planframe/logging"
	"go.viam.com/planframe/referenceline"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate("planner"), test.ShouldBeNil)
	test.That(t, cfg.MaxHistoryFrames, test.ShouldEqual, DefaultMaxHistoryFrames)
	test.That(t, cfg.EnableObstacleIngestion, test.ShouldBeTrue)
	test.That(t, cfg.RecordDebugInputs, test.ShouldBeFalse)
	test.That(t, cfg.Smoother.Type, test.ShouldEqual, referenceline.SplineSmootherName)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.INFO)
}

func TestFromReader(t *testing.T) {
	t.Run("overrides keep other defaults", func(t *testing.T) {
		cfg, err := FromReader(strings.NewReader(`{
			"max_history_frames": 3,
			"enable_obstacle_ingestion": false,
			"smoother": {"type": "passthrough"},
			"log_level": "debug"
		}`))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.MaxHistoryFrames, test.ShouldEqual, 3)
		test.That(t, cfg.EnableObstacleIngestion, test.ShouldBeFalse)
		test.That(t, cfg.Smoother.Type, test.ShouldEqual, referenceline.PassthroughSmootherName)
		test.That(t, cfg.LookForwardDistance, test.ShouldEqual, DefaultLookForwardDistance)
		test.That(t, cfg.Level(), test.ShouldEqual, logging.DEBUG)
	})

	t.Run("json5", func(t *testing.T) {
		cfg, err := FromReader(strings.NewReader(`{
			// keep fewer frames on the bench
			max_history_frames: 5,
			smoother: {type: "passthrough"}
		}`))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.MaxHistoryFrames, test.ShouldEqual, 5)
		test.That(t, cfg.Smoother.Type, test.ShouldEqual, "passthrough")
		test.That(t, cfg.LookForwardDistance, test.ShouldEqual, DefaultLookForwardDistance)

		_, err = FromReader(strings.NewReader(`{max_frames: 3}`))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `unknown field "max_frames"`)
	})

	t.Run("unknown fields", func(t *testing.T) {
		_, err := FromReader(strings.NewReader(`{"max_frames": 3}`))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse config")
	})

	t.Run("every problem is reported", func(t *testing.T) {
		_, err := FromReader(strings.NewReader(`{
			"max_history_frames": 0,
			"look_forward_distance": -1,
			"smoother": {"type": "bezier"},
			"log_level": "loud"
		}`))
		test.That(t, err, test.ShouldNotBeNil)
		errs := multierr.Errors(err)
		test.That(t, len(errs), test.ShouldEqual, 4)
		test.That(t, err.Error(), test.ShouldContainSubstring, "max_history_frames must be at least 1")
		test.That(t, err.Error(), test.ShouldContainSubstring, "look_forward_distance must be positive")
		test.That(t, err.Error(), test.ShouldContainSubstring, `no smoother registered with name "bezier"`)
		test.That(t, err.Error(), test.ShouldContainSubstring, `unknown log level: "loud"`)
	})

	t.Run("missing smoother type", func(t *testing.T) {
		_, err := FromReader(strings.NewReader(`{"smoother": {"resample_resolution": 1}}`))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `"type" is required`)
	})
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.json")
	test.That(t, os.WriteFile(path, []byte(`{"record_debug_inputs": true}`), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.RecordDebugInputs, test.ShouldBeTrue)

	_, err = Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot open config")
}

func TestSchema(t *testing.T) {
	out, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "max_history_frames")
	test.That(t, string(out), test.ShouldContainSubstring, "resample_resolution")
}
