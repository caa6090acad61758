// Package config defines the planner's configuration surface and how it is read.
package config

import (
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/planframe/logging"
	"go.viam.com/planframe/referenceline"
)

// Defaults applied to anything a config file leaves out.
const (
	DefaultMaxHistoryFrames     = 50
	DefaultLookBackwardDistance = 50.0
	DefaultLookForwardDistance  = 180.0
)

// Config is everything the planning context reads from configuration.
type Config struct {
	// MaxHistoryFrames is how many completed frames the history retains.
	MaxHistoryFrames int `json:"max_history_frames"`

	// LookBackwardDistance and LookForwardDistance, in meters, bound the map path extracted
	// around the vehicle.
	LookBackwardDistance float64 `json:"look_backward_distance"`
	LookForwardDistance  float64 `json:"look_forward_distance"`

	Smoother referenceline.SmootherConfig `json:"smoother"`

	// CorridorHalfWidth is the lateral reach, in meters, used to decide which obstacles belong to a
	// reference line.
	CorridorHalfWidth float64 `json:"corridor_half_width"`

	EnableObstacleIngestion bool `json:"enable_obstacle_ingestion"`
	RecordDebugInputs       bool `json:"record_debug_inputs"`

	LogLevel string `json:"log_level,omitempty"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		MaxHistoryFrames:     DefaultMaxHistoryFrames,
		LookBackwardDistance: DefaultLookBackwardDistance,
		LookForwardDistance:  DefaultLookForwardDistance,
		Smoother: referenceline.SmootherConfig{
			Type:               referenceline.SplineSmootherName,
			ResampleResolution: referenceline.DefaultResampleResolution,
		},
		CorridorHalfWidth:       referenceline.DefaultCorridorHalfWidth,
		EnableObstacleIngestion: true,
	}
}

// Validate ensures all parts of the config are valid. Every problem found is reported.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.MaxHistoryFrames < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("max_history_frames must be at least 1, got %d", cfg.MaxHistoryFrames)))
	}
	if cfg.LookBackwardDistance < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("look_backward_distance cannot be negative, got %v", cfg.LookBackwardDistance)))
	}
	if cfg.LookForwardDistance <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("look_forward_distance must be positive, got %v", cfg.LookForwardDistance)))
	}
	if cfg.CorridorHalfWidth <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("corridor_half_width must be positive, got %v", cfg.CorridorHalfWidth)))
	}
	if cfg.Smoother.Type == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path+".smoother", "type"))
	} else if _, err := referenceline.NewSmoother(cfg.Smoother); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".smoother", err))
	}
	if cfg.LogLevel != "" {
		if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
		}
	}
	return errs
}

// Level returns the configured log level, INFO when unset.
func (cfg *Config) Level() logging.Level {
	if cfg.LogLevel == "" {
		return logging.INFO
	}
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// FromReader decodes a JSON or JSON5 config on top of the defaults and validates it.
func FromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := DecodeStrict(r, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	if err := cfg.Validate("planner"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the config at path.
func Read(path string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open config %q", path)
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	return FromReader(f)
}

// Schema returns the JSON schema of the config file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
