package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/gate"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/spectral"
	"github.com/mkoltafidox/noise-filter/pkg/recording"
)

// Config is the file configuration of the recorder. Every field has a
// default, so an empty document (or no config file at all) is valid.
type Config struct {
	Engine    string          `yaml:"engine"`
	Preset    string          `yaml:"preset"`
	Reduction ReductionConfig `yaml:"reduction"`
	Capture   CaptureConfig   `yaml:"capture"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ReductionConfig struct {
	Mode                  string  `yaml:"mode"`
	Intensity             float64 `yaml:"intensity"`
	NoiseThreshold        float64 `yaml:"noise_threshold"`
	ReductionStrength     float64 `yaml:"reduction_strength"`
	HighPassStrength      float64 `yaml:"high_pass_strength"`
	PreservationThreshold float64 `yaml:"preservation_threshold"`
}

type CaptureConfig struct {
	BlockSize int `yaml:"block_size"`
}

type OutputConfig struct {
	Directory     string `yaml:"directory"`
	RawFile       string `yaml:"raw_file"`
	ProcessedFile string `yaml:"processed_file"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

func DefaultConfig() *Config {
	params := noisereduction.DefaultParameters()
	return &Config{
		Engine: "gate",
		Reduction: ReductionConfig{
			Mode:                  params.Mode.String(),
			Intensity:             params.Intensity,
			NoiseThreshold:        params.NoiseThreshold,
			ReductionStrength:     params.ReductionStrength,
			HighPassStrength:      params.HighPassStrength,
			PreservationThreshold: params.PreservationThreshold,
		},
		Capture: CaptureConfig{
			BlockSize: recording.DefaultBlockSize,
		},
		Output: OutputConfig{
			Directory:     ".",
			RawFile:       "original.wav",
			ProcessedFile: "processed.wav",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the config file '%s': %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the config file '%s': %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader decodes a YAML document over the defaults: keys
// absent from the document keep their default values, unknown keys are
// rejected.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	// an empty document surfaces as io.EOF, which just means "all defaults"
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var mErr *multierror.Error

	switch c.Engine {
	case "gate", "spectral", "dummy":
	default:
		mErr = multierror.Append(mErr, fmt.Errorf("unknown engine: '%s'", c.Engine))
	}
	if _, err := c.Parameters(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("invalid reduction parameters: %w", err))
	}
	if c.Capture.BlockSize <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("capture.block_size is %d, expected a positive value", c.Capture.BlockSize))
	}
	if c.Output.RawFile == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("output.raw_file is empty"))
	}
	if c.Output.ProcessedFile == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("output.processed_file is empty"))
	}

	return mErr.ErrorOrNil()
}

// Parameters resolves the effective engine parameters. A non-empty preset
// overrides the manual thresholds, the same way selecting a preset fills
// the sliders on a control surface.
func (c *Config) Parameters() (noisereduction.Parameters, error) {
	mode, err := noisereduction.ParseMode(c.Reduction.Mode)
	if err != nil {
		return noisereduction.Parameters{}, err
	}
	params := noisereduction.Parameters{
		Mode:                  mode,
		Intensity:             c.Reduction.Intensity,
		NoiseThreshold:        c.Reduction.NoiseThreshold,
		ReductionStrength:     c.Reduction.ReductionStrength,
		HighPassStrength:      c.Reduction.HighPassStrength,
		PreservationThreshold: c.Reduction.PreservationThreshold,
	}
	if c.Preset != "" {
		preset, err := noisereduction.PresetByName(c.Preset)
		if err != nil {
			return noisereduction.Parameters{}, err
		}
		params.Mode = noisereduction.ModeManual
		params.NoiseThreshold = preset.NoiseThreshold
		params.ReductionStrength = preset.ReductionStrength
		params.HighPassStrength = preset.HighPassStrength
		params.PreservationThreshold = preset.PreservationThreshold
	}
	if err := params.Validate(); err != nil {
		return noisereduction.Parameters{}, err
	}
	return params, nil
}

// NewReducer instantiates the configured engine.
func (c *Config) NewReducer() (noisereduction.Reducer, error) {
	switch c.Engine {
	case "gate":
		return gate.New(), nil
	case "spectral":
		return spectral.New(), nil
	case "dummy":
		return noisereduction.NewDummy(), nil
	}
	return nil, fmt.Errorf("unknown engine: '%s'", c.Engine)
}
