package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/recording"
)

func TestConfig(t *testing.T) {
	t.Run("Defaults_Are_Valid", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())

		params, err := cfg.Parameters()
		require.NoError(t, err)
		require.Equal(t, noisereduction.DefaultParameters(), params)

		reducer, err := cfg.NewReducer()
		require.NoError(t, err)
		require.NoError(t, reducer.Close())
	})

	t.Run("Empty_Document_Means_Defaults", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(""))
		require.NoError(t, err)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("Partial_Override_Keeps_Other_Defaults", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(`
engine: spectral
reduction:
  intensity: 0.7
`))
		require.NoError(t, err)
		require.Equal(t, "spectral", cfg.Engine)
		require.Equal(t, 0.7, cfg.Reduction.Intensity)

		// everything not mentioned in the document stays at its default
		require.Equal(t, noisereduction.NoiseThresholdDefault, cfg.Reduction.NoiseThreshold)
		require.Equal(t, recording.DefaultBlockSize, cfg.Capture.BlockSize)
		require.Equal(t, "original.wav", cfg.Output.RawFile)
		require.Equal(t, "processed.wav", cfg.Output.ProcessedFile)
	})

	t.Run("Preset_Overrides_Knobs", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(`
preset: aggressive
reduction:
  mode: adaptive
  noise_threshold: 0.001
`))
		require.NoError(t, err)

		params, err := cfg.Parameters()
		require.NoError(t, err)
		require.Equal(t, noisereduction.ModeManual, params.Mode)
		require.Equal(t, 0.008, params.NoiseThreshold)
		require.Equal(t, 0.5, params.ReductionStrength)
		require.Equal(t, 0.03, params.HighPassStrength)
		require.Equal(t, 0.025, params.PreservationThreshold)

		// the preset covers only the manual knobs, not the intensity
		require.Equal(t, noisereduction.IntensityDefault, params.Intensity)
	})

	t.Run("Unknown_Preset_Is_Rejected", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader(`preset: crispy`))
		require.Error(t, err)
	})

	t.Run("Unknown_Field_Is_Rejected", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader(`enginee: gate`))
		require.Error(t, err)
	})

	t.Run("Unknown_Engine_Is_Rejected", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader(`engine: rnnoise`))
		require.Error(t, err)
	})

	t.Run("Out_Of_Range_Values_Are_Rejected", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader(`
reduction:
  intensity: 1.5
`))
		require.Error(t, err)
	})

	t.Run("Zero_Block_Size_Is_Rejected", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader(`
capture:
  block_size: 0
`))
		require.Error(t, err)
	})
}
