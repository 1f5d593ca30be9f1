package noisereduction

import (
	"fmt"
)

// Preset is a named bundle of manual-mode thresholds.
type Preset struct {
	Name        string
	Description string

	NoiseThreshold        float64
	ReductionStrength     float64
	HighPassStrength      float64
	PreservationThreshold float64
}

// Parameters expands the preset into a full manual-mode parameter set. The
// intensity stays at its default so that a later switch to the adaptive mode
// behaves predictably.
func (p Preset) Parameters() Parameters {
	params := DefaultParameters()
	params.Mode = ModeManual
	params.NoiseThreshold = p.NoiseThreshold
	params.ReductionStrength = p.ReductionStrength
	params.HighPassStrength = p.HighPassStrength
	params.PreservationThreshold = p.PreservationThreshold
	return params
}

var presets = []Preset{
	{
		Name:                  "clean-crisp",
		Description:           "light cleanup that keeps quiet speech intact",
		NoiseThreshold:        0.003,
		ReductionStrength:     0.2,
		HighPassStrength:      0.01,
		PreservationThreshold: 0.020,
	},
	{
		Name:                  "aggressive",
		Description:           "strong suppression for noisy environments",
		NoiseThreshold:        0.008,
		ReductionStrength:     0.5,
		HighPassStrength:      0.03,
		PreservationThreshold: 0.025,
	},
	{
		Name:                  "balanced",
		Description:           "the defaults, as a named starting point",
		NoiseThreshold:        0.005,
		ReductionStrength:     0.3,
		HighPassStrength:      0.02,
		PreservationThreshold: 0.015,
	},
}

// Presets lists the built-in presets in a stable order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByName finds a built-in preset.
func PresetByName(name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset: '%s'", name)
}
