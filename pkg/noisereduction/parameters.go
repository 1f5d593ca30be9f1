package noisereduction

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Mode selects how an engine derives its thresholds.
type Mode int

const (
	ModeUndefined = Mode(iota)

	// ModeAdaptive derives all thresholds from the signal itself, scaled by
	// a single Intensity knob.
	ModeAdaptive

	// ModeManual uses the explicitly configured thresholds.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeUndefined:
		return "undefined"
	case ModeAdaptive:
		return "adaptive"
	case ModeManual:
		return "manual"
	}
	return fmt.Sprintf("unexpected_mode_%d", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "adaptive":
		return ModeAdaptive, nil
	case "manual":
		return ModeManual, nil
	}
	return ModeUndefined, fmt.Errorf("unknown mode: '%s'", s)
}

// The accepted ranges of the tunable parameters. The step values are the
// granularity control surfaces are expected to offer; values in between are
// still accepted.
const (
	IntensityMin     = 0.1
	IntensityMax     = 0.9
	IntensityStep    = 0.1
	IntensityDefault = 0.5

	NoiseThresholdMin     = 0.001
	NoiseThresholdMax     = 0.020
	NoiseThresholdStep    = 0.001
	NoiseThresholdDefault = 0.005

	ReductionStrengthMin     = 0.1
	ReductionStrengthMax     = 0.8
	ReductionStrengthStep    = 0.05
	ReductionStrengthDefault = 0.3

	HighPassStrengthMin     = 0.0
	HighPassStrengthMax     = 0.05
	HighPassStrengthStep    = 0.005
	HighPassStrengthDefault = 0.02

	PreservationThresholdMin     = 0.010
	PreservationThresholdMax     = 0.050
	PreservationThresholdStep    = 0.005
	PreservationThresholdDefault = 0.015
)

// Parameters is the full tuning surface of an engine. Intensity drives the
// adaptive mode; the four thresholds drive the manual mode. Both sets are
// always populated so that switching modes mid-recording needs no other
// state.
type Parameters struct {
	Mode Mode

	// Intensity scales the adaptive thresholds and reduction amounts,
	// 0.1 (gentle) to 0.9 (harsh).
	Intensity float64

	// NoiseThreshold is the amplitude below which a sample is treated as
	// pure noise.
	NoiseThreshold float64

	// ReductionStrength is the gain applied to samples under the noise
	// threshold.
	ReductionStrength float64

	// HighPassStrength is the mix-in amount of the first-difference filter
	// that removes low-frequency rumble.
	HighPassStrength float64

	// PreservationThreshold is the amplitude above which a sample passes
	// unattenuated; between the noise threshold and this point the gain
	// ramps up linearly.
	PreservationThreshold float64
}

// DefaultParameters returns the adaptive mode at middle intensity, with the
// manual thresholds at their defaults.
func DefaultParameters() Parameters {
	return Parameters{
		Mode:                  ModeAdaptive,
		Intensity:             IntensityDefault,
		NoiseThreshold:        NoiseThresholdDefault,
		ReductionStrength:     ReductionStrengthDefault,
		HighPassStrength:      HighPassStrengthDefault,
		PreservationThreshold: PreservationThresholdDefault,
	}
}

// Validate reports every out-of-range field at once.
func (p Parameters) Validate() error {
	var mErr *multierror.Error

	switch p.Mode {
	case ModeAdaptive, ModeManual:
	default:
		mErr = multierror.Append(mErr, fmt.Errorf("unknown mode: %v", p.Mode))
	}

	check := func(name string, value, min, max float64) {
		if value < min || value > max {
			mErr = multierror.Append(mErr, fmt.Errorf("%s is %v, expected a value in [%v, %v]", name, value, min, max))
		}
	}
	check("intensity", p.Intensity, IntensityMin, IntensityMax)
	check("noise_threshold", p.NoiseThreshold, NoiseThresholdMin, NoiseThresholdMax)
	check("reduction_strength", p.ReductionStrength, ReductionStrengthMin, ReductionStrengthMax)
	check("high_pass_strength", p.HighPassStrength, HighPassStrengthMin, HighPassStrengthMax)
	check("preservation_threshold", p.PreservationThreshold, PreservationThresholdMin, PreservationThresholdMax)

	return mErr.ErrorOrNil()
}
