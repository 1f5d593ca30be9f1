package recording

import (
	"fmt"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

// InvalidStateError is returned when an operation is called in a state that
// does not allow it. The state machine never guesses an implicit transition.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation '%s' is not allowed in state '%v'", e.Op, e.State)
}

// ConfigurationError is returned when captured audio arrives at a different
// rate than the pipeline was configured for. Live capture is never resampled
// behind the caller's back; the mismatch has to be fixed at the source.
type ConfigurationError struct {
	Requested types.SampleRate
	Actual    types.SampleRate
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("the audio arrives at %d Hz, while the pipeline is configured for %d Hz", e.Actual, e.Requested)
}
