package pulseaudio

import (
	"github.com/mkoltafidox/noise-filter/pkg/audio/registry"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

const (
	Priority = 100
)

func init() {
	registry.RegisterPlayerFactory(Priority, PlayerPCMPulseFactory{})
	registry.RegisterCapturerFactory(Priority, CapturerPCMPulseFactory{})
}

type PlayerPCMPulseFactory struct{}

func (PlayerPCMPulseFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}

type CapturerPCMPulseFactory struct{}

func (CapturerPCMPulseFactory) NewCapturerPCM() (types.CapturerPCM, error) {
	return NewCapturerPCM()
}
