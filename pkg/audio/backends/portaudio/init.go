package portaudio

import (
	"github.com/mkoltafidox/noise-filter/pkg/audio/registry"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

const (
	Priority = 60
)

func init() {
	registry.RegisterPlayerFactory(Priority, PlayerPCMFactory{})
	registry.RegisterCapturerFactory(Priority, CapturerPCMFactory{})
}

type PlayerPCMFactory struct{}

func (PlayerPCMFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}

type CapturerPCMFactory struct{}

func (CapturerPCMFactory) NewCapturerPCM() (types.CapturerPCM, error) {
	return NewCapturerPCM()
}
