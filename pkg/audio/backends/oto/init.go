package oto

import (
	"github.com/mkoltafidox/noise-filter/pkg/audio/registry"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

const (
	Priority = 50
)

func init() {
	registry.RegisterPlayerFactory(Priority, PlayerPCMOtoFactory{})
}

type PlayerPCMOtoFactory struct{}

func (PlayerPCMOtoFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}
