package registry

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type CapturerPCMFactory interface {
	NewCapturerPCM() (types.CapturerPCM, error)
}

type capturerFactoryWithPriority struct {
	Priority int
	CapturerPCMFactory
}

var capturerFactoryRegistry = map[reflect.Type]capturerFactoryWithPriority{}

func RegisterCapturerFactory(
	priority int,
	capturerPCMFactory CapturerPCMFactory,
) {
	t := reflect.ValueOf(capturerPCMFactory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := capturerFactoryRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of CapturerPCM of type %v", t))
	}
	capturerFactoryRegistry[t] = capturerFactoryWithPriority{
		Priority:           priority,
		CapturerPCMFactory: capturerPCMFactory,
	}
}

func CapturerFactories() []CapturerPCMFactory {
	var factoriesWithPriorities []capturerFactoryWithPriority
	for _, factory := range capturerFactoryRegistry {
		factoriesWithPriorities = append(factoriesWithPriorities, factory)
	}
	sort.Slice(factoriesWithPriorities, func(i, j int) bool {
		return factoriesWithPriorities[i].Priority > factoriesWithPriorities[j].Priority
	})

	var factories []CapturerPCMFactory
	for _, factory := range factoriesWithPriorities {
		factories = append(factories, factory.CapturerPCMFactory)
	}

	return factories
}
