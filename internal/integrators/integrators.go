package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/geodesim/internal/dynamo"
)

// Factory builds a fresh stepper. Steppers with scratch buffers are not safe
// for concurrent use, so every goroutine takes its own.
type Factory func() dynamo.Integrator

var registry = map[string]Factory{
	"rk45": func() dynamo.Integrator { return NewRK45() },
	"rk4":  func() dynamo.Integrator { return NewRK4() },
}

func ByName(name string) (Factory, error) {
	if name == "" {
		name = "rk45"
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
