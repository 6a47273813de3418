package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotRegistered is returned when no passthrough config exists for a name.
var ErrNotRegistered = errors.New("passthrough provider not registered")

var (
	mu       sync.RWMutex
	registry = make(map[string]PassthroughConfig)
)

// RegisterPassthrough adds a passthrough config to the global registry.
// Registering the same name again replaces the previous entry.
func RegisterPassthrough(name string, cfg PassthroughConfig) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = cfg
}

// GetPassthrough returns the passthrough config registered under name.
func GetPassthrough(name string) (PassthroughConfig, error) {
	mu.RLock()
	defer mu.RUnlock()
	cfg, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return cfg, nil
}

// ListPassthrough returns all registered names in sorted order.
func ListPassthrough() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
