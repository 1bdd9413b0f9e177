package weather

import (
	"fmt"
	"sync"
)

// Configured sets up the weather providers based on flags.
func Configured() *Map {
	m := NewMap()
	m.SetProvider("openmeteo", configuredOpenMeteo())
	return m
}

// Map manages multiple weather providers.
type Map struct {
	mu        sync.Mutex
	providers map[string]Provider
}

// NewMap creates a new weather Map.
func NewMap() *Map {
	return &Map{
		providers: make(map[string]Provider),
	}
}

// Provider returns the provider for the given name.
func (m *Map) Provider(name string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prov, ok := m.providers[name]; ok {
		return prov, nil
	}
	return nil, fmt.Errorf("unknown weather provider: %s", name)
}

// SetProvider sets the provider for the given name. This is primarily used for testing.
func (m *Map) SetProvider(name string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = provider
}
