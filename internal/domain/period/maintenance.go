package period

import "sync"

// MaintenanceState gates engine writes while maintenance work runs.
// It is injected into the services that need it, never shared as a
// package-level singleton.
type MaintenanceState struct {
	mu     sync.RWMutex
	active bool
	reason string
}

// NewMaintenanceState creates an inactive state
func NewMaintenanceState() *MaintenanceState {
	return &MaintenanceState{}
}

// Enter activates maintenance mode
func (s *MaintenanceState) Enter(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.reason = reason
}

// Leave deactivates maintenance mode
func (s *MaintenanceState) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.reason = ""
}

// IsActive reports whether maintenance mode is on and why
func (s *MaintenanceState) IsActive() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.reason
}
