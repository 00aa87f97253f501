package surface

import (
	"sync"

	"go.uber.org/zap"
)

// Slots holds the current binding of each surface. Getters return the
// binding at call time; callers must not cache the result across events,
// so a rebind takes effect for the next event delivered.
//
// A new Slots is bound to stubs. Setting nil rebinds the stub, which is
// how a surface unmounts.
type Slots struct {
	mu        sync.RWMutex
	console   Console
	documents Documents
	graphics  Graphics

	stubConsole   Console
	stubDocuments Documents
	stubGraphics  Graphics
}

// NewSlots returns slots bound to the fail-fast stubs. logger receives the
// stubs' warnings; nil means no-op.
func NewSlots(logger *zap.Logger) *Slots {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Slots{
		stubConsole:   stubConsole{log: logger},
		stubDocuments: stubDocuments{log: logger},
		stubGraphics:  stubGraphics{log: logger},
	}
	s.console = s.stubConsole
	s.documents = s.stubDocuments
	s.graphics = s.stubGraphics
	return s
}

func (s *Slots) Console() Console {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.console
}

func (s *Slots) Documents() Documents {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents
}

func (s *Slots) Graphics() Graphics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graphics
}

func (s *Slots) SetConsole(c Console) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		c = s.stubConsole
	}
	s.console = c
}

func (s *Slots) SetDocuments(d Documents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == nil {
		d = s.stubDocuments
	}
	s.documents = d
}

func (s *Slots) SetGraphics(g Graphics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g == nil {
		g = s.stubGraphics
	}
	s.graphics = g
}

// Bound reports which surfaces are bound to a real implementation.
func (s *Slots) Bound() (console, documents, graphics bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.console != s.stubConsole, s.documents != s.stubDocuments, s.graphics != s.stubGraphics
}
