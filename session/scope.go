package session

import (
	"errors"
	"fmt"

	"github.com/arc-language/core-emit/backend"
)

type resource struct {
	name string
	r    backend.Releaser
}

// Scope owns the handles acquired during a session and releases them in
// reverse acquisition order, so a module or builder always goes before the
// context it was created in.
type Scope struct {
	resources []resource
	logger    *Logger
	released  bool
}

// NewScope creates an empty scope
func NewScope(logger *Logger) *Scope {
	if logger == nil {
		logger = NewLogger("scope", nil)
	}
	return &Scope{logger: logger}
}

// Acquire hands r to the scope. A scope that was already released
// releases r immediately.
func (s *Scope) Acquire(name string, r backend.Releaser) error {
	if s.released {
		if err := r.Release(); err != nil {
			return fmt.Errorf("release %s: %w", name, err)
		}
		return fmt.Errorf("acquire %s: scope already released", name)
	}
	s.resources = append(s.resources, resource{name: name, r: r})
	s.logger.Debug("acquired %s", name)
	return nil
}

// Names lists held resources in acquisition order.
func (s *Scope) Names() []string {
	names := make([]string, len(s.resources))
	for i, res := range s.resources {
		names[i] = res.name
	}
	return names
}

// Release releases every held resource, last acquired first. All
// resources are attempted; failures are joined. Calling Release again is a
// no-op.
func (s *Scope) Release() error {
	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	for i := len(s.resources) - 1; i >= 0; i-- {
		res := s.resources[i]
		if err := res.r.Release(); err != nil {
			s.logger.Error("release %s: %v", res.name, err)
			errs = append(errs, fmt.Errorf("release %s: %w", res.name, err))
			continue
		}
		s.logger.Debug("released %s", res.name)
	}
	s.resources = nil
	return errors.Join(errs...)
}
