package registry

import (
	"errors"
	"io"
	"sync"
)

// Scope owns the transient instances resolved for one dispatch or one event.
// Instances implementing io.Closer are closed, newest first, when the scope closes.
type Scope struct {
	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// NewScope opens an empty resolution scope.
func NewScope() *Scope { return &Scope{} }

// Track registers v for release if it implements io.Closer.
// Instances tracked after Close are closed immediately.
func (s *Scope) Track(v any) error {
	c, ok := v.(io.Closer)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return c.Close()
	}

	s.closers = append(s.closers, c)
	s.mu.Unlock()

	return nil
}

// Close releases every tracked instance. Subsequent calls are no-ops.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
