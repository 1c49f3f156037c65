package store

import (
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-memory Store used by tests and bench runs. FailWrites
// makes every Write return an I/O error; FailAfter crashes the store (all
// later writes are dropped without error) once the given number of writes
// has gone through, which is how tests cut power mid-protocol.
type Memory struct {
	mu sync.Mutex

	values map[string][]byte
	writes int

	FailWrites bool
	FailAfter  int // 0 means never
}

func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}, FailAfter: 0}
}

func (s *Memory) Read(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := s.values[key]
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *Memory) Write(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errors.Errorf("store: write %s: injected i/o error", key)
	}
	if s.FailAfter > 0 && s.writes >= s.FailAfter {
		// Simulated power loss: the write never hits flash.
		s.writes++
		return nil
	}
	s.writes++

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Writes returns how many writes were attempted.
func (s *Memory) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
