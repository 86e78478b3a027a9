package resource

import (
	"errors"
	"sync"

	"github.com/wippyai/ar-placement/xr"
)

// ErrClosed is returned when inserting into a closed store.
var ErrClosed = errors.New("resource store closed")

// store is the free-list slot storage behind Table.
type store struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value xr.Releaser
	owner string
	kind  Kind
	valid bool
}

func newStore() *store {
	return &store{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

func (s *store) create(kind Kind, owner string, value xr.Releaser) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	e := entry{
		kind:  kind,
		owner: owner,
		value: value,
		valid: true,
	}

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		return handle, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

func (s *store) get(handle Handle) (entry, bool) {
	if handle == 0 {
		return entry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return entry{}, false
	}

	e := s.entries[idx]
	if !e.valid {
		return entry{}, false
	}
	return e, true
}

// drop invalidates handle and returns its entry so the caller can release
// the value outside the lock.
func (s *store) drop(handle Handle) (entry, bool) {
	if handle == 0 {
		return entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return entry{}, false
	}

	e := s.entries[idx]
	if !e.valid {
		return entry{}, false
	}

	s.entries[idx] = entry{}
	s.freeList = append(s.freeList, handle)
	return e, true
}

// close marks the store closed and returns every live entry.
func (s *store) close() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var live []entry
	for _, e := range s.entries {
		if e.valid {
			live = append(live, e)
		}
	}
	s.entries = nil
	s.freeList = nil
	return live
}

func (s *store) each(fn func(Handle, entry) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e) {
				break
			}
		}
	}
}
