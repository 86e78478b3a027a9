package resource

import (
	"sync"

	"github.com/wippyai/ar-placement/xr"
)

// Table tracks owned platform handles and notifies observers on changes.
type Table struct {
	store     *store
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		store: newStore(),
	}
}

// Insert takes ownership of value on behalf of owner. It returns 0 when the
// table is closed, in which case value is released immediately.
func (t *Table) Insert(kind Kind, owner string, value xr.Releaser) Handle {
	handle, err := t.store.create(kind, owner, value)
	if err != nil {
		value.Release()
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Kind:   kind,
		Owner:  owner,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (xr.Releaser, bool) {
	e, ok := t.store.get(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Owner returns the owner recorded for handle.
func (t *Table) Owner(handle Handle) (string, bool) {
	e, ok := t.store.get(handle)
	if !ok {
		return "", false
	}
	return e.owner, true
}

// Remove releases the value behind handle and drops it.
func (t *Table) Remove(handle Handle) bool {
	e, ok := t.store.drop(handle)
	if !ok {
		return false
	}
	t.release(handle, e)
	return true
}

// RemoveOwner releases every handle recorded for owner and returns how many
// were released.
func (t *Table) RemoveOwner(owner string) int {
	var handles []Handle
	t.store.each(func(h Handle, e entry) bool {
		if e.owner == owner {
			handles = append(handles, h)
		}
		return true
	})
	n := 0
	for _, h := range handles {
		if t.Remove(h) {
			n++
		}
	}
	return n
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	n := 0
	t.store.each(func(Handle, entry) bool {
		n++
		return true
	})
	return n
}

// Count returns the number of live handles of kind.
func (t *Table) Count(kind Kind) int {
	n := 0
	t.store.each(func(_ Handle, e entry) bool {
		if e.kind == kind {
			n++
		}
		return true
	})
	return n
}

// Clear releases every live handle.
func (t *Table) Clear() {
	// Collect handles first to avoid holding the lock during Release
	var handles []Handle
	t.store.each(func(h Handle, _ entry) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases every live handle and rejects further inserts.
func (t *Table) Close() error {
	for _, e := range t.store.close() {
		t.release(0, e)
	}
	return nil
}

func (t *Table) release(handle Handle, e entry) {
	e.value.Release()
	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Kind:   e.kind,
		Owner:  e.owner,
		Value:  e.value,
	})
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
