// Package weakref tracks objects whose lifetime the cache must not extend.
//
// Associations are backed by the runtime's weak pointers: holding one does
// not keep the target alive, and dereferencing a collected target reads as
// an ordinary "not found", never an error. A cleanup registered on each
// target prunes the manager's bookkeeping once the object is reclaimed, so
// metadata cannot leak for objects that are long gone.
package weakref

import (
	"runtime"
	"sync"
	"time"
	"weak"
)

// sweepFloor is the ref count above which Create proactively sweeps dead
// references before inserting.
const sweepFloor = 100

// reference erases the target type so the manager can track heterogeneous
// objects behind one table.
type reference interface {
	value() (any, bool)
}

type typedRef[T any] struct {
	ptr weak.Pointer[T]
}

func (r typedRef[T]) value() (any, bool) {
	p := r.ptr.Value()
	if p == nil {
		return nil, false
	}
	return p, true
}

type entry struct {
	ref     reference
	size    int64
	gen     uint64
	created time.Time
}

// Manager tracks weak key→target associations.
type Manager struct {
	mu      sync.Mutex
	refs    map[string]*entry
	gen     uint64
	maxRefs int
}

// NewManager creates a manager holding at most maxRefs associations; zero
// or negative means unbounded.
func NewManager(maxRefs int) *Manager {
	return &Manager{
		refs:    make(map[string]*entry),
		maxRefs: maxRefs,
	}
}

// Create stores a weak association from key to target, replacing any
// existing ref under the same key. Once target becomes unreachable the
// runtime invokes a cleanup that drops the entry automatically. When the
// table is already large, dead refs are swept first; when it is full, the
// oldest entry makes room.
func Create[T any](m *Manager, key string, target *T, size int64) {
	if target == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.refs) > sweepFloor {
		m.sweepLocked()
	}
	if m.maxRefs > 0 && len(m.refs) >= m.maxRefs {
		if _, exists := m.refs[key]; !exists {
			m.dropOldestLocked()
		}
	}

	m.gen++
	gen := m.gen
	m.refs[key] = &entry{
		ref:     typedRef[T]{weak.Make(target)},
		size:    size,
		gen:     gen,
		created: time.Now(),
	}

	runtime.AddCleanup(target, func(k cleanupKey) {
		m.collected(k)
	}, cleanupKey{key: key, gen: gen})
}

type cleanupKey struct {
	key string
	gen uint64
}

// collected runs when a target has been reclaimed. The generation check
// keeps a stale cleanup from removing a ref that replaced the dead one.
func (m *Manager) collected(k cleanupKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.refs[k.key]; ok && e.gen == k.gen {
		delete(m.refs, k.key)
	}
}

// Get dereferences the association. A collected target transparently
// removes the stale entry and reads as not found.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.refs[key]
	if !ok {
		return nil, false
	}
	v, alive := e.ref.value()
	if !alive {
		delete(m.refs, key)
		return nil, false
	}
	return v, true
}

// Remove drops the association and reports whether one existed.
func (m *Manager) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.refs[key]
	delete(m.refs, key)
	return ok
}

// Sweep prunes references whose targets are gone and returns how many were
// dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

// Stats returns the live ref count and the sum of the recorded sizes.
func (m *Manager) Stats() (count int, totalSize int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.refs {
		count++
		totalSize += e.size
	}
	return count, totalSize
}

// Clear drops every association.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs = make(map[string]*entry)
}

func (m *Manager) sweepLocked() int {
	swept := 0
	for key, e := range m.refs {
		if _, alive := e.ref.value(); !alive {
			delete(m.refs, key)
			swept++
		}
	}
	return swept
}

func (m *Manager) dropOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.refs {
		if oldestKey == "" || e.created.Before(oldest) {
			oldestKey = key
			oldest = e.created
		}
	}
	if oldestKey != "" {
		delete(m.refs, oldestKey)
	}
}
