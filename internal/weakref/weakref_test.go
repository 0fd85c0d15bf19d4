package weakref

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	id int
	// Padding keeps the struct above the runtime's 16-byte tiny-allocation
	// threshold: tiny-allocated objects share a block with neighboring
	// allocations and are never individually reclaimed, so weak refs to
	// them would never read as dead.
	_ [16]byte
}

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(10)
	target := &payload{id: 7}

	Create(m, "k", target, 64)

	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Same(t, target, v)

	count, size := m.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(64), size)

	runtime.KeepAlive(target)
}

func TestManager_GetUnknownKey(t *testing.T) {
	m := NewManager(10)

	_, ok := m.Get("missing")
	assert.False(t, ok)
}

func TestManager_NilTargetIgnored(t *testing.T) {
	m := NewManager(10)

	Create[payload](m, "k", nil, 64)

	count, _ := m.Stats()
	assert.Equal(t, 0, count)
}

func TestManager_Replace(t *testing.T) {
	m := NewManager(10)
	first := &payload{id: 1}
	second := &payload{id: 2}

	Create(m, "k", first, 10)
	Create(m, "k", second, 20)

	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Same(t, second, v)

	count, size := m.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(20), size)

	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(10)
	target := &payload{id: 1}

	Create(m, "k", target, 10)

	assert.True(t, m.Remove("k"))
	assert.False(t, m.Remove("k"))

	_, ok := m.Get("k")
	assert.False(t, ok)

	runtime.KeepAlive(target)
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(10)
	a := &payload{id: 1}
	b := &payload{id: 2}

	Create(m, "a", a, 10)
	Create(m, "b", b, 10)
	m.Clear()

	count, size := m.Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

// createUnreachable registers a ref whose target never escapes this frame,
// so a later GC cycle is free to reclaim it.
func createUnreachable(m *Manager, key string) {
	Create(m, key, &payload{id: 99}, 32)
}

// Targets carrying a registered cleanup are reclaimed at the runtime's
// leisure, not on any fixed number of GC cycles, so these tests force a
// collection per attempt and poll for the outcome.
func TestManager_DeadTargetReadsAsNotFound(t *testing.T) {
	m := NewManager(10)

	createUnreachable(m, "dead")

	require.Eventually(t, func() bool {
		runtime.GC()
		_, ok := m.Get("dead")
		return !ok
	}, 10*time.Second, 10*time.Millisecond, "collected target should read as not found")
}

func TestManager_SweepDropsDeadRefs(t *testing.T) {
	m := NewManager(0)
	live := &payload{id: 1}

	Create(m, "live", live, 16)
	for i := 0; i < 5; i++ {
		createUnreachable(m, fmt.Sprintf("dead-%d", i))
	}

	require.Eventually(t, func() bool {
		runtime.GC()
		m.Sweep()
		count, _ := m.Stats()
		return count == 1
	}, 10*time.Second, 10*time.Millisecond, "sweep should drop refs whose targets are gone")

	_, ok := m.Get("live")
	assert.True(t, ok)

	runtime.KeepAlive(live)
}

func TestManager_CapacityDropsOldest(t *testing.T) {
	m := NewManager(2)
	a := &payload{id: 1}
	b := &payload{id: 2}
	c := &payload{id: 3}

	Create(m, "a", a, 10)
	Create(m, "b", b, 10)
	Create(m, "c", c, 10)

	count, _ := m.Stats()
	assert.Equal(t, 2, count)

	_, ok := m.Get("a")
	assert.False(t, ok, "oldest ref should have been dropped")
	_, ok = m.Get("c")
	assert.True(t, ok)

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	runtime.KeepAlive(c)
}
