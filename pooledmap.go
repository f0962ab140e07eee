package pooledmap

import (
	"cmp"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"pooledmap/memory"
	"pooledmap/rbtree"
	"pooledmap/utils"
)

type (
	// MapAPI is the external operation set; Map is the only implementation.
	MapAPI[K cmp.Ordered, V any] interface {
		Upsert(key K) *V
		Get(key K) (V, bool)
		Lookup(key K) V
		Contains(key K) bool
		Erase(key K) int
		Size() int
		Empty() bool
		ForEach(fn func(key K, value *V))
		Clear()
		Stats() Stats
		Close() error
	}

	// Map is an ordered key-value container whose nodes come from a
	// per-instance segmented object pool. All operations are logarithmic.
	// Not safe for concurrent use; callers serialize access themselves.
	Map[K cmp.Ordered, V any] struct {
		opt  *utils.Options
		tree *rbtree.Tree[K, V]
	}

	Stats struct {
		Entries int
		Pool    memory.PoolStats
	}
)

func New[K cmp.Ordered, V any](opt *utils.Options) *Map[K, V] {
	if opt == nil {
		opt = utils.NewDefaultOptions()
	}
	segCap := opt.SegmentCapacity
	if segCap == 0 {
		segCap = utils.DefaultSegmentCapacity
	}
	return &Map[K, V]{
		opt:  opt,
		tree: rbtree.New[K, V](segCap),
	}
}

// Upsert returns the value slot for key, inserting a zero value first when
// key is absent. The pointer stays valid until the key is erased.
func (m *Map[K, V]) Upsert(key K) *V {
	return m.tree.Upsert(key)
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.tree.Get(key)
}

// Lookup returns the stored value, or the zero value when key is absent.
// The two outcomes are indistinguishable here; prefer Get when it matters.
func (m *Map[K, V]) Lookup(key K) V {
	v, _ := m.tree.Get(key)
	return v
}

func (m *Map[K, V]) Contains(key K) bool {
	return m.tree.Contains(key)
}

// Erase removes key and reports the number of entries removed, 0 or 1.
func (m *Map[K, V]) Erase(key K) int {
	if m.tree.Erase(key) {
		return 1
	}
	return 0
}

func (m *Map[K, V]) Size() int {
	return m.tree.Len()
}

func (m *Map[K, V]) Empty() bool {
	return m.tree.Len() == 0
}

// ForEach visits every entry in ascending key order. fn may rewrite the
// value through the pointer but must not mutate the key.
func (m *Map[K, V]) ForEach(fn func(key K, value *V)) {
	m.tree.Ascend(func(k K, v *V) bool {
		fn(k, v)
		return true
	})
}

// Ascend and Descend are early-stop walks: returning false ends the visit.
func (m *Map[K, V]) Ascend(fn func(key K, value *V) bool)  { m.tree.Ascend(fn) }
func (m *Map[K, V]) Descend(fn func(key K, value *V) bool) { m.tree.Descend(fn) }

func (m *Map[K, V]) Min() (K, V, bool) { return m.tree.Min() }
func (m *Map[K, V]) Max() (K, V, bool) { return m.tree.Max() }

// Clear recycles every node to the pool; segments stay warm for reuse.
func (m *Map[K, V]) Clear() {
	m.tree.Clear()
}

func (m *Map[K, V]) Stats() Stats {
	return Stats{
		Entries: m.tree.Len(),
		Pool:    m.tree.PoolStats(),
	}
}

// Fingerprint hashes the in-order key/value stream. Two maps with equal
// contents produce equal fingerprints regardless of insertion history.
// Every field is length-prefixed so entry boundaries survive keys or values
// that render with the same bytes in different splits.
func (m *Map[K, V]) Fingerprint() uint64 {
	h := xxhash.New()
	var prefix [4]byte
	writeField := func(s string) {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(s)))
		h.Write(prefix[:])
		h.WriteString(s)
	}
	m.tree.Ascend(func(k K, v *V) bool {
		writeField(fmt.Sprintf("%v", k))
		writeField(fmt.Sprintf("%v", *v))
		return true
	})
	return h.Sum64()
}

// Close releases the pool's segments in bulk. The map stays usable; the
// next Upsert starts from an empty pool.
func (m *Map[K, V]) Close() error {
	m.tree.Reset()
	return nil
}
