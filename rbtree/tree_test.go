package rbtree

import (
	"cmp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooledmap/memory"
	"pooledmap/utils"
)

const testSegCap = 16

// checkInvariants walks the whole tree and fails the test unless every
// red-black property holds: root is BLACK, no RED node has a RED child,
// every path to a nil leaf crosses the same number of BLACK nodes, keys are
// in search order and parent links are consistent.
func checkInvariants[K cmp.Ordered, V any](t *testing.T, tr *Tree[K, V]) {
	t.Helper()
	if tr.root == memory.Nil {
		require.Equal(t, 0, tr.size)
		return
	}
	require.Equal(t, black, tr.n(tr.root).color, "root must be BLACK")
	require.Equal(t, memory.Nil, tr.n(tr.root).parent)

	count := 0
	var walk func(h memory.Handle) int
	walk = func(h memory.Handle) int {
		if h == memory.Nil {
			return 1 // nil leaves are BLACK
		}
		nd := tr.n(h)
		count++
		if nd.color == red {
			require.True(t, tr.isBlack(nd.left), "RED node with RED left child")
			require.True(t, tr.isBlack(nd.right), "RED node with RED right child")
		}
		if nd.left != memory.Nil {
			require.Equal(t, h, tr.n(nd.left).parent)
			require.Less(t, tr.n(nd.left).key, nd.key)
		}
		if nd.right != memory.Nil {
			require.Equal(t, h, tr.n(nd.right).parent)
			require.Less(t, nd.key, tr.n(nd.right).key)
		}
		lh := walk(nd.left)
		rh := walk(nd.right)
		require.Equal(t, lh, rh, "black-height mismatch")
		if nd.color == black {
			lh++
		}
		return lh
	}
	walk(tr.root)
	require.Equal(t, tr.size, count)
}

func keysOf[K cmp.Ordered, V any](tr *Tree[K, V]) []K {
	var keys []K
	tr.Ascend(func(k K, _ *V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func TestFirstUpsertMakesBlackRoot(t *testing.T) {
	tr := New[int, string](testSegCap)
	v := tr.Upsert(7)
	require.NotNil(t, v)
	assert.Equal(t, "", *v)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, black, tr.n(tr.root).color)
	assert.Equal(t, 7, tr.n(tr.root).key)
}

func TestUpsertOrderAndErase(t *testing.T) {
	tr := New[int, int](testSegCap)
	for _, k := range []int{10, 20, 5, 15, 25} {
		*tr.Upsert(k) = k * 100
	}
	checkInvariants(t, tr)
	assert.Equal(t, []int{5, 10, 15, 20, 25}, keysOf(tr))
	assert.Equal(t, 5, tr.Len())
	assert.True(t, tr.Contains(15))

	assert.True(t, tr.Erase(10))
	checkInvariants(t, tr)
	assert.Equal(t, 4, tr.Len())
	assert.False(t, tr.Contains(10))
	assert.Equal(t, []int{5, 15, 20, 25}, keysOf(tr))

	assert.False(t, tr.Erase(10))
	assert.Equal(t, 4, tr.Len())
}

func TestUpsertExistingKeyAllocatesNothing(t *testing.T) {
	tr := New[string, int](testSegCap)
	*tr.Upsert("a") = 1
	live := tr.PoolStats().Live
	v := tr.Upsert("a")
	assert.Equal(t, 1, *v)
	assert.Equal(t, live, tr.PoolStats().Live)
	assert.Equal(t, 1, tr.Len())

	*v = 2
	got, ok := tr.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestGetAbsent(t *testing.T) {
	tr := New[int, string](testSegCap)
	v, ok := tr.Get(42)
	assert.False(t, ok)
	assert.Equal(t, "", v)
	assert.False(t, tr.Contains(42))
	assert.False(t, tr.Erase(42))
}

// exercise all structural erase cases: leaf, single child on either side,
// two children with the successor both adjacent and deeper in the subtree
func TestEraseStructuralCases(t *testing.T) {
	keys := []int{50, 25, 75, 10, 30, 60, 90, 5, 15, 28, 35, 55, 65, 85, 95}
	for _, victim := range keys {
		tr := New[int, int](testSegCap)
		for _, k := range keys {
			*tr.Upsert(k) = k
		}
		checkInvariants(t, tr)
		require.True(t, tr.Erase(victim))
		checkInvariants(t, tr)
		assert.False(t, tr.Contains(victim))
		assert.Equal(t, len(keys)-1, tr.Len())
	}
}

func TestRandomChurn(t *testing.T) {
	const n = 2000
	tr := New[int, int](testSegCap)
	mirror := make(map[int]int)

	for _, k := range utils.RandPerm(n) {
		*tr.Upsert(k) = k * 3
		mirror[k] = k * 3
	}
	checkInvariants(t, tr)
	require.Equal(t, len(mirror), tr.Len())

	// erase a random half, then verify against the mirror
	for i, k := range utils.RandPerm(n) {
		if i%2 == 0 {
			assert.True(t, tr.Erase(k))
			delete(mirror, k)
		}
	}
	checkInvariants(t, tr)
	require.Equal(t, len(mirror), tr.Len())

	for k, want := range mirror {
		got, ok := tr.Get(k)
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	keys := keysOf(tr)
	require.True(t, sort.IntsAreSorted(keys))
	require.Equal(t, len(mirror), len(keys))
}

func TestAscendDescend(t *testing.T) {
	tr := New[int, int](testSegCap)
	for _, k := range utils.RandPerm(100) {
		*tr.Upsert(k) = k
	}

	asc := keysOf(tr)
	require.True(t, sort.IntsAreSorted(asc))

	var desc []int
	tr.Descend(func(k int, _ *int) bool {
		desc = append(desc, k)
		return true
	})
	require.Equal(t, len(asc), len(desc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}

	// early stop
	visited := 0
	tr.Ascend(func(k int, _ *int) bool {
		visited++
		return visited < 10
	})
	assert.Equal(t, 10, visited)
}

func TestMinMax(t *testing.T) {
	tr := New[int, string](testSegCap)
	_, _, ok := tr.Min()
	assert.False(t, ok)
	_, _, ok = tr.Max()
	assert.False(t, ok)

	for _, k := range []int{10, 20, 5, 15, 25} {
		*tr.Upsert(k) = "v"
	}
	k, _, ok := tr.Min()
	require.True(t, ok)
	assert.Equal(t, 5, k)
	k, _, ok = tr.Max()
	require.True(t, ok)
	assert.Equal(t, 25, k)
}

func TestValueMutationThroughAscend(t *testing.T) {
	tr := New[int, int](testSegCap)
	for i := 0; i < 10; i++ {
		*tr.Upsert(i) = i
	}
	tr.Ascend(func(_ int, v *int) bool {
		*v *= 2
		return true
	})
	for i := 0; i < 10; i++ {
		got, ok := tr.Get(i)
		require.True(t, ok)
		assert.Equal(t, i*2, got)
	}
}

func TestClearRecyclesEveryNode(t *testing.T) {
	tr := New[int, int](testSegCap)
	for i := 0; i < 100; i++ {
		*tr.Upsert(i) = i
	}
	segments := tr.PoolStats().Segments

	tr.Clear()
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, memory.Nil, tr.root)
	st := tr.PoolStats()
	assert.Equal(t, 0, st.Live)
	assert.Equal(t, 100, st.Free)
	assert.Equal(t, segments, st.Segments)

	// the pool is warm, reinsertion must not grow it
	for i := 0; i < 100; i++ {
		*tr.Upsert(i) = i
	}
	checkInvariants(t, tr)
	assert.Equal(t, segments, tr.PoolStats().Segments)
}

func TestResetReleasesSegments(t *testing.T) {
	tr := New[int, int](testSegCap)
	for i := 0; i < 100; i++ {
		*tr.Upsert(i) = i
	}
	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, tr.PoolStats().Segments)

	*tr.Upsert(1) = 1
	checkInvariants(t, tr)
	assert.Equal(t, 1, tr.Len())
}

func TestStringKeys(t *testing.T) {
	tr := New[string, int](testSegCap)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		k := utils.RandStringKey(8)
		seen[k] = true
		*tr.Upsert(k) = i
	}
	checkInvariants(t, tr)
	require.Equal(t, len(seen), tr.Len())
	keys := keysOf(tr)
	require.True(t, sort.StringsAreSorted(keys))
}
