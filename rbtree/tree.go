package rbtree

import (
	"cmp"

	"pooledmap/memory"
)

type color uint8

const (
	red color = iota
	black
)

// node layout is fixed so every slot in a pool segment has the same size.
// Links are pool handles, not pointers: a recycled slot can never be reached
// through a stale address.
type node[K cmp.Ordered, V any] struct {
	key    K
	value  V
	left   memory.Handle
	right  memory.Handle
	parent memory.Handle
	color  color
}

// Tree is an ordered map backed by a red-black tree whose nodes live in a
// segmented object pool. memory.Nil stands for the nil leaf, which is BLACK
// by convention. Single writer, no internal locking.
type Tree[K cmp.Ordered, V any] struct {
	pool *memory.Pool[node[K, V]]
	root memory.Handle
	size int
}

func New[K cmp.Ordered, V any](segCap uint32) *Tree[K, V] {
	return &Tree[K, V]{pool: memory.NewPool[node[K, V]](segCap)}
}

func (t *Tree[K, V]) Len() int {
	return t.size
}

// Upsert returns the value slot for key, inserting a zero-valued RED node at
// the leaf position when key is absent. The pointer stays valid until the
// key is erased or the tree is cleared.
func (t *Tree[K, V]) Upsert(key K) *V {
	cur, parent := t.root, memory.Nil
	for cur != memory.Nil {
		nd := t.n(cur)
		if key == nd.key {
			return &nd.value
		}
		parent = cur
		if key < nd.key {
			cur = nd.left
		} else {
			cur = nd.right
		}
	}

	// fresh slot arrives zeroed: links Nil, value zero
	h, nd := t.pool.Alloc()
	nd.key = key
	nd.color = red
	nd.parent = parent

	if t.root == memory.Nil {
		t.root = h
	} else if key < t.n(parent).key {
		t.n(parent).left = h
	} else {
		t.n(parent).right = h
	}

	t.insertFixup(h)
	t.size++
	return &nd.value
}

// Get looks key up with an explicit found flag.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	if h := t.search(key); h != memory.Nil {
		return t.n(h).value, true
	}
	var zero V
	return zero, false
}

func (t *Tree[K, V]) Contains(key K) bool {
	return t.search(key) != memory.Nil
}

// Erase unlinks the node for key, recycles its slot back to the pool and
// repairs the red-black properties when a BLACK node was removed. Returns
// false when key is absent.
func (t *Tree[K, V]) Erase(key K) bool {
	z := t.search(key)
	if z == memory.Nil {
		return false
	}

	nz := t.n(z)
	y := z
	removed := nz.color
	var x, xParent memory.Handle

	switch {
	case nz.left == memory.Nil:
		x = nz.right
		xParent = nz.parent
		t.transplant(z, nz.right)
	case nz.right == memory.Nil:
		x = nz.left
		xParent = nz.parent
		t.transplant(z, nz.left)
	default:
		y = t.minimum(nz.right)
		ny := t.n(y)
		removed = ny.color
		x = ny.right
		if ny.parent == z {
			if x != memory.Nil {
				t.n(x).parent = y
			}
			xParent = y
		} else {
			t.transplant(y, ny.right)
			ny.right = nz.right
			t.n(ny.right).parent = y
			xParent = ny.parent
		}
		t.transplant(z, y)
		ny.left = nz.left
		t.n(ny.left).parent = y
		ny.color = nz.color
	}

	t.pool.Free(z)
	t.size--

	if removed == black {
		t.eraseFixup(x, xParent)
	}
	return true
}

// Ascend walks the tree in-order with an explicit stack, calling fn with the
// key and a mutable value slot for every node in ascending key order. fn may
// rewrite values but must not touch keys or tree structure; returning false
// stops the walk.
func (t *Tree[K, V]) Ascend(fn func(key K, value *V) bool) {
	stack := make([]memory.Handle, 0, 32)
	cur := t.root
	for cur != memory.Nil || len(stack) > 0 {
		for cur != memory.Nil {
			stack = append(stack, cur)
			cur = t.n(cur).left
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.n(cur)
		if !fn(nd.key, &nd.value) {
			return
		}
		cur = nd.right
	}
}

// Descend is the mirror of Ascend: descending key order.
func (t *Tree[K, V]) Descend(fn func(key K, value *V) bool) {
	stack := make([]memory.Handle, 0, 32)
	cur := t.root
	for cur != memory.Nil || len(stack) > 0 {
		for cur != memory.Nil {
			stack = append(stack, cur)
			cur = t.n(cur).right
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.n(cur)
		if !fn(nd.key, &nd.value) {
			return
		}
		cur = nd.left
	}
}

func (t *Tree[K, V]) Min() (K, V, bool) {
	if t.root == memory.Nil {
		var k K
		var v V
		return k, v, false
	}
	nd := t.n(t.minimum(t.root))
	return nd.key, nd.value, true
}

func (t *Tree[K, V]) Max() (K, V, bool) {
	if t.root == memory.Nil {
		var k K
		var v V
		return k, v, false
	}
	h := t.root
	for t.n(h).right != memory.Nil {
		h = t.n(h).right
	}
	nd := t.n(h)
	return nd.key, nd.value, true
}

// Clear recycles every node back to the pool. Segments stay allocated for
// reuse; Reset releases them as well.
func (t *Tree[K, V]) Clear() {
	stack := make([]memory.Handle, 0, 32)
	if t.root != memory.Nil {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.n(h)
		if nd.left != memory.Nil {
			stack = append(stack, nd.left)
		}
		if nd.right != memory.Nil {
			stack = append(stack, nd.right)
		}
		t.pool.Free(h)
	}
	t.root = memory.Nil
	t.size = 0
}

// Reset drops every node and releases the pool's segments in one step.
func (t *Tree[K, V]) Reset() {
	t.pool.Reset()
	t.root = memory.Nil
	t.size = 0
}

func (t *Tree[K, V]) PoolStats() memory.PoolStats {
	return t.pool.Stats()
}

func (t *Tree[K, V]) n(h memory.Handle) *node[K, V] {
	return t.pool.Get(h)
}

func (t *Tree[K, V]) search(key K) memory.Handle {
	cur := t.root
	for cur != memory.Nil {
		nd := t.n(cur)
		if key == nd.key {
			return cur
		}
		if key < nd.key {
			cur = nd.left
		} else {
			cur = nd.right
		}
	}
	return memory.Nil
}

func (t *Tree[K, V]) isBlack(h memory.Handle) bool {
	return h == memory.Nil || t.n(h).color == black
}

func (t *Tree[K, V]) minimum(h memory.Handle) memory.Handle {
	for t.n(h).left != memory.Nil {
		h = t.n(h).left
	}
	return h
}

// transplant replaces the subtree rooted at u with the one rooted at v on
// u's parent side, leaving v's internal structure untouched.
func (t *Tree[K, V]) transplant(u, v memory.Handle) {
	up := t.n(u).parent
	if up == memory.Nil {
		t.root = v
	} else if u == t.n(up).left {
		t.n(up).left = v
	} else {
		t.n(up).right = v
	}
	if v != memory.Nil {
		t.n(v).parent = up
	}
}

func (t *Tree[K, V]) rotateLeft(x memory.Handle) {
	nx := t.n(x)
	y := nx.right
	ny := t.n(y)
	nx.right = ny.left
	if ny.left != memory.Nil {
		t.n(ny.left).parent = x
	}
	ny.parent = nx.parent
	if nx.parent == memory.Nil {
		t.root = y
	} else if x == t.n(nx.parent).left {
		t.n(nx.parent).left = y
	} else {
		t.n(nx.parent).right = y
	}
	ny.left = x
	nx.parent = y
}

func (t *Tree[K, V]) rotateRight(x memory.Handle) {
	nx := t.n(x)
	y := nx.left
	ny := t.n(y)
	nx.left = ny.right
	if ny.right != memory.Nil {
		t.n(ny.right).parent = x
	}
	ny.parent = nx.parent
	if nx.parent == memory.Nil {
		t.root = y
	} else if x == t.n(nx.parent).right {
		t.n(nx.parent).right = y
	} else {
		t.n(nx.parent).left = y
	}
	ny.right = x
	nx.parent = y
}

func (t *Tree[K, V]) insertFixup(z memory.Handle) {
	for {
		parent := t.n(z).parent
		if parent == memory.Nil || t.n(parent).color != red {
			break
		}
		// parent is RED, so the grandparent exists (the root is BLACK)
		grand := t.n(parent).parent
		if parent == t.n(grand).left {
			uncle := t.n(grand).right
			if uncle != memory.Nil && t.n(uncle).color == red {
				// case 1: recolor and continue from the grandparent
				t.n(parent).color = black
				t.n(uncle).color = black
				t.n(grand).color = red
				z = grand
			} else {
				if z == t.n(parent).right {
					// case 2: inner grandchild, rotate onto the outside
					z = parent
					t.rotateLeft(z)
					parent = t.n(z).parent
					grand = t.n(parent).parent
				}
				// case 3: outer grandchild
				t.n(parent).color = black
				t.n(grand).color = red
				t.rotateRight(grand)
			}
		} else {
			uncle := t.n(grand).left
			if uncle != memory.Nil && t.n(uncle).color == red {
				t.n(parent).color = black
				t.n(uncle).color = black
				t.n(grand).color = red
				z = grand
			} else {
				if z == t.n(parent).left {
					z = parent
					t.rotateRight(z)
					parent = t.n(z).parent
					grand = t.n(parent).parent
				}
				t.n(parent).color = black
				t.n(grand).color = red
				t.rotateLeft(grand)
			}
		}
	}
	t.n(t.root).color = black
}

// eraseFixup repairs the black-height deficit left at x after removing a
// BLACK node. x may be Nil, so its parent is carried alongside it.
func (t *Tree[K, V]) eraseFixup(x, xParent memory.Handle) {
	for x != t.root && t.isBlack(x) {
		if x == t.n(xParent).left {
			w := t.n(xParent).right
			if w != memory.Nil && t.n(w).color == red {
				// case 1: red sibling, rotate to expose black one
				t.n(w).color = black
				t.n(xParent).color = red
				t.rotateLeft(xParent)
				w = t.n(xParent).right
			}
			nw := t.n(w)
			if t.isBlack(nw.left) && t.isBlack(nw.right) {
				// case 2: push the deficit up
				nw.color = red
				x = xParent
				xParent = t.n(x).parent
			} else {
				if t.isBlack(nw.right) {
					// case 3: move the red near child to the far side
					if nw.left != memory.Nil {
						t.n(nw.left).color = black
					}
					nw.color = red
					t.rotateRight(w)
					w = t.n(xParent).right
					nw = t.n(w)
				}
				// case 4: far child red, one rotation ends the walk
				nw.color = t.n(xParent).color
				t.n(xParent).color = black
				if nw.right != memory.Nil {
					t.n(nw.right).color = black
				}
				t.rotateLeft(xParent)
				x = t.root
			}
		} else {
			w := t.n(xParent).left
			if w != memory.Nil && t.n(w).color == red {
				t.n(w).color = black
				t.n(xParent).color = red
				t.rotateRight(xParent)
				w = t.n(xParent).left
			}
			nw := t.n(w)
			if t.isBlack(nw.right) && t.isBlack(nw.left) {
				nw.color = red
				x = xParent
				xParent = t.n(x).parent
			} else {
				if t.isBlack(nw.left) {
					if nw.right != memory.Nil {
						t.n(nw.right).color = black
					}
					nw.color = red
					t.rotateLeft(w)
					w = t.n(xParent).left
					nw = t.n(w)
				}
				nw.color = t.n(xParent).color
				t.n(xParent).color = black
				if nw.left != memory.Nil {
					t.n(nw.left).color = black
				}
				t.rotateRight(xParent)
				x = t.root
			}
		}
	}
	if x != memory.Nil {
		t.n(x).color = black
	}
}
