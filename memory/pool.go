package memory

/*
 * 分段式对象池: slots are bump-allocated from fixed-capacity segments and
 * recycled through a LIFO free list. Segments are never moved, compacted or
 * released individually, so a slot pointer stays valid for the slot's whole
 * lifetime. Growth is constant: one segment of segCap slots per exhaustion.
 */

import (
	"math"

	"github.com/pkg/errors"

	"pooledmap/utils"
)

// Handle identifies one slot in a Pool. Handle 0 is the reserved nil
// sentinel and is never returned by Alloc.
type Handle uint32

const Nil Handle = 0

type Pool[T any] struct {
	segCap   uint32
	segments [][]T
	free     []Handle            // recycled slots, most recently freed on top
	onFree   map[Handle]struct{} // membership mirror of free, guards double frees
	next     uint32              // next bump index, 0 reserved for Nil
	live     int
}

type PoolStats struct {
	Live            int
	Free            int
	Segments        int
	SegmentCapacity uint32
}

func NewPool[T any](segCap uint32) *Pool[T] {
	utils.CondPanic(segCap == 0, utils.ErrSegmentCapacity)
	return &Pool[T]{
		segCap: segCap,
		onFree: map[Handle]struct{}{},
		next:   1,
	}
}

// Alloc hands out a zeroed slot: the free list first, then the newest
// segment's bump pointer, then a fresh segment. Failure to grow is fatal.
func (p *Pool[T]) Alloc() (Handle, *T) {
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		p.free = p.free[:n-1]
		delete(p.onFree, h)
		p.live++
		return h, p.slot(h)
	}
	if p.next >= uint32(len(p.segments))*p.segCap {
		p.grow()
	}
	h := Handle(p.next)
	p.next++
	p.live++
	return h, p.slot(h)
}

// Get returns the slot for h. The pointer is stable until the slot is
// recycled; it must not be used after Free(h).
func (p *Pool[T]) Get(h Handle) *T {
	utils.CondPanic(h == Nil, utils.ErrNilHandle)
	return p.slot(h)
}

// Free zeroes the slot and pushes it on the free list. Stale contents never
// survive recycling, so the next Alloc always sees a fully reset slot.
// Freeing a slot that is already free is a programming defect and fatal:
// handing the same handle to two later Alloc calls would alias live slots.
func (p *Pool[T]) Free(h Handle) {
	utils.CondPanic(h == Nil, utils.ErrNilHandle)
	_, freed := p.onFree[h]
	utils.CondPanic(freed, utils.ErrDoubleFree)
	var zero T
	*p.slot(h) = zero
	p.free = append(p.free, h)
	p.onFree[h] = struct{}{}
	p.live--
	utils.AssertTrue(p.live >= 0)
}

// Reset releases every segment and the free list in bulk. The next Alloc
// behaves as if the pool were freshly constructed.
func (p *Pool[T]) Reset() {
	p.segments = nil
	p.free = nil
	p.onFree = map[Handle]struct{}{}
	p.next = 1
	p.live = 0
}

func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Live:            p.live,
		Free:            len(p.free),
		Segments:        len(p.segments),
		SegmentCapacity: p.segCap,
	}
}

func (p *Pool[T]) grow() {
	total := uint64(len(p.segments)+1) * uint64(p.segCap)
	utils.CondPanic(total > math.MaxUint32, errors.Wrapf(utils.ErrPoolExhausted,
		"segments: %d, segment capacity: %d", len(p.segments), p.segCap))
	p.segments = append(p.segments, make([]T, p.segCap))
}

func (p *Pool[T]) slot(h Handle) *T {
	return &p.segments[uint32(h)/p.segCap][uint32(h)%p.segCap]
}
