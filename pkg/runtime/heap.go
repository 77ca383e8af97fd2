// Package runtime implements the reference-counted value heap of the
// Vesper runtime: an id-indexed arena of variant-tagged values, lightweight
// aliasing handles, a kind-checked dereference layer and a frame stack that
// drives deterministic disposal of bindings in reverse creation order.
//
// Ownership is tracked by count, not by a single exclusive owner: any
// number of handles may alias one value and mutation through any of them is
// visible through all others. A value is finalized and its slot reclaimed
// exactly once, the instant its count reaches zero.
//
// The heap performs no cycle detection: two values holding references to
// each other keep each other alive once all external bindings are gone.
// Breaking such a cycle requires an explicit caller-initiated release
// (DecRef or overwriting one of the mutual reference elements). This is an
// accepted limitation, not a defect.
package runtime

import (
	"fmt"

	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
	"go.uber.org/zap"
)

// slot is a single arena entry: the payload plus its live reference count.
type slot struct {
	payload value.Payload
	refs    int
	gen     uint32
	live    bool
}

// Heap is the arena of live values together with their reference counts.
// It is not safe for concurrent use: the runtime is a single-actor,
// cooperative machine and callers must not overlap operations on it.
type Heap struct {
	slots []slot
	free  []uint32
	log   *zap.Logger
}

// NewHeap returns a new empty heap reporting finalization failures to the
// given logger. A nil logger disables reporting.
func NewHeap(log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Heap{log: log}
}

// mkRef packs a slot index and its generation into an id. Generations
// start at 1, so a valid Ref is never zero.
func mkRef(idx, gen uint32) value.Ref {
	return value.Ref(uint64(gen)<<32 | uint64(idx))
}

func splitRef(r value.Ref) (idx, gen uint32) {
	return uint32(r), uint32(r >> 32)
}

// Alloc places a payload into the heap with a reference count of 1 and
// returns its id. The new value takes its own references to everything
// the payload contains: contents passed in are borrowed from the caller.
func (h *Heap) Alloc(p value.Payload) value.Ref {
	var idx uint32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, slot{})
		idx = uint32(len(h.slots) - 1)
	}
	s := &h.slots[idx]
	s.gen++
	s.payload = p
	s.refs = 1
	s.live = true

	for _, cr := range p.Refs(nil) {
		if err := h.IncRef(cr); err != nil {
			// Contents naming dead values is a caller defect; the
			// allocation itself stays usable.
			h.log.Warn("allocated value contains dangling reference",
				zap.Stringer("type", p.Type()),
				zap.Error(err))
		}
	}
	updateAllocations(p.Type())
	updateLiveValues(h.Live())
	return mkRef(idx, s.gen)
}

// lookup resolves an id to its live slot.
func (h *Heap) lookup(r value.Ref) (*slot, error) {
	idx, gen := splitRef(r)
	if int(idx) >= len(h.slots) {
		return nil, fmt.Errorf("%w: %d", ErrDanglingReference, r)
	}
	s := &h.slots[idx]
	if !s.live || s.gen != gen {
		return nil, fmt.Errorf("%w: %d", ErrDanglingReference, r)
	}
	return s, nil
}

// Alive reports whether the id still names a live value.
func (h *Heap) Alive(r value.Ref) bool {
	_, err := h.lookup(r)
	return err == nil
}

// RefCount returns the current reference count of the value, 0 for
// reclaimed ids.
func (h *Heap) RefCount(r value.Ref) int {
	s, err := h.lookup(r)
	if err != nil {
		return 0
	}
	return s.refs
}

// Live returns the number of live values in the heap.
func (h *Heap) Live() int {
	return len(h.slots) - len(h.free)
}

// Payload returns the variant payload of a live value. Most callers
// should go through the typed dereference accessors instead.
func (h *Heap) Payload(r value.Ref) (value.Payload, error) {
	s, err := h.lookup(r)
	if err != nil {
		return nil, err
	}
	return s.payload, nil
}
