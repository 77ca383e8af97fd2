package runtime

import (
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
	"go.uber.org/zap"
)

// IncRef registers one more interest in the value. It is invoked on handle
// duplication and whenever a reference element is stored into an aggregate.
func (h *Heap) IncRef(r value.Ref) error {
	s, err := h.lookup(r)
	if err != nil {
		return err
	}
	s.refs++
	return nil
}

// DecRef drops one interest in the value. It is the only path to
// finalization: when the post-decrement count is zero the value is
// finalized and its slot reclaimed. Finalizing an aggregate or a callable
// recursively releases the references it held, which may cascade further
// reclamation.
func (h *Heap) DecRef(r value.Ref) error {
	s, err := h.lookup(r)
	if err != nil {
		return err
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	h.finalizeAndFree(r, s)
	return nil
}

// finalizeAndFree runs the variant finalizer and returns the slot to the
// free list. The slot is marked dead and detached before any nested DecRef
// runs, so a cascade (or a cycle reaching back into this id) can never
// re-finalize it.
func (h *Heap) finalizeAndFree(r value.Ref, s *slot) {
	p := s.payload
	s.live = false
	s.payload = nil
	idx, _ := splitRef(r)
	h.free = append(h.free, idx)

	if st, ok := p.(*value.Stream); ok {
		if err := st.Resource().Finalize(); err != nil {
			// Best-effort cleanup: report and reclaim anyway,
			// leaking the slot would be strictly worse.
			h.log.Warn("stream finalization failed",
				zap.Uint64("ref", uint64(r)),
				zap.Error(err))
			updateFinalizationFailures()
		}
	}
	for _, cr := range p.Refs(nil) {
		if err := h.DecRef(cr); err != nil {
			h.log.Warn("finalized value contained dangling reference",
				zap.Uint64("ref", uint64(r)),
				zap.Error(err))
		}
	}
	updateFinalizations(p.Type())
	updateLiveValues(h.Live())
}
