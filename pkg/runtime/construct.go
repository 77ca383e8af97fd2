package runtime

import (
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

// Construct builds a fresh, uniquely-owned anonymous value from the given
// payload and returns the handle owning its initial reference. Two values
// constructed from equal contents never share an id.
func (h *Heap) Construct(p value.Payload) Handle {
	return NewHandle(h.Alloc(p), p.Type())
}

// ConstructFrom builds an anonymous value from the current contents of an
// existing named value. Contents are flattened with a per-element copy:
// immediate elements are duplicated, reference elements keep aliasing
// their own targets. The new value therefore never aliases the container
// it was built from and does not observe its later mutation, unlike a
// handle produced by TakeReference.
func (h *Heap) ConstructFrom(hd Handle) (Handle, error) {
	src, err := h.resolve(hd, hd.kind)
	if err != nil {
		return Handle{}, err
	}
	p := src.Dup()
	return NewHandle(h.Alloc(p), p.Type()), nil
}
