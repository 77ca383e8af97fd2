package runtime

import (
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

// Handle is a lightweight, copyable token naming one heap value together
// with the variant kind its holder expects to find there. Handles carry no
// storage of their own; they register and deregister interest through the
// heap's reference counting.
type Handle struct {
	ref  value.Ref
	kind value.Type
}

// NewHandle wraps an id without touching its count. It is used when
// ownership of an existing reference is being handed over, e.g. right
// after Alloc.
func NewHandle(r value.Ref, kind value.Type) Handle {
	return Handle{ref: r, kind: kind}
}

// Ref returns the id the handle names.
func (hd Handle) Ref() value.Ref {
	return hd.ref
}

// Kind returns the variant the holder expects.
func (hd Handle) Kind() value.Type {
	return hd.kind
}

// TakeReference increments the value's count and returns a new handle
// tagged with the expected kind. The kind is validated on every
// dereference, not here; taking a reference to a dead id fails with
// ErrDanglingReference.
func (h *Heap) TakeReference(r value.Ref, kind value.Type) (Handle, error) {
	if err := h.IncRef(r); err != nil {
		return Handle{}, err
	}
	return Handle{ref: r, kind: kind}, nil
}

// Release drops the reference the handle holds. It is a convenience
// wrapper over DecRef for callers holding a Handle rather than a raw id.
func (h *Heap) Release(hd Handle) error {
	return h.DecRef(hd.ref)
}
