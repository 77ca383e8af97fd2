package runtime

import (
	"fmt"

	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
	"go.uber.org/zap"
)

// resolve validates the handle against the wanted variant and returns the
// target payload. Both the handle's expected kind and the actual variant
// of the value must match, there is no coercion of any sort.
func (h *Heap) resolve(hd Handle, want value.Type) (value.Payload, error) {
	s, err := h.lookup(hd.ref)
	if err != nil {
		return nil, err
	}
	if hd.kind != want {
		return nil, fmt.Errorf("%w: %s access through %s handle", ErrTypeMismatch, want, hd.kind)
	}
	if t := s.payload.Type(); t != want {
		return nil, fmt.Errorf("%w: %s access to %s value", ErrTypeMismatch, want, t)
	}
	return s.payload, nil
}

// ReadScalar returns the current payload of a scalar value.
func (h *Heap) ReadScalar(hd Handle) (any, error) {
	p, err := h.resolve(hd, value.ScalarT)
	if err != nil {
		return nil, err
	}
	return p.(*value.Scalar).Get(), nil
}

// WriteScalar replaces the payload of a scalar value. The mutation is
// visible through every handle aliasing the same id. A payload outside
// the immediate domain is rejected with ErrInvalidValue and the value is
// left untouched.
func (h *Heap) WriteScalar(hd Handle, v any) error {
	p, err := h.resolve(hd, value.ScalarT)
	if err != nil {
		return err
	}
	if err := value.CheckImmediate(v); err != nil {
		return err
	}
	p.(*value.Scalar).Set(v)
	return nil
}

// SeqLen returns the length of a sequence value.
func (h *Heap) SeqLen(hd Handle) (int, error) {
	p, err := h.resolve(hd, value.SequenceT)
	if err != nil {
		return 0, err
	}
	return p.(*value.Sequence).Len(), nil
}

// IndexGet returns the i-th element of a sequence value.
func (h *Heap) IndexGet(hd Handle, i int) (value.Elem, error) {
	p, err := h.resolve(hd, value.SequenceT)
	if err != nil {
		return value.Elem{}, err
	}
	seq := p.(*value.Sequence)
	if i < 0 || i >= seq.Len() {
		return value.Elem{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, seq.Len())
	}
	return seq.Get(i), nil
}

// IndexSet replaces the i-th element of a sequence value, releasing the
// reference held through the old element and taking one through the new.
func (h *Heap) IndexSet(hd Handle, i int, e value.Elem) error {
	p, err := h.resolve(hd, value.SequenceT)
	if err != nil {
		return err
	}
	seq := p.(*value.Sequence)
	if i < 0 || i >= seq.Len() {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, seq.Len())
	}
	old := seq.Get(i)
	if old.Equals(e) {
		return nil
	}
	if err := h.adoptElem(e); err != nil {
		return err
	}
	seq.Set(i, e)
	h.releaseElem(old)
	return nil
}

// SeqAppend adds an element to the end of a sequence value.
func (h *Heap) SeqAppend(hd Handle, e value.Elem) error {
	p, err := h.resolve(hd, value.SequenceT)
	if err != nil {
		return err
	}
	if err := h.adoptElem(e); err != nil {
		return err
	}
	p.(*value.Sequence).Append(e)
	return nil
}

// SeqRemove removes the i-th element of a sequence value, releasing the
// reference held through it.
func (h *Heap) SeqRemove(hd Handle, i int) error {
	p, err := h.resolve(hd, value.SequenceT)
	if err != nil {
		return err
	}
	seq := p.(*value.Sequence)
	if i < 0 || i >= seq.Len() {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, seq.Len())
	}
	old := seq.Get(i)
	seq.Remove(i)
	h.releaseElem(old)
	return nil
}

// KeyGet returns the element stored under key in a mapping value. A
// missing key is ErrNotFound, not a type error.
func (h *Heap) KeyGet(hd Handle, key string) (value.Elem, error) {
	p, err := h.resolve(hd, value.MappingT)
	if err != nil {
		return value.Elem{}, err
	}
	e, ok := p.(*value.Mapping).Get(key)
	if !ok {
		return value.Elem{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return e, nil
}

// KeySet stores an element under key in a mapping value, releasing the
// reference held through a replaced element.
func (h *Heap) KeySet(hd Handle, key string, e value.Elem) error {
	p, err := h.resolve(hd, value.MappingT)
	if err != nil {
		return err
	}
	m := p.(*value.Mapping)
	old, had := m.Get(key)
	if had && old.Equals(e) {
		return nil
	}
	if err := h.adoptElem(e); err != nil {
		return err
	}
	m.Add(key, e)
	if had {
		h.releaseElem(old)
	}
	return nil
}

// KeyDelete removes the key from a mapping value. Deleting a missing key
// is ErrNotFound.
func (h *Heap) KeyDelete(hd Handle, key string) error {
	p, err := h.resolve(hd, value.MappingT)
	if err != nil {
		return err
	}
	m := p.(*value.Mapping)
	i := m.Index(key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	old := m.Elements()[i].Value
	m.Drop(i)
	h.releaseElem(old)
	return nil
}

// KeyExists checks whether the mapping value has the key.
func (h *Heap) KeyExists(hd Handle, key string) (bool, error) {
	p, err := h.resolve(hd, value.MappingT)
	if err != nil {
		return false, err
	}
	return p.(*value.Mapping).Has(key), nil
}

// StreamOp runs op against the resource wrapped by a stream value. The
// operation either completes synchronously or fails, nothing here
// suspends.
func (h *Heap) StreamOp(hd Handle, op func(value.Resource) error) error {
	p, err := h.resolve(hd, value.StreamT)
	if err != nil {
		return err
	}
	return op(p.(*value.Stream).Resource())
}

// adoptElem takes a reference through a ref element being stored into an
// aggregate. Immediate elements need no bookkeeping.
func (h *Heap) adoptElem(e value.Elem) error {
	if !e.IsRef() {
		return nil
	}
	return h.IncRef(e.Ref())
}

// releaseElem drops the reference held through a ref element leaving an
// aggregate. A dangling target here means counts were already broken by
// the caller; it is reported, not masked.
func (h *Heap) releaseElem(e value.Elem) {
	if !e.IsRef() {
		return
	}
	if err := h.DecRef(e.Ref()); err != nil {
		h.log.Warn("aggregate held dangling reference", zap.Error(err))
	}
}
