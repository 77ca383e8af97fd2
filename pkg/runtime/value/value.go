// Package value defines the variants a heap value can take and the
// element representation aggregates are built from. The heap itself,
// reference counting and scope handling live in pkg/runtime; this package
// is purely the data model.
package value

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// ErrInvalidValue is returned when an unsupported Go value is used as an
// immediate payload.
var ErrInvalidValue = errors.New("invalid immediate value")

// CheckImmediate validates a Go value against the immediate payload
// domain: comparable values and byte slices. Anything mutable in place
// other than a byte slice (slices, maps, funcs) is rejected, so that
// duplicated values never share state with their source.
func CheckImmediate(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := v.([]byte); ok {
		return nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Errorf("%w: uncomparable type %v", ErrInvalidValue, reflect.TypeOf(v))
	}
	return nil
}

// Payload is the variant-specific state of a heap value. The reference
// count itself is owned by the heap, not by the payload.
type Payload interface {
	fmt.Stringer
	// Type returns the variant tag of the payload.
	Type() Type
	// Refs appends every heap reference contained in the payload to rs.
	// The heap uses it to cascade reference counting into aggregates.
	Refs(rs []Ref) []Ref
	// Dup returns a payload-level copy: immediates are duplicated while
	// contained references keep aliasing their targets.
	Dup() Payload
}

// Resource is the external collaborator wrapped by a Stream value. The
// heap calls Finalize exactly once, when the wrapping value is reclaimed.
type Resource interface {
	Finalize() error
}

// Scalar is a single mutable payload. The payload domain is the same as
// for immediate elements (see CheckImmediate), so duplication is always a
// real copy.
type Scalar struct {
	value any
}

// NewScalar returns a new Scalar payload. It panics when v is outside the
// immediate payload domain.
func NewScalar(v any) *Scalar {
	if err := CheckImmediate(v); err != nil {
		panic(err)
	}
	return &Scalar{value: v}
}

// Get returns the current payload.
func (s *Scalar) Get() any {
	return s.value
}

// Set replaces the payload. It panics when v is outside the immediate
// payload domain; callers wanting an error go through CheckImmediate
// first.
func (s *Scalar) Set(v any) {
	if err := CheckImmediate(v); err != nil {
		panic(err)
	}
	s.value = v
}

// Type implements the Payload interface.
func (s *Scalar) Type() Type { return ScalarT }

// Refs implements the Payload interface.
func (s *Scalar) Refs(rs []Ref) []Ref { return rs }

// Dup implements the Payload interface.
func (s *Scalar) Dup() Payload {
	if b, ok := s.value.([]byte); ok {
		return &Scalar{value: bytes.Clone(b)}
	}
	return &Scalar{value: s.value}
}

// String implements the Payload interface.
func (s *Scalar) String() string { return "Scalar" }

// Sequence is an ordered, mutable, index-addressable collection.
type Sequence struct {
	value []Elem
}

// NewSequence returns a new Sequence payload over the given elements.
func NewSequence(elems []Elem) *Sequence {
	return &Sequence{value: elems}
}

// Len returns the number of elements.
func (s *Sequence) Len() int {
	return len(s.value)
}

// Get returns the i-th element. Bounds are checked by the caller.
func (s *Sequence) Get(i int) Elem {
	return s.value[i]
}

// Set replaces the i-th element.
func (s *Sequence) Set(i int, e Elem) {
	s.value[i] = e
}

// Append adds an element to the end of the sequence.
func (s *Sequence) Append(e Elem) {
	s.value = append(s.value, e)
}

// Remove removes the element at index i.
func (s *Sequence) Remove(i int) {
	s.value = append(s.value[:i], s.value[i+1:]...)
}

// Type implements the Payload interface.
func (s *Sequence) Type() Type { return SequenceT }

// Refs implements the Payload interface.
func (s *Sequence) Refs(rs []Ref) []Ref {
	for _, e := range s.value {
		if e.IsRef() {
			rs = append(rs, e.Ref())
		}
	}
	return rs
}

// Dup implements the Payload interface.
func (s *Sequence) Dup() Payload {
	elems := make([]Elem, len(s.value))
	for i := range s.value {
		elems[i] = s.value[i].Dup()
	}
	return &Sequence{value: elems}
}

// String implements the Payload interface.
func (s *Sequence) String() string { return "Sequence" }

// MapElement is a single key-value pair of a Mapping.
type MapElement struct {
	Key   string
	Value Elem
}

// Mapping is a mutable key-addressable collection with unique keys. It is
// ordered, so we use a slice representation, which is fine for mappings
// with less than 32 or so elements. It can be extended with a real map for
// fast random access in the future if needed.
type Mapping struct {
	value []MapElement
}

// NewMapping returns a new empty Mapping payload.
func NewMapping() *Mapping {
	return &Mapping{value: make([]MapElement, 0)}
}

// NewMappingWithValue returns a new Mapping payload filled with the
// specified elements without key uniqueness validation.
func NewMappingWithValue(value []MapElement) *Mapping {
	if value != nil {
		return &Mapping{value: value}
	}
	return NewMapping()
}

// Len returns the number of key-value pairs.
func (m *Mapping) Len() int {
	return len(m.value)
}

// Index returns the index of the key in the mapping, -1 if absent.
func (m *Mapping) Index(key string) int {
	return slices.IndexFunc(m.value, func(e MapElement) bool {
		return e.Key == key
	})
}

// Has checks if the mapping has the specified key.
func (m *Mapping) Has(key string) bool {
	return m.Index(key) >= 0
}

// Get returns the element stored under key.
func (m *Mapping) Get(key string) (Elem, bool) {
	if i := m.Index(key); i >= 0 {
		return m.value[i].Value, true
	}
	return Elem{}, false
}

// Add adds a key-value pair to the mapping, replacing the previous value
// of an existing key.
func (m *Mapping) Add(key string, e Elem) {
	if i := m.Index(key); i >= 0 {
		m.value[i].Value = e
	} else {
		m.value = append(m.value, MapElement{key, e})
	}
}

// Drop removes the given index from the mapping (no bounds check done
// here).
func (m *Mapping) Drop(index int) {
	copy(m.value[index:], m.value[index+1:])
	m.value = m.value[:len(m.value)-1]
}

// Elements returns the underlying key-value pairs.
func (m *Mapping) Elements() []MapElement {
	return m.value
}

// Type implements the Payload interface.
func (m *Mapping) Type() Type { return MappingT }

// Refs implements the Payload interface.
func (m *Mapping) Refs(rs []Ref) []Ref {
	for _, e := range m.value {
		if e.Value.IsRef() {
			rs = append(rs, e.Value.Ref())
		}
	}
	return rs
}

// Dup implements the Payload interface.
func (m *Mapping) Dup() Payload {
	elems := make([]MapElement, len(m.value))
	for i := range m.value {
		elems[i] = MapElement{m.value[i].Key, m.value[i].Value.Dup()}
	}
	return &Mapping{value: elems}
}

// String implements the Payload interface.
func (m *Mapping) String() string { return "Mapping" }

// Stream wraps an external resource. The heap runs the resource's
// Finalize exactly once, when the value's count reaches zero.
type Stream struct {
	res Resource
}

// NewStream returns a new Stream payload over the given resource.
func NewStream(res Resource) *Stream {
	return &Stream{res: res}
}

// Resource returns the wrapped resource.
func (s *Stream) Resource() Resource {
	return s.res
}

// Type implements the Payload interface.
func (s *Stream) Type() Type { return StreamT }

// Refs implements the Payload interface.
func (s *Stream) Refs(rs []Ref) []Ref { return rs }

// Dup implements the Payload interface. The resource is external state
// and cannot be duplicated, so the copy shares it.
func (s *Stream) Dup() Payload {
	return &Stream{res: s.res}
}

// String implements the Payload interface.
func (s *Stream) String() string { return "Stream" }
