package value

import (
	"bytes"
	"fmt"
	"reflect"
)

// Ref is the identifier of a heap-resident value. It packs the arena slot
// index together with the slot generation, so a reclaimed id is never equal
// to the id of a later value reusing the same slot. The zero Ref is never
// valid.
type Ref uint64

// InvalidRef is a Ref that no heap value ever has.
const InvalidRef Ref = 0

// Elem is a single element of an aggregate value: either an immediate
// payload held by the aggregate itself or a reference aliasing another
// heap value. Immediate elements are copied on duplication, reference
// elements keep aliasing their target.
type Elem struct {
	ref Ref
	imm any
}

// Make builds an immediate element from the provided Go value. A Ref
// argument produces a reference element instead. Immediate payloads are
// restricted to comparable values and byte slices, so that every element
// can be duplicated and compared; Make panics on anything else (state that
// mutates in place belongs on the heap behind a Ref, not inside an
// immediate).
func Make(v any) Elem {
	if r, ok := v.(Ref); ok {
		return RefTo(r)
	}
	if err := CheckImmediate(v); err != nil {
		panic(err)
	}
	return Elem{imm: v}
}

// RefTo builds an element aliasing the value named by r.
func RefTo(r Ref) Elem {
	return Elem{ref: r}
}

// IsRef reports whether the element aliases a heap value.
func (e Elem) IsRef() bool {
	return e.ref != InvalidRef
}

// Ref returns the aliased id, InvalidRef for immediate elements.
func (e Elem) Ref() Ref {
	return e.ref
}

// Value returns the immediate payload, nil for reference elements.
func (e Elem) Value() any {
	return e.imm
}

// Dup returns an independent copy of the element. Byte slices are cloned,
// references still name the same target.
func (e Elem) Dup() Elem {
	if b, ok := e.imm.([]byte); ok {
		return Elem{imm: bytes.Clone(b)}
	}
	return e
}

// Equals compares two elements. Reference elements are equal when they
// name the same id, immediates when their payloads compare equal. It
// never panics: byte slices are compared by content and any other
// uncomparable payload compares unequal.
func (e Elem) Equals(other Elem) bool {
	if e.IsRef() || other.IsRef() {
		return e.ref == other.ref
	}
	if b, ok := e.imm.([]byte); ok {
		ob, ook := other.imm.([]byte)
		return ook && bytes.Equal(b, ob)
	}
	if _, ok := other.imm.([]byte); ok {
		return false
	}
	if e.imm == nil || other.imm == nil {
		return e.imm == other.imm
	}
	if !reflect.TypeOf(e.imm).Comparable() || !reflect.TypeOf(other.imm).Comparable() {
		return false
	}
	return e.imm == other.imm
}

// String implements the fmt.Stringer interface.
func (e Elem) String() string {
	if e.IsRef() {
		return fmt.Sprintf("ref(%d:%d)", uint32(e.ref>>32), uint32(e.ref))
	}
	return fmt.Sprintf("%v", e.imm)
}
