package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

func TestConstructUnique(t *testing.T) {
	h := NewHeap(nil)
	a := h.Construct(value.NewScalar(1))
	b := h.Construct(value.NewScalar(1))
	require.NotEqual(t, a.Ref(), b.Ref())
	require.Equal(t, value.ScalarT, a.Kind())
	require.Equal(t, 1, h.RefCount(a.Ref()))
}

func TestConstructFromCopiesContents(t *testing.T) {
	h := NewHeap(nil)
	x := h.Construct(value.NewSequence([]value.Elem{value.Make(1), value.Make(2)}))

	y, err := h.ConstructFrom(x)
	require.NoError(t, err)
	require.NotEqual(t, x.Ref(), y.Ref())

	// Appending to the source does not change the anonymous copy, and
	// vice versa.
	require.NoError(t, h.SeqAppend(x, value.Make(3)))
	n, err := h.SeqLen(y)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, h.SeqAppend(y, value.Make(4)))
	n, err = h.SeqLen(x)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestConstructFromCopiesByteElements(t *testing.T) {
	h := NewHeap(nil)
	x := h.Construct(value.NewSequence([]value.Elem{value.Make([]byte{1, 2})}))
	y, err := h.ConstructFrom(x)
	require.NoError(t, err)

	// The copy owns its own bytes.
	require.NoError(t, h.IndexSet(x, 0, value.Make([]byte{9, 9})))
	e, err := h.IndexGet(y, 0)
	require.NoError(t, err)
	require.Equal(t, value.Make([]byte{1, 2}), e)

	// Same for a scalar payload: mutating the source bytes in place does
	// not reach the copy.
	b := []byte{1}
	sc := h.Construct(value.NewScalar(b))
	cp, err := h.ConstructFrom(sc)
	require.NoError(t, err)
	b[0] = 9
	got, err := h.ReadScalar(cp)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)
}

func TestConstructFromAliasesRefElements(t *testing.T) {
	h := NewHeap(nil)
	inner := h.Alloc(value.NewScalar("before"))
	x := h.Construct(value.NewSequence([]value.Elem{value.RefTo(inner)}))
	require.Equal(t, 2, h.RefCount(inner))

	y, err := h.ConstructFrom(x)
	require.NoError(t, err)
	// The copy holds its own reference to the same element target.
	require.Equal(t, 3, h.RefCount(inner))

	// Reference elements still see mutation of their target.
	ih, err := h.TakeReference(inner, value.ScalarT)
	require.NoError(t, err)
	require.NoError(t, h.WriteScalar(ih, "after"))

	e, err := h.IndexGet(y, 0)
	require.NoError(t, err)
	require.Equal(t, inner, e.Ref())
}

func TestConstructFromVsTakeReference(t *testing.T) {
	h := NewHeap(nil)
	x := h.Construct(value.NewMappingWithValue([]value.MapElement{
		{Key: "a", Value: value.Make(1)},
	}))

	alias, err := h.TakeReference(x.Ref(), value.MappingT)
	require.NoError(t, err)
	copied, err := h.ConstructFrom(x)
	require.NoError(t, err)

	require.NoError(t, h.KeySet(x, "b", value.Make(2)))

	// The alias observes the mutation, the anonymous copy does not.
	ok, err := h.KeyExists(alias, "b")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = h.KeyExists(copied, "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConstructFromKindMismatch(t *testing.T) {
	h := NewHeap(nil)
	x := h.Construct(value.NewScalar(1))
	bad := NewHandle(x.Ref(), value.SequenceT)
	_, err := h.ConstructFrom(bad)
	require.ErrorIs(t, err, ErrTypeMismatch)
}
