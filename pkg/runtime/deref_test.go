package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vesper-lang/vesper-go/internal/fakeres"
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

func TestResolveKindChecking(t *testing.T) {
	h := NewHeap(nil)
	r := h.Alloc(value.NewScalar(1))

	// Handle tagged with the wrong kind.
	bad, err := h.TakeReference(r, value.SequenceT)
	require.NoError(t, err)
	_, err = h.SeqLen(bad)
	require.ErrorIs(t, err, ErrTypeMismatch)

	// Properly tagged handle used with the wrong access shape.
	good, err := h.TakeReference(r, value.ScalarT)
	require.NoError(t, err)
	_, err = h.IndexGet(good, 0)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = h.KeyGet(good, "a")
	require.ErrorIs(t, err, ErrTypeMismatch)
	err = h.StreamOp(good, func(value.Resource) error { return nil })
	require.ErrorIs(t, err, ErrTypeMismatch)

	// Matching shape works.
	got, err := h.ReadScalar(good)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestDerefDangling(t *testing.T) {
	h := NewHeap(nil)
	r := h.Alloc(value.NewScalar(1))
	hd, err := h.TakeReference(r, value.ScalarT)
	require.NoError(t, err)
	require.NoError(t, h.DecRef(r))
	require.NoError(t, h.Release(hd))

	_, err = h.ReadScalar(hd)
	require.ErrorIs(t, err, ErrDanglingReference)
	require.ErrorIs(t, h.WriteScalar(hd, 2), ErrDanglingReference)
}

func TestSequenceAccess(t *testing.T) {
	h := NewHeap(nil)
	hd := h.Construct(value.NewSequence([]value.Elem{value.Make(1), value.Make(2)}))

	n, err := h.SeqLen(hd)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	e, err := h.IndexGet(hd, 1)
	require.NoError(t, err)
	require.Equal(t, value.Make(2), e)

	_, err = h.IndexGet(hd, 2)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.ErrorIs(t, h.IndexSet(hd, -1, value.Make(0)), ErrOutOfRange)

	require.NoError(t, h.IndexSet(hd, 0, value.Make(10)))
	e, err = h.IndexGet(hd, 0)
	require.NoError(t, err)
	require.Equal(t, value.Make(10), e)

	require.NoError(t, h.SeqAppend(hd, value.Make(3)))
	n, _ = h.SeqLen(hd)
	require.Equal(t, 3, n)

	require.NoError(t, h.SeqRemove(hd, 0))
	e, _ = h.IndexGet(hd, 0)
	require.Equal(t, value.Make(2), e)
}

func TestSequenceRefElementCounts(t *testing.T) {
	h := NewHeap(nil)
	inner := h.Alloc(value.NewScalar("x"))
	hd := h.Construct(value.NewSequence([]value.Elem{value.Make(nil)}))

	require.NoError(t, h.IndexSet(hd, 0, value.RefTo(inner)))
	require.Equal(t, 2, h.RefCount(inner))

	// Overwriting the element releases the old reference.
	require.NoError(t, h.IndexSet(hd, 0, value.Make(1)))
	require.Equal(t, 1, h.RefCount(inner))

	require.NoError(t, h.SeqAppend(hd, value.RefTo(inner)))
	require.Equal(t, 2, h.RefCount(inner))
	require.NoError(t, h.SeqRemove(hd, 1))
	require.Equal(t, 1, h.RefCount(inner))
}

func TestMappingAccess(t *testing.T) {
	h := NewHeap(nil)
	hd := h.Construct(value.NewMappingWithValue([]value.MapElement{
		{Key: "a", Value: value.Make(1)},
		{Key: "b", Value: value.Make(2)},
	}))

	e, err := h.KeyGet(hd, "a")
	require.NoError(t, err)
	require.Equal(t, value.Make(1), e)

	require.NoError(t, h.KeyDelete(hd, "a"))

	ok, err := h.KeyExists(hd, "a")
	require.NoError(t, err)
	require.False(t, ok)

	// A missing key is a distinct not-found outcome, not a type error.
	_, err = h.KeyGet(hd, "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrTypeMismatch)
	require.ErrorIs(t, h.KeyDelete(hd, "a"), ErrNotFound)

	require.NoError(t, h.KeySet(hd, "c", value.Make(3)))
	ok, _ = h.KeyExists(hd, "c")
	require.True(t, ok)
}

func TestMappingRefElementCounts(t *testing.T) {
	h := NewHeap(nil)
	inner := h.Alloc(value.NewScalar("x"))
	hd := h.Construct(value.NewMapping())

	require.NoError(t, h.KeySet(hd, "k", value.RefTo(inner)))
	require.Equal(t, 2, h.RefCount(inner))

	require.NoError(t, h.KeySet(hd, "k", value.Make(1)))
	require.Equal(t, 1, h.RefCount(inner))

	require.NoError(t, h.KeySet(hd, "k2", value.RefTo(inner)))
	require.NoError(t, h.KeyDelete(hd, "k2"))
	require.Equal(t, 1, h.RefCount(inner))
}

func TestByteElementMutation(t *testing.T) {
	h := NewHeap(nil)
	seq := h.Construct(value.NewSequence([]value.Elem{value.Make([]byte{1})}))
	m := h.Construct(value.NewMappingWithValue([]value.MapElement{
		{Key: "k", Value: value.Make([]byte{1})},
	}))

	// Byte-slice immediates go through the content comparison in both
	// mutation paths, whether the stored element changes or not.
	require.NotPanics(t, func() {
		require.NoError(t, h.IndexSet(seq, 0, value.Make([]byte{1})))
		require.NoError(t, h.IndexSet(seq, 0, value.Make([]byte{2})))
		require.NoError(t, h.KeySet(m, "k", value.Make([]byte{1})))
		require.NoError(t, h.KeySet(m, "k", value.Make([]byte{2})))
	})

	e, err := h.IndexGet(seq, 0)
	require.NoError(t, err)
	require.Equal(t, value.Make([]byte{2}), e)
	e, err = h.KeyGet(m, "k")
	require.NoError(t, err)
	require.Equal(t, value.Make([]byte{2}), e)
}

func TestWriteScalarRejectsMutable(t *testing.T) {
	h := NewHeap(nil)
	hd := h.Construct(value.NewScalar(1))

	require.ErrorIs(t, h.WriteScalar(hd, []int{1}), value.ErrInvalidValue)
	require.ErrorIs(t, h.WriteScalar(hd, map[string]int{}), value.ErrInvalidValue)

	// The rejected write leaves the value untouched.
	got, err := h.ReadScalar(hd)
	require.NoError(t, err)
	require.Equal(t, 1, got)

	require.NoError(t, h.WriteScalar(hd, []byte{7}))
}

func TestStreamOp(t *testing.T) {
	h := NewHeap(nil)
	res := fakeres.New()
	hd := h.Construct(value.NewStream(res))

	require.NoError(t, h.StreamOp(hd, func(r value.Resource) error {
		_, err := r.(*fakeres.Resource).Write([]byte("hello"))
		return err
	}))
	require.Equal(t, []byte("hello"), res.Contents())
}
