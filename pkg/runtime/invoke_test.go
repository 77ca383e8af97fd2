package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

func TestInvokeArgs(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)

	fn := h.Construct(NewCallable(func(c *Call) (value.Elem, error) {
		sum := 0
		for _, a := range c.Args {
			sum += a.Value().(int)
		}
		return value.Make(sum), nil
	}, nil))

	res, err := s.Invoke(fn, []value.Elem{value.Make(1), value.Make(2), value.Make(3)})
	require.NoError(t, err)
	require.Equal(t, value.Make(6), res)
}

func TestInvokeCaptureSeeding(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)

	counter := h.Construct(value.NewScalar(0))
	fn := h.Construct(NewCallable(func(c *Call) (value.Elem, error) {
		hd, err := c.Scopes.Lookup("counter")
		if err != nil {
			return value.Elem{}, err
		}
		cur, err := c.Heap.ReadScalar(hd)
		if err != nil {
			return value.Elem{}, err
		}
		next := cur.(int) + 1
		return value.Make(next), c.Heap.WriteScalar(hd, next)
	}, []Capture{{Name: "counter", Handle: counter}}))
	// callable holds its own reference on top of ours
	require.Equal(t, 2, h.RefCount(counter.Ref()))

	for want := 1; want <= 3; want++ {
		res, err := s.Invoke(fn, nil)
		require.NoError(t, err)
		require.Equal(t, value.Make(want), res)
	}

	// Captured state is shared with the original binding.
	got, err := h.ReadScalar(counter)
	require.NoError(t, err)
	require.Equal(t, 3, got)
	require.Equal(t, 0, s.Depth())
}

func TestInvokeCaptureOutlivesCreatingFrame(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)

	s.EnterFrame()
	captured := h.Construct(value.NewScalar("kept"))
	require.NoError(t, s.Bind("v", captured))

	alias, err := h.TakeReference(captured.Ref(), value.ScalarT)
	require.NoError(t, err)
	fn := h.Construct(NewCallable(func(c *Call) (value.Elem, error) {
		hd, err := c.Scopes.Lookup("v")
		if err != nil {
			return value.Elem{}, err
		}
		got, err := c.Heap.ReadScalar(hd)
		return value.Make(got), err
	}, []Capture{{Name: "v", Handle: alias}}))
	require.NoError(t, h.Release(alias))

	// The creating frame dies, the capture keeps the value alive.
	require.NoError(t, s.ExitFrame())
	require.True(t, h.Alive(captured.Ref()))
	require.Equal(t, 1, h.RefCount(captured.Ref()))

	res, err := s.Invoke(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Make("kept"), res)

	// Dropping the callable cascades into the captured value.
	require.NoError(t, h.Release(fn))
	require.False(t, h.Alive(captured.Ref()))
}

func TestInvokeErrorStillDrainsFrame(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)

	errBoom := errors.New("boom")
	inner := h.Construct(value.NewScalar(1))
	fn := h.Construct(NewCallable(func(c *Call) (value.Elem, error) {
		return value.Elem{}, errBoom
	}, []Capture{{Name: "x", Handle: inner}}))

	_, err := s.Invoke(fn, nil)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 0, s.Depth())
	// The invocation frame's capture reference was released.
	require.Equal(t, 2, h.RefCount(inner.Ref()))
}

func TestInvokeTypeMismatch(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)
	sc := h.Construct(value.NewScalar(1))
	_, err := s.Invoke(NewHandle(sc.Ref(), value.CallableT), nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestInvokeBodyDropsOwnCallable(t *testing.T) {
	h := NewHeap(nil)
	s := NewScopes(h)

	s.EnterFrame()
	var fn Handle
	fn = h.Construct(NewCallable(func(c *Call) (value.Elem, error) {
		// Drop the only external reference mid-call; the pin keeps
		// the callable alive until the invocation finishes.
		return value.Make("done"), c.Heap.Release(fn)
	}, nil))

	res, err := s.Invoke(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Make("done"), res)
	require.False(t, h.Alive(fn.Ref()))
	require.NoError(t, s.ExitFrame())
}
