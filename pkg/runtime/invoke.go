package runtime

import (
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
	"go.uber.org/zap"
)

// Call is the execution context of a single invocation, passed to the
// callable's body. The current frame of Scopes is seeded with the
// callable's captures; Args carries the call's own arguments.
type Call struct {
	Heap   *Heap
	Scopes *Scopes
	Args   []value.Elem
}

// Invoke runs a callable value. A fresh frame is entered and seeded with
// the captured bindings, the body runs against it, and the frame is
// drained through the single ExitFrame path no matter how the body
// returns. The callable itself is pinned for the duration of the call, so
// a body dropping the last external reference to its own callable cannot
// free the state it is still running on.
func (s *Scopes) Invoke(hd Handle, args []value.Elem) (value.Elem, error) {
	p, err := s.heap.resolve(hd, value.CallableT)
	if err != nil {
		return value.Elem{}, err
	}
	c := p.(*Callable)

	if err := s.heap.IncRef(hd.ref); err != nil {
		return value.Elem{}, err
	}
	defer func() {
		// The pin, not the caller's reference; errors here would mean
		// the count was broken during the call.
		if err := s.heap.DecRef(hd.ref); err != nil {
			s.heap.log.Warn("callable unpin failed", zap.Error(err))
		}
	}()

	s.EnterFrame()
	defer func() {
		if err := s.ExitFrame(); err != nil {
			s.heap.log.Warn("invocation frame drain failed", zap.Error(err))
		}
	}()

	for _, cap := range c.captures {
		h, err := s.heap.TakeReference(cap.Handle.Ref(), cap.Handle.Kind())
		if err != nil {
			return value.Elem{}, err
		}
		if err := s.Bind(cap.Name, h); err != nil {
			return value.Elem{}, err
		}
	}
	return c.body(&Call{Heap: s.heap, Scopes: s, Args: args})
}
