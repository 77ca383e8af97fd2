package runtime

import (
	"slices"

	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

// Body is the native behavior a Callable runs when invoked. It executes
// against the call context whose frame has been seeded with the
// callable's captures.
type Body func(c *Call) (value.Elem, error)

// Capture is a binding closed over at callable construction time. The
// captured value is kept alive by the callable's own reference for as
// long as the callable itself is alive, independently of the frame it was
// captured from.
type Capture struct {
	Name   string
	Handle Handle
}

// Callable is an invocable unit of behavior plus the bindings it captured.
// It lives in this package rather than in pkg/runtime/value because its
// body runs against the runtime context, but it is an ordinary heap
// payload in every other respect.
type Callable struct {
	body     Body
	captures []Capture
}

// NewCallable returns a new Callable payload. Captured handles are
// borrowed: the heap takes the callable's own references on allocation.
func NewCallable(body Body, captures []Capture) *Callable {
	return &Callable{body: body, captures: captures}
}

// Captures returns the captured bindings.
func (c *Callable) Captures() []Capture {
	return c.captures
}

// Type implements the value.Payload interface.
func (c *Callable) Type() value.Type { return value.CallableT }

// Refs implements the value.Payload interface.
func (c *Callable) Refs(rs []value.Ref) []value.Ref {
	for _, cap := range c.captures {
		rs = append(rs, cap.Handle.Ref())
	}
	return rs
}

// Dup implements the value.Payload interface. The body is behavior, not
// state, so it is shared; the capture set is copied, still aliasing the
// same captured values.
func (c *Callable) Dup() value.Payload {
	return &Callable{body: c.body, captures: slices.Clone(c.captures)}
}

// String implements the value.Payload interface.
func (c *Callable) String() string { return "Callable" }
