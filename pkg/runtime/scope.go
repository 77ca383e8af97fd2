package runtime

import (
	"fmt"

	"go.uber.org/zap"
)

// frameState tracks the disposal state machine of a frame.
type frameState byte

const (
	frameOpen frameState = iota
	frameClosing
	frameClosed
)

// binding is a named handle owned by exactly one frame.
type binding struct {
	name string
	h    Handle
}

// Frame owns the bindings created during one activation extent. Frames
// nest and never overlap; a child frame always fully closes before its
// parent.
type Frame struct {
	bindings []binding
	state    frameState
}

// Len returns the number of live bindings in the frame.
func (f *Frame) Len() int {
	return len(f.bindings)
}

// Scopes is the stack of frames driving binding disposal. Disposal runs
// through a single exit path, ExitFrame, which callers reach from normal
// fallthrough, early return and error propagation alike (typically via
// defer).
type Scopes struct {
	heap   *Heap
	frames []*Frame
}

// NewScopes returns a new scope stack over the given heap with no open
// frames.
func NewScopes(h *Heap) *Scopes {
	return &Scopes{heap: h}
}

// Heap returns the heap the scope stack disposes into.
func (s *Scopes) Heap() *Heap {
	return s.heap
}

// Depth returns the number of open frames.
func (s *Scopes) Depth() int {
	return len(s.frames)
}

// EnterFrame pushes a new open frame and returns it.
func (s *Scopes) EnterFrame() *Frame {
	f := &Frame{}
	s.frames = append(s.frames, f)
	return f
}

// ExitFrame closes the innermost frame, releasing every binding's handle
// in strict reverse order of creation: last bound, first disposed.
func (s *Scopes) ExitFrame() error {
	n := len(s.frames)
	if n == 0 {
		return ErrNoOpenFrame
	}
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	f.state = frameClosing
	for i := len(f.bindings) - 1; i >= 0; i-- {
		if err := s.heap.Release(f.bindings[i].h); err != nil {
			// Broken counts must not be masked, but disposal of the
			// remaining bindings still has to run.
			s.heap.log.Warn("binding disposal failed",
				zap.String("name", f.bindings[i].name),
				zap.Error(err))
		}
	}
	f.bindings = nil
	f.state = frameClosed
	return nil
}

// Bind records a named handle in the innermost frame, taking ownership of
// the reference the handle holds. Rebinding a name first releases the
// previous handle, so each binding is disposed exactly once.
func (s *Scopes) Bind(name string, h Handle) error {
	n := len(s.frames)
	if n == 0 {
		return ErrNoOpenFrame
	}
	f := s.frames[n-1]
	for i := range f.bindings {
		if f.bindings[i].name == name {
			old := f.bindings[i].h
			f.bindings[i].h = h
			return s.heap.Release(old)
		}
	}
	f.bindings = append(f.bindings, binding{name: name, h: h})
	return nil
}

// Lookup resolves a name against the open frames, innermost first.
func (s *Scopes) Lookup(name string) (Handle, error) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		for j := len(f.bindings) - 1; j >= 0; j-- {
			if f.bindings[j].name == name {
				return f.bindings[j].h, nil
			}
		}
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrUnknownBinding, name)
}

// Names returns the binding names of the innermost frame in creation
// order. It exists for inspection surfaces, not for execution.
func (s *Scopes) Names() []string {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	names := make([]string, len(f.bindings))
	for i := range f.bindings {
		names[i] = f.bindings[i].name
	}
	return names
}
