// Package fakeres provides a fake external resource for tests: it records
// writes and finalizations and can be told to fail its finalizer.
package fakeres

import (
	"bytes"
	"errors"
)

// ErrFinalized is returned on writes to an already finalized resource.
var ErrFinalized = errors.New("resource already finalized")

// Resource is a fake finalizable resource. The zero value is ready to use.
type Resource struct {
	buf        bytes.Buffer
	finalized  int
	failWith   error
	onFinalize func()
}

// New returns a new fake resource.
func New() *Resource {
	return &Resource{}
}

// FailWith makes the next Finalize return err.
func (r *Resource) FailWith(err error) *Resource {
	r.failWith = err
	return r
}

// OnFinalize registers a hook invoked on every Finalize call. Tests use
// it to record disposal order.
func (r *Resource) OnFinalize(f func()) *Resource {
	r.onFinalize = f
	return r
}

// Write implements the io.Writer interface.
func (r *Resource) Write(p []byte) (int, error) {
	if r.finalized > 0 {
		return 0, ErrFinalized
	}
	return r.buf.Write(p)
}

// Finalize implements the value.Resource interface.
func (r *Resource) Finalize() error {
	r.finalized++
	if r.onFinalize != nil {
		r.onFinalize()
	}
	return r.failWith
}

// Finalized returns how many times Finalize was called.
func (r *Resource) Finalized() int {
	return r.finalized
}

// Contents returns everything written so far.
func (r *Resource) Contents() []byte {
	return r.buf.Bytes()
}
