package heap

import (
	"os"
)

// fileResource adapts an open file to the runtime's resource collaborator
// contract: writes pass through, Finalize flushes and closes.
type fileResource struct {
	f *os.File
}

func openFileResource(path string) (*fileResource, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileResource{f: f}, nil
}

// Write implements the io.Writer interface.
func (r *fileResource) Write(p []byte) (int, error) {
	return r.f.Write(p)
}

// Finalize implements the value.Resource interface.
func (r *fileResource) Finalize() error {
	if err := r.f.Sync(); err != nil {
		_ = r.f.Close()
		return err
	}
	return r.f.Close()
}
