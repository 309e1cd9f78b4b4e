package ops

import (
	"fmt"
	"hash/maphash"

	"github.com/born-ml/sparseconv/internal/tensor"
)

var savedSeed = maphash.MakeSeed()

// savedTensor pins a tensor saved for backward together with its buffer
// version and a content hash taken at save time. The hash catches writes made
// through typed views that did not bump the version.
type savedTensor struct {
	t       *tensor.RawTensor
	version uint64
	sum     uint64
}

func save(t *tensor.RawTensor) savedTensor {
	if t == nil {
		return savedTensor{}
	}
	return savedTensor{
		t:       t,
		version: t.Version(),
		sum:     maphash.Bytes(savedSeed, t.Data()),
	}
}

// check returns ErrModified if the tensor changed since it was saved.
func (s savedTensor) check(name string) error {
	if s.t == nil {
		return nil
	}
	if s.t.Version() != s.version || maphash.Bytes(savedSeed, s.t.Data()) != s.sum {
		return fmt.Errorf("%w: %s", ErrModified, name)
	}
	return nil
}
