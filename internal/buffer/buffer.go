// Package buffer holds the byte region behind a typed tree leaf. A region is
// either owned (allocated here, released on reassignment) or external
// (attached caller memory that must never be released by the tree).
package buffer

import (
	"errors"

	"github.com/scigolib/datatree/internal/utils"
)

// Buffer is a contiguous byte region plus its ownership flag.
type Buffer struct {
	data    []byte
	alloced bool
}

// Allocate releases any prior region and installs a fresh zero-filled owned
// region of n bytes.
func (b *Buffer) Allocate(n uint64) error {
	if err := utils.ValidateBufferSize(n, "leaf buffer"); err != nil {
		return utils.WrapError("buffer allocate", err)
	}

	b.Release()
	b.data = make([]byte, n)
	b.alloced = true
	return nil
}

// Attach releases any prior region and stores ext as a non-owning reference.
// The caller keeps ownership of ext and must keep it alive while the buffer
// references it.
func (b *Buffer) Attach(ext []byte) {
	b.Release()
	b.data = ext
	b.alloced = false
}

// Release drops the region. Owned memory is handed back to the runtime;
// external memory is merely forgotten.
func (b *Buffer) Release() {
	b.data = nil
	b.alloced = false
}

// Data returns the referenced region.
func (b *Buffer) Data() []byte {
	return b.data
}

// Len returns the region length in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Alloced reports whether the buffer owns its region.
func (b *Buffer) Alloced() bool {
	return b.alloced
}

// ErrRegionBounds is returned when a typed view would read or write outside
// the referenced region.
var ErrRegionBounds = errors.New("typed view exceeds buffer region")

// CheckSpan verifies that the byte range [offset, offset+size) lies inside
// the region.
func (b *Buffer) CheckSpan(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		return ErrRegionBounds
	}
	return nil
}
