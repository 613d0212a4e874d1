// Package pagebuf implements the page-aligned cache buffer of spec §4.A: a
// byte region whose start address is aligned to the system page size, legal
// to hand to a direct-I/O write, recycled (not re-zeroed) between fills.
package pagebuf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Buffer owns one page-aligned byte region. The zero value is not usable;
// construct with New. A Buffer is safe to hand off between goroutines (the
// scheduler and the writer alternate ownership) but is not itself
// synchronized — the caller must guarantee single-writer access at any
// instant, per spec §3's buffer invariant.
type Buffer struct {
	data   []byte
	closed bool
}

// New allocates a buffer of exactly size bytes, page-aligned via an
// anonymous mmap so the region is legal for O_DIRECT writes. The region is
// zeroed by the kernel on first use and is never re-zeroed by Close/New
// across the pool's lifetime — every worker must fully overwrite the bytes
// of the slot it is assigned.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pagebuf: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("pagebuf: mmap %d bytes: %w", size, err)
	}
	return &Buffer{data: data}, nil
}

// Bytes returns the mutable backing slice. Callers must not retain it past
// Close.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Close releases the backing allocation. It is a caller error to use the
// buffer afterward; Close is idempotent.
func (b *Buffer) Close() error {
	if b.closed || b.data == nil {
		return nil
	}
	b.closed = true
	err := unix.Munmap(b.data)
	b.data = nil
	if err != nil {
		return fmt.Errorf("pagebuf: munmap: %w", err)
	}
	return nil
}
