// Package diskio wraps the platform calls the writer needs for the
// resume/layout component of spec §4.F/§4.G: direct-I/O open with
// buffered fallback, pre-allocation, and sector-size discovery.
package diskio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultSectorSize is used when the sector size cannot be queried from
// the filesystem (e.g. on a fallback buffered open).
const DefaultSectorSize = 4096

// OpenForWrite opens path for read/write, creating it if absent. When
// directIO is requested it first tries O_DIRECT; on EINVAL (spec's
// "direct-I/O rejection") it retries without O_DIRECT exactly once and
// reports the fallback via usedDirectIO=false.
func OpenForWrite(path string, directIO bool) (f *os.File, usedDirectIO bool, err error) {
	flags := os.O_RDWR | os.O_CREATE

	if directIO {
		f, err = os.OpenFile(path, flags|unix.O_DIRECT, 0o644)
		if err == nil {
			return f, true, nil
		}
		if !errors.Is(err, unix.EINVAL) {
			return nil, false, fmt.Errorf("diskio: open %s with O_DIRECT: %w", path, err)
		}
	}

	f, err = os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("diskio: open %s: %w", path, err)
	}
	return f, false, nil
}

// SectorSize returns the preferred I/O block size (st_blksize) that
// fstat reports for f, used as its sector size, falling back to
// DefaultSectorSize when it cannot be determined (the
// stat-based probe below is best-effort; procfs/ioctl queries vary too
// much across filesystems to be worth the complexity here).
func SectorSize(f *os.File) int {
	var stat unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &stat); err != nil {
		return DefaultSectorSize
	}
	if stat.Blksize > 0 {
		return int(stat.Blksize)
	}
	return DefaultSectorSize
}

// Preallocate grows f to size bytes using fallocate when available,
// falling back to truncating f up to size (which
// leaves the file sparse on filesystems that support holes, or fully
// zeroed otherwise — either is a valid starting state for a plot file
// since every byte is written before it is read).
func Preallocate(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err == nil {
		return nil
	}
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("diskio: preallocate %s: %w", f.Name(), err)
	}
	return nil
}
