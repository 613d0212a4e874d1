package writer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// resumeMagic is the fixed trailer following the little-endian progress
// counter at the end of a plot file (spec §3/§6.1).
var resumeMagic = [4]byte{0xAF, 0xFE, 0xAF, 0xFE}

// TrailerSize is the length in bytes of the resume trailer.
const TrailerSize = 8

// ReadResumeInfo implements spec §4.G's read_resume_info: it inspects
// the last 8 bytes of f and returns the number of nonces already
// written. ok is false when the file is too short to hold a trailer or
// the trailing magic bytes do not match; callers should treat that as
// a fatal resume error, per spec §7.
func ReadResumeInfo(f *os.File) (nonces uint32, ok bool, err error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false, fmt.Errorf("writer: seek end: %w", err)
	}
	if size < TrailerSize {
		return 0, false, nil
	}

	var trailer [TrailerSize]byte
	if _, err := f.ReadAt(trailer[:], size-TrailerSize); err != nil {
		return 0, false, fmt.Errorf("writer: read resume trailer: %w", err)
	}

	if trailer[4] != resumeMagic[0] || trailer[5] != resumeMagic[1] || trailer[6] != resumeMagic[2] || trailer[7] != resumeMagic[3] {
		return 0, false, nil
	}

	return binary.LittleEndian.Uint32(trailer[0:4]), true, nil
}

// WriteResumeInfo overwrites the trailer of a file of length fileSize
// with progress (spec §4.F step 4).
func WriteResumeInfo(f *os.File, fileSize int64, progress uint32) error {
	var trailer [TrailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:4], progress)
	copy(trailer[4:8], resumeMagic[:])

	if _, err := f.WriteAt(trailer[:], fileSize-TrailerSize); err != nil {
		return fmt.Errorf("writer: write resume trailer: %w", err)
	}
	return nil
}
