// Package memfile owns the archive's byte block — memory-mapped on the read
// path per spec §5 ("archive byte block... loaded by memory mapping") — and
// exposes positioned, typed reads over it through Cursor. A MemFile is the
// single owner of the block; every Cursor taken from it borrows a slice
// without copying and must not outlive the MemFile (spec §3 Ownership).
package memfile

import (
	"os"

	"github.com/carbonarchive/carbon/pkg/errors"
)

// MemFile owns one archive's byte block.
type MemFile struct {
	data    []byte
	mapped  bool
	file    *os.File
}

// Open maps path read-only into memory. On platforms without mmap support
// (see mmap_other.go) it falls back to reading the whole file into memory;
// callers observe identical behavior either way since the block is
// immutable after open.
func Open(path string) (*MemFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMemfileOpenFailed, "opening archive file "+path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.CodeMemfileOpenFailed, "stat archive file "+path)
	}

	if info.Size() == 0 {
		f.Close()
		return &MemFile{data: nil}, nil
	}

	data, mapped, err := mmapFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.CodeMemfileOpenFailed, "mapping archive file "+path)
	}

	mf := &MemFile{data: data, mapped: mapped}
	if mapped {
		mf.file = f
	} else {
		f.Close()
	}
	return mf, nil
}

// OpenBytes wraps an in-memory byte block directly, bypassing any file or
// mmap — used by tests and by callers that already staged the archive
// bytes (e.g. after fetching from a storage.Backend).
func OpenBytes(data []byte) *MemFile {
	return &MemFile{data: data}
}

// Bytes returns the entire owned block. Callers must not retain slices of
// it beyond the MemFile's lifetime.
func (m *MemFile) Bytes() []byte {
	return m.data
}

// Len returns the block size in bytes.
func (m *MemFile) Len() int64 {
	return int64(len(m.data))
}

// NewCursor returns a Cursor positioned at offset, borrowing this MemFile's
// block. Multiple cursors over the same MemFile are independent and safe
// for concurrent use (spec §5's parallelism boundary: the block is
// immutable after open).
func (m *MemFile) NewCursor(offset int64) (*Cursor, error) {
	if offset < 0 || offset > int64(len(m.data)) {
		return nil, errors.New(errors.CodeMemfileSeekFailed, "cursor offset out of bounds")
	}
	return &Cursor{block: m.data, pos: offset}, nil
}

// Close releases the mapped block. Any Cursor still referencing it becomes
// invalid; callers are responsible for dropping cursors first.
func (m *MemFile) Close() error {
	if !m.mapped {
		return nil
	}
	defer m.file.Close()
	return munmapData(m.data)
}
