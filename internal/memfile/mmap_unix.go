//go:build unix

package memfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapFile(f *os.File, size int64) (data []byte, mapped bool, err error) {
	data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func munmapData(data []byte) error {
	return unix.Munmap(data)
}
