//go:build !unix

package memfile

import (
	"io"
	"os"
)

func mmapFile(f *os.File, size int64) (data []byte, mapped bool, err error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, false, err
	}
	return buf, false, nil
}

func munmapData(data []byte) error {
	return nil
}
