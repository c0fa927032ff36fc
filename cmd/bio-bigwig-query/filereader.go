package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// osFileReader adapts an *os.File to bigwig.ByteReader. os.File.ReadAt
// is safe for concurrent callers (it uses pread, not the file's shared
// offset), which is what lets QueryEngine fan read calls out across a
// worker pool.
type osFileReader struct {
	f *os.File
}

func (r *osFileReader) ReadAt(ctx context.Context, buf []byte, dstOffset, length int, fileOffset uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := r.f.ReadAt(buf[dstOffset:dstOffset+length], int64(fileOffset))
	if err != nil {
		return errors.Wrapf(err, "bio-bigwig-query: reading %d bytes at offset %d", length, fileOffset)
	}
	if n != length {
		return errors.Errorf("bio-bigwig-query: short read at offset %d: got %d of %d bytes", fileOffset, n, length)
	}
	return ctx.Err()
}
