package bigwig

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// ZlibDecompressor implements Decompressor over a single zlib-wrapped
// deflate stream, the on-disk compression format BigWig/BigBed data
// blocks use when the external header reports Compressed = true.
type ZlibDecompressor struct{}

// Inflate implements Decompressor.
func (ZlibDecompressor) Inflate(dst, src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "bigwig: opening zlib stream")
	}
	defer r.Close()
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, errors.Wrap(err, "bigwig: inflating block")
	}
	return buf.Bytes(), nil
}
