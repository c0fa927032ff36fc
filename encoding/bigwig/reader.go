package bigwig

import "context"

// ByteReader is the positional-read collaborator this package depends
// on (§4.2, §6). Implementations back onto the actual BigWig/BigBed
// file; opening that file and parsing its header are out of scope
// here.
type ByteReader interface {
	// ReadAt writes exactly length bytes, read from fileOffset in the
	// backing file, into buf starting at dstOffset. It returns a
	// non-nil error on any I/O failure, and returns ctx.Err() if ctx is
	// cancelled before or during the read.
	ReadAt(ctx context.Context, buf []byte, dstOffset int, length int, fileOffset uint64) error
}

// Decompressor inflates a single deflate stream. The core only depends
// on this interface; the algorithm itself is out of scope (§1).
type Decompressor interface {
	// Inflate decompresses src, appending the result to dst (which may
	// be nil), and returns the grown slice.
	Inflate(dst, src []byte) ([]byte, error)
}

// Header supplies the externally-parsed facts this package needs about
// one opened BigWig/BigBed file (§6).
type Header struct {
	CirTreeOffset uint64
	CirTreeLength uint64
	BigEndian     bool
	Compressed    bool
	BlockType     BlockType
	RefsByName    map[string]uint32
}

// Validate checks the InvalidArgument-class invariants reported
// synchronously at construction time (§7).
func (h Header) Validate() error {
	if h.CirTreeLength == 0 {
		return newError(KindInvalidArgument, errInvalidCirTreeLength)
	}
	return nil
}

var errInvalidCirTreeLength = newConstError("cirTreeLength must be nonzero")

// constError is a trivial comparable error string, used for the
// package's handful of static sentinel causes.
type constError string

func (e constError) Error() string { return string(e) }

func newConstError(s string) error { return constError(s) }
