// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigwig

import "fmt"

// ErrorKind classifies a query-time failure per §7. Cancelled is never
// wrapped in an Error and never reaches Observer.Error; it is handled
// internally by suppressing further callbacks.
type ErrorKind int

const (
	// KindInvalidArgument is reported synchronously at construction
	// time, never through an Observer.
	KindInvalidArgument ErrorKind = iota
	// KindIoFailure indicates the backing ByteReader returned an error.
	KindIoFailure
	// KindDecompressionFailure indicates inflate failed on a block.
	KindDecompressionFailure
	// KindParseFailure indicates on-disk bytes did not match the
	// declared CIR tree or block layout.
	KindParseFailure
	// KindTraversalIncomplete indicates the traversal's outstanding
	// counter failed to drain to zero.
	KindTraversalIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindIoFailure:
		return "IoFailure"
	case KindDecompressionFailure:
		return "DecompressionFailure"
	case KindParseFailure:
		return "ParseFailure"
	case KindTraversalIncomplete:
		return "TraversalIncomplete"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error wraps an underlying cause with the ErrorKind a QueryEngine
// classified it as. Callers recover the kind with errors.As.
type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("bigwig: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error, satisfying the fmt.Stringer-friendly
// construction used throughout this package's error paths.
func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}
