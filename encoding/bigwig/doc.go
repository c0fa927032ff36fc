// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bigwig implements the block-view query engine shared by the
// BigWig and BigBed indexed genomic track formats: CIR-tree traversal,
// read coalescing, and per-block-type decoding. File-header parsing,
// the backing random-access file, and decompression internals are
// external collaborators; this package only depends on their
// interfaces.
package bigwig
