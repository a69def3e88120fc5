// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipvault

import "errors"

// Sentinel errors, wrapped with fmt.Errorf at the point they're returned so
// callers can always recover one of these with errors.Is, regardless of how
// deep in the parser or inflater it originated.
var (
	// ErrMalformedArchive covers a missing EOCD signature, a bad local-file
	// header signature, or a central directory that runs past the buffer.
	ErrMalformedArchive = errors.New("zipvault: malformed archive")

	// ErrUnsupportedCompression is returned when a member's compression
	// method is neither 0 (stored) nor 8 (deflate).
	ErrUnsupportedCompression = errors.New("zipvault: unsupported compression method")

	// ErrCorruptDeflate covers a reserved DEFLATE block type, a stored-block
	// length/complement mismatch, or a stream that runs out of input.
	ErrCorruptDeflate = errors.New("zipvault: corrupt deflate stream")

	// ErrChecksumMismatch is returned when the computed CRC-32 of the
	// decompressed output disagrees with the value stored in the archive.
	// Suppressible per-call with the SkipCRCValidation option.
	ErrChecksumMismatch = errors.New("zipvault: checksum mismatch")

	// ErrSizeMismatch is returned when the decompressed length disagrees
	// with the declared uncompressed size. Suppressible per-call with the
	// SkipSizeValidation option.
	ErrSizeMismatch = errors.New("zipvault: size mismatch")

	// ErrIsADirectory is returned by Extract when asked to extract a
	// directory entry.
	ErrIsADirectory = errors.New("zipvault: entry is a directory")

	// ErrNotADirectory is returned by ListDirectory when the named entry
	// exists but is a file.
	ErrNotADirectory = errors.New("zipvault: entry is not a directory")

	// ErrEntryNotFound is returned by FindEntry-based operations when no
	// entry matches the requested path.
	ErrEntryNotFound = errors.New("zipvault: entry not found")
)
