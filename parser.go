// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipvault

import (
	"encoding/binary"
	"fmt"
)

const (
	eocdSignature        = 0x06054b50
	centralDirSignature  = 0x02014b50
	localHeaderSignature = 0x04034b50
	dataDescSignature    = 0x08074b50

	eocdBaseLen  = 22
	maxCommentLn = 0xffff // largest possible archive comment, bounds the EOCD scan
)

// findEOCD locates the End-of-Central-Directory record by scanning
// backward from the end of buf. The scan is bounded to the last
// eocdBaseLen+maxCommentLn bytes (the largest an EOCD record plus comment
// can possibly be) rather than scanning unboundedly toward the start of the
// buffer, and at each candidate position the comment-length field is
// checked against the candidate's actual distance from the end of the
// buffer before it is accepted. This eliminates spurious matches inside
// member data on degenerate inputs without changing behavior for the common
// case of an archive with no comment, where the EOCD sits directly at
// len(buf)-22.
func findEOCD(buf []byte) (offset int, err error) {
	if len(buf) < eocdBaseLen {
		return 0, fmt.Errorf("%w: buffer shorter than an EOCD record", ErrMalformedArchive)
	}

	lo := len(buf) - eocdBaseLen - maxCommentLn
	if lo < 0 {
		lo = 0
	}
	hi := len(buf) - eocdBaseLen

	for pos := hi; pos >= lo; pos-- {
		if binary.LittleEndian.Uint32(buf[pos:]) != eocdSignature {
			continue
		}
		commentLen := int(binary.LittleEndian.Uint16(buf[pos+20:]))
		if pos+eocdBaseLen+commentLen != len(buf) {
			continue // signature coincidence: comment length doesn't reach end of buffer
		}
		return pos, nil
	}
	return 0, fmt.Errorf("%w: end-of-central-directory record not found", ErrMalformedArchive)
}

// parseCentralDirectory reads every central-directory record starting at
// cdOffset and returns one Entry per record, in on-disk order. It does not
// build the tree; that is buildTree's job.
func parseCentralDirectory(buf []byte, cdOffset int64, cdEntries int) ([]*Entry, error) {
	entries := make([]*Entry, 0, cdEntries)
	pos := cdOffset

	for i := 0; i < cdEntries; i++ {
		if pos < 0 || pos+46 > int64(len(buf)) {
			return nil, fmt.Errorf("%w: central directory record %d runs past end of buffer", ErrMalformedArchive, i)
		}
		rec := buf[pos:]
		if binary.LittleEndian.Uint32(rec) != centralDirSignature {
			return nil, fmt.Errorf("%w: bad central directory signature at record %d", ErrMalformedArchive, i)
		}

		timestamp := binary.LittleEndian.Uint32(rec[12:])
		crc := binary.LittleEndian.Uint32(rec[16:])
		size := int64(binary.LittleEndian.Uint32(rec[24:]))
		nameLen := int(binary.LittleEndian.Uint16(rec[28:]))
		extraLen := int(binary.LittleEndian.Uint16(rec[30:]))
		commentLen := int(binary.LittleEndian.Uint16(rec[32:]))
		localOffset := int64(binary.LittleEndian.Uint32(rec[42:]))

		recLen := int64(46 + nameLen + extraLen + commentLen)
		if pos+46+int64(nameLen) > int64(len(buf)) {
			return nil, fmt.Errorf("%w: central directory record %d name field runs past end of buffer", ErrMalformedArchive, i)
		}
		name := string(rec[46 : 46+nameLen])

		isDir := len(name) > 0 && name[len(name)-1] == '/'

		entries = append(entries, &Entry{
			Name:        name,
			Size:        size,
			Offset:      localOffset,
			Timestamp:   timestamp,
			CRC:         crc,
			IsDirectory: isDir,
		})

		pos += recLen
	}

	return entries, nil
}

// localFileHeader is the subset of a local-file header that Extract needs
// to locate and interpret a member's compressed payload.
type localFileHeader struct {
	flags            uint16
	method           uint16
	crc              uint32
	compressedSize   int64
	uncompressedSize int64
	dataOffset       int64
}

// readLocalFileHeader verifies the local-file-header signature at offset
// and decodes the fields Extract needs.
func readLocalFileHeader(buf []byte, offset int64) (localFileHeader, error) {
	if offset < 0 || offset+30 > int64(len(buf)) {
		return localFileHeader{}, fmt.Errorf("%w: local file header runs past end of buffer", ErrMalformedArchive)
	}
	hdr := buf[offset:]
	if binary.LittleEndian.Uint32(hdr) != localHeaderSignature {
		return localFileHeader{}, fmt.Errorf("%w: bad local file header signature", ErrMalformedArchive)
	}

	nameLen := int64(binary.LittleEndian.Uint16(hdr[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(hdr[28:]))
	dataOffset := offset + 30 + nameLen + extraLen
	if dataOffset > int64(len(buf)) {
		return localFileHeader{}, fmt.Errorf("%w: local file header name/extra runs past end of buffer", ErrMalformedArchive)
	}

	return localFileHeader{
		flags:            binary.LittleEndian.Uint16(hdr[6:]),
		method:           binary.LittleEndian.Uint16(hdr[8:]),
		crc:              binary.LittleEndian.Uint32(hdr[14:]),
		compressedSize:   int64(binary.LittleEndian.Uint32(hdr[18:])),
		uncompressedSize: int64(binary.LittleEndian.Uint32(hdr[22:])),
		dataOffset:       dataOffset,
	}, nil
}

const dataDescFlag = 0x0008

// resolveDataDescriptor handles the case where bit 3 of the general-purpose
// flags is set: the local header's size/CRC fields are zero and the true
// values trail the compressed stream in a data descriptor. It scans forward
// byte-by-byte from dataOffset, reading a u32 LE at each position, and stops
// at the first position that either carries the data-descriptor signature
// (descriptor starts here, with the signature as its first 4 bytes) or
// matches the entry's central-directory CRC (a signature-less descriptor,
// so the descriptor itself starts at that position). This heuristic can
// misidentify a descriptor if the stored CRC happens to recur inside the
// compressed bytes; log, if non-nil, receives a diagnostic when the
// CRC-coincidence branch (rather than the signature) is what terminates the
// scan.
func resolveDataDescriptor(buf []byte, dataOffset int64, wantCRC uint32, log diagLogger) (crc uint32, compressedSize, uncompressedSize int64, err error) {
	pos := dataOffset
	for {
		if pos+4 > int64(len(buf)) {
			return 0, 0, 0, fmt.Errorf("%w: data descriptor not found before end of buffer", ErrMalformedArchive)
		}
		v := binary.LittleEndian.Uint32(buf[pos:])
		if v == dataDescSignature {
			start := pos
			if start+16 > int64(len(buf)) {
				return 0, 0, 0, fmt.Errorf("%w: data descriptor runs past end of buffer", ErrMalformedArchive)
			}
			crc = binary.LittleEndian.Uint32(buf[start+4:])
			compressedSize = int64(binary.LittleEndian.Uint32(buf[start+8:]))
			uncompressedSize = int64(binary.LittleEndian.Uint32(buf[start+12:]))
			return crc, compressedSize, uncompressedSize, nil
		}
		if v == wantCRC {
			// No signature: the descriptor's first field is the CRC
			// itself, so the position where it matches is where the
			// descriptor begins.
			start := pos
			if start+12 > int64(len(buf)) {
				pos++
				continue
			}
			log.diag("data descriptor resolved by CRC coincidence, not signature", "offset", start)
			crc = binary.LittleEndian.Uint32(buf[start:])
			compressedSize = int64(binary.LittleEndian.Uint32(buf[start+4:]))
			uncompressedSize = int64(binary.LittleEndian.Uint32(buf[start+8:]))
			return crc, compressedSize, uncompressedSize, nil
		}
		pos++
	}
}
