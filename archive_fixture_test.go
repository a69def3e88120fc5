// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipvault

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// fixtureEntry describes one member of a hand-built test archive. Building
// archives by hand byte-by-byte (rather than shelling out to a zip tool or
// relying on archive/zip's writer for the container format) keeps every
// test fully in control of the exact bytes zipvault's parser sees, the
// same way internal/flate's tests hand-assemble raw DEFLATE bit patterns.
type fixtureEntry struct {
	name        string
	data        []byte // uncompressed content; ignored (treated as empty) for directories
	method      uint16 // 0 = store, 8 = deflate
	dir         bool
	descriptor  bool // use the streaming data-descriptor variant
	descSig     bool // when descriptor is set, include the PK\x07\x08 signature
	badCompress []byte // when non-nil, used verbatim as the "compressed" payload instead of compressing data
	crcOverride *uint32
}

// deflateRaw compresses data into a raw (headerless) DEFLATE stream using
// the standard library's compressor, which zipvault's from-scratch
// internal/flate decoder must be able to decode since both implement
// RFC 1951.
func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}
	return buf.Bytes()
}

// buildArchive assembles a complete ZIP archive image (local headers, data,
// central directory, EOCD) from the given fixture entries.
func buildArchive(t *testing.T, entries []fixtureEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	type built struct {
		name           string
		crc            uint32
		compressedSize uint32
		uncompressed   uint32
		localOffset    uint32
		method         uint16
		flags          uint16
	}
	var all []built

	for _, e := range entries {
		localOffset := uint32(buf.Len())
		name := e.name

		var crc uint32
		var compressed []byte
		var uncompressedSize uint32
		if e.dir {
			compressed = nil
			uncompressedSize = 0
			crc = 0
		} else {
			switch {
			case e.badCompress != nil:
				compressed = e.badCompress
				uncompressedSize = uint32(len(e.data))
			case e.method == 8:
				compressed = deflateRaw(t, e.data)
				uncompressedSize = uint32(len(e.data))
			default:
				compressed = e.data
				uncompressedSize = uint32(len(e.data))
			}
			crc = crc32.ChecksumIEEE(e.data)
		}
		if e.crcOverride != nil {
			crc = *e.crcOverride
		}

		flags := uint16(0)
		if e.descriptor {
			flags |= 0x0008
		}

		// Local file header.
		var hdr [30]byte
		binary.LittleEndian.PutUint32(hdr[0:], 0x04034b50)
		binary.LittleEndian.PutUint16(hdr[4:], 20) // version needed
		binary.LittleEndian.PutUint16(hdr[6:], flags)
		binary.LittleEndian.PutUint16(hdr[8:], e.method)
		binary.LittleEndian.PutUint16(hdr[10:], 0) // mod time
		binary.LittleEndian.PutUint16(hdr[12:], 0) // mod date
		if !e.descriptor {
			binary.LittleEndian.PutUint32(hdr[14:], crc)
			binary.LittleEndian.PutUint32(hdr[18:], uint32(len(compressed)))
			binary.LittleEndian.PutUint32(hdr[22:], uncompressedSize)
		}
		binary.LittleEndian.PutUint16(hdr[26:], uint16(len(name)))
		buf.Write(hdr[:])
		buf.WriteString(name)
		buf.Write(compressed)

		if e.descriptor {
			if e.descSig {
				var sig [4]byte
				binary.LittleEndian.PutUint32(sig[:], 0x08074b50)
				buf.Write(sig[:])
			}
			var desc [12]byte
			binary.LittleEndian.PutUint32(desc[0:], crc)
			binary.LittleEndian.PutUint32(desc[4:], uint32(len(compressed)))
			binary.LittleEndian.PutUint32(desc[8:], uncompressedSize)
			buf.Write(desc[:])
		}

		all = append(all, built{
			name: name, crc: crc, compressedSize: uint32(len(compressed)),
			uncompressed: uncompressedSize, localOffset: localOffset,
			method: e.method, flags: flags,
		})
	}

	cdStart := buf.Len()
	for _, b := range all {
		var rec [46]byte
		binary.LittleEndian.PutUint32(rec[0:], 0x02014b50)
		binary.LittleEndian.PutUint16(rec[4:], 20) // version made by
		binary.LittleEndian.PutUint16(rec[6:], 20) // version needed
		binary.LittleEndian.PutUint16(rec[8:], b.flags)
		binary.LittleEndian.PutUint16(rec[10:], b.method)
		binary.LittleEndian.PutUint16(rec[12:], 0) // mod time
		binary.LittleEndian.PutUint16(rec[14:], 0) // mod date
		binary.LittleEndian.PutUint32(rec[16:], b.crc)
		binary.LittleEndian.PutUint32(rec[20:], b.compressedSize)
		binary.LittleEndian.PutUint32(rec[24:], b.uncompressed)
		binary.LittleEndian.PutUint16(rec[28:], uint16(len(b.name)))
		binary.LittleEndian.PutUint32(rec[42:], b.localOffset)
		buf.Write(rec[:])
		buf.WriteString(b.name)
	}
	cdSize := buf.Len() - cdStart

	var eocd [22]byte
	binary.LittleEndian.PutUint32(eocd[0:], 0x06054b50)
	binary.LittleEndian.PutUint16(eocd[8:], uint16(len(all)))
	binary.LittleEndian.PutUint16(eocd[10:], uint16(len(all)))
	binary.LittleEndian.PutUint32(eocd[12:], uint32(cdSize))
	binary.LittleEndian.PutUint32(eocd[16:], uint32(cdStart))
	buf.Write(eocd[:])

	return buf.Bytes()
}
