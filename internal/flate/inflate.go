// Copyright Elliot Nunn. Portions copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

import "fmt"

// Inflate decompresses a complete raw DEFLATE stream (no zlib or gzip
// wrapper) and returns the uncompressed bytes. expectedSize, if positive, is
// used as an allocation hint (and the exact final capacity when it turns
// out to be accurate); a non-positive value means the caller doesn't know
// the output size, in which case a multiple of len(compressed) is used as a
// starting guess. Either way the returned slice's length is always exactly
// the number of bytes produced, never padded.
func Inflate(compressed []byte, expectedSize int) (out []byte, err error) {
	initFixedTrees()

	capHint := expectedSize
	if capHint <= 0 {
		capHint = 7 * len(compressed)
		if capHint < 64 {
			capHint = 64
		}
	}

	f := &inflater{
		br:  newBitReader(compressed),
		out: make([]byte, 0, capHint),
	}

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = e
			out = nil
		}
	}()

	for {
		final := f.block()
		if final {
			break
		}
	}
	return f.out, nil
}

type inflater struct {
	br  *bitReader
	out []byte
}

// block decodes one DEFLATE block, appending its output to f.out, and
// reports whether BFINAL was set.
func (f *inflater) block() (final bool) {
	final = f.br.getBit() == 1
	btype := f.br.readBits(2, 0)

	switch btype {
	case 0:
		f.storedBlock()
	case 1:
		f.huffmanBlock(&fixedLiteralTree, &fixedDistanceTree)
	case 2:
		lit, dist := f.readDynamicTrees()
		f.huffmanBlock(lit, dist)
	default:
		panic(fmt.Errorf("%w: reserved block type 3", ErrCorrupt))
	}
	return final
}

// storedBlock implements BTYPE 0: after the 3 header bits, align to a byte
// boundary, read LEN and its ones'-complement NLEN, and copy LEN bytes
// verbatim.
func (f *inflater) storedBlock() {
	f.br.alignToByte()
	lenLo, lenHi := f.br.readByte(), f.br.readByte()
	nlenLo, nlenHi := f.br.readByte(), f.br.readByte()
	n := int(lenLo) | int(lenHi)<<8
	nn := int(nlenLo) | int(nlenHi)<<8
	if uint16(nn) != uint16(^uint16(n)) {
		panic(fmt.Errorf("%w: stored-block length complement mismatch", ErrCorrupt))
	}
	for i := 0; i < n; i++ {
		f.out = append(f.out, f.br.readByte())
	}
}

// readDynamicTrees implements BTYPE 2's header: HLIT/HDIST/HCLEN counts,
// the code-length meta-alphabet, and the run-length-encoded literal and
// distance code lengths (meta-symbols 16/17/18), per RFC 1951 section
// 3.2.7.
func (f *inflater) readDynamicTrees() (lit, dist *huffmanTree) {
	hlit := int(f.br.readBits(5, 257))
	hdist := int(f.br.readBits(5, 1))
	hclen := int(f.br.readBits(4, 4))

	var clLengths [numCLCodes]int
	for i := 0; i < hclen; i++ {
		clLengths[codeOrder[i]] = int(f.br.readBits(3, 0))
	}

	var clTree huffmanTree
	clTree.build(clLengths[:])

	total := hlit + hdist
	lengths := make([]int, total)
	for i := 0; i < total; {
		sym := clTree.decodeSymbol(f.br)
		switch {
		case sym < 16:
			lengths[i] = sym
			i++
		case sym == 16:
			if i == 0 {
				panic(fmt.Errorf("%w: repeat code with no previous length", ErrCorrupt))
			}
			rep := int(f.br.readBits(2, 3))
			i = fillRun(lengths, i, rep, lengths[i-1])
		case sym == 17:
			rep := int(f.br.readBits(3, 3))
			i = fillRun(lengths, i, rep, 0)
		case sym == 18:
			rep := int(f.br.readBits(7, 11))
			i = fillRun(lengths, i, rep, 0)
		default:
			panic(fmt.Errorf("%w: invalid code-length symbol %d", ErrCorrupt, sym))
		}
	}

	lit = new(huffmanTree)
	lit.build(lengths[:hlit])
	dist = new(huffmanTree)
	dist.build(lengths[hlit:])
	return lit, dist
}

func fillRun(lengths []int, i, rep, value int) int {
	if i+rep > len(lengths) {
		panic(fmt.Errorf("%w: code-length run overruns table", ErrCorrupt))
	}
	for j := 0; j < rep; j++ {
		lengths[i] = value
		i++
	}
	return i
}

// huffmanBlock decodes a block body (BTYPE 1 or 2) using the given
// literal/length and distance trees, resolving every length/distance
// back-reference against f.out as it goes.
func (f *inflater) huffmanBlock(lit, dist *huffmanTree) {
	for {
		sym := lit.decodeSymbol(f.br)
		switch {
		case sym < 256:
			f.out = append(f.out, byte(sym))
		case sym == endOfBlock:
			return
		case sym < maxNumLit:
			idx := sym - 257
			if idx < 0 || idx >= len(lengthBase) {
				panic(fmt.Errorf("%w: invalid length symbol %d", ErrCorrupt, sym))
			}
			length := int(f.br.readBits(uint(lengthExtra[idx]), uint32(lengthBase[idx])))

			distSym := dist.decodeSymbol(f.br)
			if distSym < 0 || distSym >= len(distBase) {
				panic(fmt.Errorf("%w: invalid distance symbol %d", ErrCorrupt, distSym))
			}
			distance := int(f.br.readBits(uint(distExtra[distSym]), uint32(distBase[distSym])))

			if distance > len(f.out) {
				panic(fmt.Errorf("%w: back-reference distance %d exceeds output so far (%d)", ErrCorrupt, distance, len(f.out)))
			}

			// Copy byte-by-byte, not via a pre-computed slice, so that
			// self-overlapping copies (distance < length) see bytes this
			// same copy has already emitted.
			for i := 0; i < length; i++ {
				f.out = append(f.out, f.out[len(f.out)-distance])
			}
		default:
			panic(fmt.Errorf("%w: invalid literal/length symbol %d", ErrCorrupt, sym))
		}
	}
}
