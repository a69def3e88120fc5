package flate

// maxCodeLen is one more than the longest code length (15) DEFLATE's
// canonical Huffman codes ever use (RFC 1951 §3.2.2), so that counts can be
// indexed directly by code length 0..15.
const maxCodeLen = 16

// huffmanTree is a decoded canonical prefix code, kept as two small flat
// slices rather than a pointer-linked binary tree since decoding is hot and
// the arrays stay cache-resident: counts is a histogram of how many codes
// exist at each length, and symbols holds every symbol ordered first by
// code length and then by symbol value, which is exactly the canonical
// order RFC 1951 assigns codes in.
type huffmanTree struct {
	counts  [maxCodeLen]int
	symbols []int
}

// build turns a list of per-symbol code lengths (0 meaning "this symbol is
// unused") into the counts/symbols tables above.
func (h *huffmanTree) build(lengths []int) {
	for i := range h.counts {
		h.counts[i] = 0
	}
	for _, n := range lengths {
		if n > 0 {
			h.counts[n]++
		}
	}
	h.counts[0] = 0

	var offsets [maxCodeLen]int
	for n := 1; n < maxCodeLen; n++ {
		offsets[n] = offsets[n-1] + h.counts[n-1]
	}

	total := 0
	for _, c := range h.counts {
		total += c
	}
	if cap(h.symbols) < total {
		h.symbols = make([]int, total)
	} else {
		h.symbols = h.symbols[:total]
	}

	for sym, n := range lengths {
		if n == 0 {
			continue
		}
		h.symbols[offsets[n]] = sym
		offsets[n]++
	}
}

// decodeSymbol reads one canonical Huffman symbol from br according to h.
// This is the classic counts/symbols decode (the same shape used by
// Mark Adler's puff.c and by Jorgen Ibsen's tinf, both representative of how
// this corpus's own blast-style decoders walk a canonical code): accumulate
// one bit at a time into cur, add the number of codes of the current length
// to sum (so sum counts every code of this length or shorter), and subtract
// that same count from cur. Once cur goes negative the code has this
// length; cur plus the count is the symbol's rank within its length, so
// sum+cur indexes directly into symbols.
func (h *huffmanTree) decodeSymbol(br *bitReader) int {
	sum, cur := 0, 0
	for length := 1; length < maxCodeLen; length++ {
		cur = cur<<1 | int(br.getBit())
		sum += h.counts[length]
		cur -= h.counts[length]
		if cur < 0 {
			return h.symbols[sum+cur]
		}
	}
	panic(ErrCorrupt)
}
