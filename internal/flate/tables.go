package flate

import "sync"

const (
	maxNumLit  = 288 // literal/length alphabet, symbols 0-287 (286,287 unused)
	maxNumDist = 32  // distance alphabet, symbols 0-31 (30,31 unused)
	numCLCodes = 19  // code-length meta-alphabet, RFC 1951 section 3.2.7
	endOfBlock = 256
)

// codeOrder is the order the code-length meta-alphabet's own code lengths
// are transmitted in: RFC 1951 section 3.2.7.
var codeOrder = [numCLCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// buildBaseExtra generates a base/extra-bits table of the shape RFC 1951's
// length and distance tables share: delta entries with zero extra bits,
// then extra bits stepping up by one every delta entries, with bases formed
// by prefix-summing 1<<extra starting from first.
func buildBaseExtra(total, delta, first int) (base, extra []int) {
	extra = make([]int, total)
	for i := delta; i < total; i++ {
		extra[i] = (i - delta) / delta
	}
	base = make([]int, total)
	base[0] = first
	for i := 0; i+1 < total; i++ {
		base[i+1] = base[i] + (1 << extra[i])
	}
	return base, extra
}

var (
	// lengthBase/lengthExtra cover length symbols 257..285, indexed from 0.
	// Symbol 285 (index 28) is a special case: length is always exactly
	// 258 with no extra bits, overriding what the generic formula would
	// otherwise compute.
	lengthBase, lengthExtra = func() ([]int, []int) {
		base, extra := buildBaseExtra(29, 4, 3)
		extra[28] = 0
		base[28] = 258
		return base, extra
	}()

	// distBase/distExtra cover distance symbols 0..29.
	distBase, distExtra = buildBaseExtra(30, 2, 1)
)

var (
	fixedOnce         sync.Once
	fixedLiteralTree  huffmanTree
	fixedDistanceTree huffmanTree
)

// initFixedTrees builds the static trees RFC 1951 section 3.2.6 defines for
// BTYPE=1 blocks. Computed once and shared via sync.Once, since every
// BTYPE=1 block in every stream uses the identical fixed code.
func initFixedTrees() {
	fixedOnce.Do(func() {
		var lengths [maxNumLit]int
		for i := 0; i < 144; i++ {
			lengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			lengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			lengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			lengths[i] = 8
		}
		fixedLiteralTree.build(lengths[:])

		var distLengths [maxNumDist]int
		for i := 0; i < 30; i++ {
			distLengths[i] = 5
		}
		fixedDistanceTree.build(distLengths[:30])
	})
}
