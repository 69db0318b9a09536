// Package huffman implements canonical Huffman table construction and
// decoding for the DEFLATE bitstream: code-length list validation, a
// level-indexed symbol table, and a flat decode lookup table keyed by the
// next 15 bits (reversed) for O(1) decode.
//
// The spec describes a two-segment LUT (256 short-code slots plus a
// variable-size tail addressed via fence/fold arithmetic) as an
// optimization; this package instead materializes the full 32768-entry
// flat table the design notes explicitly permit as a substitute ("an
// implementer may substitute a full 32768-entry flat LUT if memory
// allows... but must preserve (symbol, length) semantics and O(1)
// decode"), trading table memory for one less addressing scheme to get
// exactly right.
package huffman

import "errors"

// MaxBits is the longest canonical code length DEFLATE allows.
const MaxBits = 15

// TableSize is the size of the flat decode LUT (one entry per possible
// 15-bit reversed bit window).
const TableSize = 1 << MaxBits

// ErrInvalidTable is returned when a code-length list does not form a
// valid (over- or under-subscribed) canonical Huffman tree.
var ErrInvalidTable = errors.New("huffman: invalid table")

// Entry is one decode LUT slot: the symbol encoded by this bit pattern and
// the number of bits its code consumes. Length == 0 marks a pattern with
// no valid code (only reachable via the distance alphabet's "no codes
// used" degenerate case; see BuildDistance).
type Entry struct {
	Symbol uint16
	Length uint8
}

// Table is a materialized canonical Huffman decode table.
type Table struct {
	entries []Entry
}

// Decode looks up the symbol for a 15-bit reversed key k (low 15 bits
// significant). The caller consumes entry.Length bits of input on success;
// Length == 0 means the key matches no valid code.
func (t *Table) Decode(k uint32) Entry {
	return t.entries[k&(TableSize-1)]
}

// Build constructs a canonical Huffman decode table from a list of
// per-symbol code lengths (0 = symbol absent, 1..MaxBits = code length).
// The list must form a complete binary tree (every leaf reachable, no
// over-subscription); anything else is ErrInvalidTable. Used for the
// code-length alphabet and the run/literal alphabet, both of which must
// always be complete per spec.
func Build(lengths []int) (*Table, error) {
	counts, err := countLengths(lengths)
	if err != nil {
		return nil, err
	}
	if !complete(counts) {
		return nil, ErrInvalidTable
	}
	return materialize(lengths, counts), nil
}

// BuildDistance is like Build but implements the spec's "Degenerate
// table" rule for the distance alphabet only: fewer than two symbols with
// nonzero length is not an error at build time.
//
//   - Zero nonzero-length symbols: every decode attempt against the
//     resulting table returns Length == 0 (invalid); the caller must
//     surface that as an error only if a distance symbol is actually
//     decoded, per the spec property "all-zero distance lengths reject
//     only when a distance symbol is actually invoked."
//   - Exactly one nonzero-length symbol: that symbol is synthesized as if
//     it had two length-1 codes (0 and 1), so any single bit read decodes
//     it — "the single symbol repeated twice."
//   - Two or more: must form a complete tree like Build.
func BuildDistance(lengths []int) (*Table, error) {
	counts, err := countLengths(lengths)
	if err != nil {
		return nil, err
	}

	nonzero, only := 0, -1
	for i, l := range lengths {
		if l > 0 {
			nonzero++
			only = i
		}
	}

	switch nonzero {
	case 0:
		return &Table{entries: make([]Entry, TableSize)}, nil
	case 1:
		return materializeDuplicated(only), nil
	default:
		if !complete(counts) {
			return nil, ErrInvalidTable
		}
		return materialize(lengths, counts), nil
	}
}

func countLengths(lengths []int) ([MaxBits + 1]int, error) {
	var counts [MaxBits + 1]int
	for _, l := range lengths {
		if l < 0 || l > MaxBits {
			return counts, ErrInvalidTable
		}
		counts[l]++
	}
	return counts, nil
}

// complete runs the spec's size() interior-node accounting: start with 1
// interior node at level 0, and at each level interior = 2*interior -
// count[level]. Over-subscription (interior < 0) is always invalid;
// completeness requires interior == 0 by level 15.
func complete(counts [MaxBits + 1]int) bool {
	interior := 1
	for i := 1; i <= MaxBits; i++ {
		interior = 2*interior - counts[i]
		if interior < 0 {
			return false
		}
	}
	return interior == 0
}

// materialize assigns canonical codes (MSB-first, RFC 1951 §3.2.2) in
// increasing symbol order and fills the flat LUT.
func materialize(lengths []int, counts [MaxBits + 1]int) *Table {
	counts[0] = 0 // absent symbols take no code space
	var nextCode [MaxBits + 2]int
	code := 0
	for bits := 1; bits <= MaxBits; bits++ {
		code = (code + counts[bits-1]) << 1
		nextCode[bits] = code
	}

	t := &Table{entries: make([]Entry, TableSize)}
	for symbol, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		fill(t, uint16(symbol), uint8(l), uint32(c))
	}
	return t
}

// materializeDuplicated fills a 2-code degenerate tree where both length-1
// codes (0 and 1) map to the same symbol.
func materializeDuplicated(symbol int) *Table {
	t := &Table{entries: make([]Entry, TableSize)}
	fill(t, uint16(symbol), 1, 0)
	fill(t, uint16(symbol), 1, 1)
	return t
}

// fill replicates (symbol, length) across every 15-bit key whose top
// `length` bits equal the canonical code value. The bit reader presents
// keys already reversed (see Reverse15), so
// a code read first-bit-first in the stream lands in the high bits of the
// reversed key in the same order it was transmitted.
func fill(t *Table, symbol uint16, length uint8, code uint32) {
	shift := uint(MaxBits) - uint(length)
	base := code << shift
	count := uint32(1) << shift
	e := Entry{Symbol: symbol, Length: length}
	for x := uint32(0); x < count; x++ {
		t.entries[base+x] = e
	}
}

// Reverse15 reverses the low 15 bits of v (bits above 15 are ignored),
// matching the spec's "reverse to K = reverse(W)" decode step.
func Reverse15(v uint32) uint32 {
	var r uint32
	v &= (1 << MaxBits) - 1
	for i := 0; i < MaxBits; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
