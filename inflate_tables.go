package png

import "github.com/haikusw/png/internal/huffman"

// codeLengthOrder is the order in which the 19 code-length alphabet's own
// code lengths are transmitted in a dynamic block header (RFC 1951
// §3.2.7), grounded on the decade/permutation arithmetic in
// _examples/other_examples's stdlib-flate generator reference.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

const (
	codeLengthLiteralMax = 15 // symbols 0..15: literal code length
	codeLengthRepeat     = 16 // repeat previous length 3-6 times (2 extra bits)
	codeLengthZeros3     = 17 // repeat zero length 3-10 times (3 extra bits)
	codeLengthZeros7     = 18 // repeat zero length 11-138 times (7 extra bits)
)

// decade gives, for each run-length / distance symbol
// above the literal minimum, the number of extra bits to read and the base
// value to add them to, per RFC 1951 §3.2.5.
type decade struct {
	extraBits int
	base      int
}

// lengthDecades covers symbols 257..285 (index 0 = symbol 257).
var lengthDecades = [29]decade{
	{0, 3}, {0, 4}, {0, 5}, {0, 6}, {0, 7}, {0, 8}, {0, 9}, {0, 10},
	{1, 11}, {1, 13}, {1, 15}, {1, 17},
	{2, 19}, {2, 23}, {2, 27}, {2, 31},
	{3, 35}, {3, 43}, {3, 51}, {3, 59},
	{4, 67}, {4, 83}, {4, 99}, {4, 115},
	{5, 131}, {5, 163}, {5, 195}, {5, 227},
	{0, 258},
}

// distDecades covers the 30 valid distance symbols.
var distDecades = [30]decade{
	{0, 1}, {0, 2}, {0, 3}, {0, 4},
	{1, 5}, {1, 7},
	{2, 9}, {2, 13},
	{3, 17}, {3, 25},
	{4, 33}, {4, 49},
	{5, 65}, {5, 97},
	{6, 129}, {6, 193},
	{7, 257}, {7, 385},
	{8, 513}, {8, 769},
	{9, 1025}, {9, 1537},
	{10, 2049}, {10, 3073},
	{11, 4097}, {11, 6145},
	{12, 8193}, {12, 12289},
	{13, 16385}, {13, 24577},
}

const (
	endOfBlockSymbol = 256
	runLiteralCount  = 288 // 286 valid + 2 reserved, per spec's alphabet note
	distanceCount    = 32  // 30 valid + 2 reserved padding entries
)

// fixedRunLiteralTable and fixedDistanceTable are the static Huffman tables
// used by BTYPE=01 (fixed Huffman) blocks, built once at package init.
var fixedRunLiteralTable *huffman.Table
var fixedDistanceTable *huffman.Table

func init() {
	lengths := make([]int, runLiteralCount)
	i := 0
	for ; i < 144; i++ {
		lengths[i] = 8
	}
	for ; i < 256; i++ {
		lengths[i] = 9
	}
	for ; i < 280; i++ {
		lengths[i] = 7
	}
	for ; i < 288; i++ {
		lengths[i] = 8
	}
	var err error
	fixedRunLiteralTable, err = huffman.Build(lengths)
	if err != nil {
		panic("png: fixed run/literal table failed to build: " + err.Error())
	}

	// RFC 1951 §3.2.6: fixed-block distance codes are the raw 5-bit binary
	// value, all 32 patterns assigned (symbols 30-31 are reserved and must
	// never be produced by a conformant encoder, but the tree itself is
	// only complete -- decodable -- if all 32 leaves exist).
	distLengths := make([]int, distanceCount)
	for i := range distLengths {
		distLengths[i] = 5
	}
	fixedDistanceTable, err = huffman.BuildDistance(distLengths)
	if err != nil {
		panic("png: fixed distance table failed to build: " + err.Error())
	}
}
