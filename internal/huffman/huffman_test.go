package huffman

import "testing"

// fixedLiteralLengths builds RFC 1951 §3.2.6's fixed literal/length table:
// 144 symbols of length 8, 112 of length 9, 24 of length 7, 8 of length 8.
func fixedLiteralLengths() []int {
	lengths := make([]int, 288)
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
	return lengths
}

func TestBuildFixedLiteralTable(t *testing.T) {
	table, err := Build(fixedLiteralLengths())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Symbol 0 has length 8, canonical code 0b00110000 (48) per the
	// standard fixed-table assignment. Decode takes the already-reversed
	// key, which carries the code in its top 8 bits, so code<<7 must
	// decode to symbol 0.
	code := uint32(0x30)
	key := code << (MaxBits - 8)
	e := table.Decode(key)
	if e.Symbol != 0 || e.Length != 8 {
		t.Errorf("Decode(symbol0 key) = {%d,%d}, want {0,8}", e.Symbol, e.Length)
	}
}

func TestBuildRejectsOverSubscribed(t *testing.T) {
	// Three symbols claiming the two length-1 slots: three codes of
	// length 1 cannot exist (only 2 fit).
	lengths := []int{1, 1, 1}
	if _, err := Build(lengths); err != ErrInvalidTable {
		t.Errorf("Build(over-subscribed) = %v, want ErrInvalidTable", err)
	}
}

func TestBuildRejectsIncomplete(t *testing.T) {
	// A single length-1 code leaves the tree incomplete (one leaf unused).
	lengths := []int{1, 0}
	if _, err := Build(lengths); err != ErrInvalidTable {
		t.Errorf("Build(incomplete) = %v, want ErrInvalidTable", err)
	}
}

func TestBuildTwoSymbolComplete(t *testing.T) {
	lengths := []int{1, 1}
	table, err := Build(lengths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e0 := table.Decode(0 << (MaxBits - 1))
	e1 := table.Decode(1 << (MaxBits - 1))
	if e0.Symbol != 0 || e0.Length != 1 {
		t.Errorf("symbol for code 0 = %+v, want {0,1}", e0)
	}
	if e1.Symbol != 1 || e1.Length != 1 {
		t.Errorf("symbol for code 1 = %+v, want {1,1}", e1)
	}
}

func TestBuildDistanceDegenerateSingleSymbol(t *testing.T) {
	lengths := make([]int, 30)
	lengths[5] = 1
	table, err := BuildDistance(lengths)
	if err != nil {
		t.Fatalf("BuildDistance: %v", err)
	}
	// Every possible key must decode to symbol 5, consuming 1 bit.
	for _, k := range []uint32{0, 1, 1 << 14, (1 << 15) - 1} {
		e := table.Decode(k)
		if e.Symbol != 5 || e.Length != 1 {
			t.Errorf("Decode(%#x) = %+v, want {5,1}", k, e)
		}
	}
}

func TestBuildDistanceAllZeroIsLazilyInvalid(t *testing.T) {
	lengths := make([]int, 30)
	table, err := BuildDistance(lengths)
	if err != nil {
		t.Fatalf("BuildDistance(all-zero) returned error at build time: %v", err)
	}
	e := table.Decode(0x1234)
	if e.Length != 0 {
		t.Errorf("Decode on empty distance table = %+v, want Length 0 (invalid)", e)
	}
}

func TestBuildDistanceTwoSymbols(t *testing.T) {
	lengths := make([]int, 30)
	lengths[0] = 1
	lengths[1] = 1
	table, err := BuildDistance(lengths)
	if err != nil {
		t.Fatalf("BuildDistance: %v", err)
	}
	e0 := table.Decode(0 << (MaxBits - 1))
	e1 := table.Decode(1 << (MaxBits - 1))
	if e0.Symbol != 0 || e1.Symbol != 1 {
		t.Errorf("two-symbol distance table decoded {%d,%d}, want {0,1}", e0.Symbol, e1.Symbol)
	}
}

func TestBuildRejectsLengthOutOfRange(t *testing.T) {
	if _, err := Build([]int{16}); err != ErrInvalidTable {
		t.Errorf("Build(length 16) = %v, want ErrInvalidTable", err)
	}
	if _, err := Build([]int{-1}); err != ErrInvalidTable {
		t.Errorf("Build(negative length) = %v, want ErrInvalidTable", err)
	}
}

func TestReverse15(t *testing.T) {
	tests := []struct{ in, want uint32 }{
		{0, 0},
		{1, 1 << 14},
		{1 << 14, 1},
		{0x7fff, 0x7fff},
	}
	for _, tt := range tests {
		if got := Reverse15(tt.in); got != tt.want {
			t.Errorf("Reverse15(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
