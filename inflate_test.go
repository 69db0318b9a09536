package png

import (
	"bytes"
	"testing"
)

// bitWriter is a minimal test-only LSB-first bit packer mirroring the
// layout internal/bitio.Reader expects: the first bit written lands in
// bit 0 of the first byte, matching RFC 1951's "packed starting with the
// least-significant bit" rule for ordinary fields.
type bitWriter struct {
	buf    []byte
	bitPos uint
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		if w.bitPos == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
			w.buf[len(w.buf)-1] |= byte(1) << w.bitPos
		}
		w.bitPos = (w.bitPos + 1) % 8
	}
}

// writeCode packs a canonical Huffman code MSB-first: RFC 1951 §3.1.1,
// "Huffman codes are packed starting with the most-significant bit of the
// code."
func (w *bitWriter) writeCode(code uint32, length int) {
	for i := length - 1; i >= 0; i-- {
		w.writeBits((code>>uint(i))&1, 1)
	}
}

func (w *bitWriter) align() { w.bitPos = 0 }

func (w *bitWriter) bytes() []byte { return w.buf }

// zlibHeader is a constant, valid (CM=8, CINFO=7, FDICT=0) RFC 1950 header.
func (w *bitWriter) zlibHeader() {
	w.writeBits(0x78, 8)
	w.writeBits(0x9c, 8)
}

func adler32Ref(data []byte) uint32 {
	const mod = 65521
	a, b := uint32(1), uint32(0)
	for _, c := range data {
		a = (a + uint32(c)) % mod
		b = (b + a) % mod
	}
	return b<<16 | a
}

// writeChecksum byte-aligns and writes the big-endian Adler-32 trailer
// (RFC 1950 §2.3 places it on a byte boundary).
func (w *bitWriter) writeChecksum(data []byte) {
	w.align()
	sum := adler32Ref(data)
	w.writeBits((sum>>24)&0xff, 8)
	w.writeBits((sum>>16)&0xff, 8)
	w.writeBits((sum>>8)&0xff, 8)
	w.writeBits(sum&0xff, 8)
}

// fixedLiteralCode returns the RFC 1951 §3.2.6 fixed-table code and length
// for a run/literal symbol 0..287.
func fixedLiteralCode(symbol int) (code uint32, length int) {
	switch {
	case symbol < 144:
		return uint32(48 + symbol), 8
	case symbol < 256:
		return uint32(400 + (symbol - 144)), 9
	case symbol < 280:
		return uint32(symbol - 256), 7
	default:
		return uint32(192 + (symbol - 280)), 8
	}
}

// fixedDistanceCode returns the fixed-table code/length for distance
// symbol 0..29 (all length 5, assigned in index order).
func fixedDistanceCode(symbol int) (code uint32, length int) {
	return uint32(symbol), 5
}

func decodeAll(t *testing.T, inf *Inflator, chunks [][]byte) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	var lastErr error
	for _, chunk := range chunks {
		status, err := inf.Push(chunk)
		if err != nil {
			lastErr = err
			break
		}
		for inf.Retained() > 0 {
			b, ok := inf.Pull(1)
			if !ok {
				break
			}
			out.Write(b)
		}
		if status == StatusDone {
			break
		}
	}
	for inf.Retained() > 0 {
		b, ok := inf.Pull(1)
		if !ok {
			break
		}
		out.Write(b)
	}
	return out.Bytes(), lastErr
}

// TestStoredBlockHello is scenario E1: a single final stored block.
func TestStoredBlockHello(t *testing.T) {
	payload := []byte("Hello")
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1) // BFINAL
	w.writeBits(0, 2) // BTYPE=00 stored
	w.align()
	w.writeBits(uint32(len(payload)), 16)
	w.writeBits(uint32(len(payload))^0xffff, 16)
	for _, b := range payload {
		w.writeBits(uint32(b), 8)
	}
	w.align()
	w.writeChecksum(payload)

	inf := NewInflator()
	out, err := decodeAll(t, inf, [][]byte{w.bytes()})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if string(out) != "Hello" {
		t.Errorf("decoded = %q, want %q", out, "Hello")
	}
}

// TestFixedBlockHelloWorld is scenario E2: a fixed-Huffman block.
func TestFixedBlockHelloWorld(t *testing.T) {
	payload := []byte("Hello, World!")
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1) // BFINAL
	w.writeBits(1, 2) // BTYPE=01 fixed
	for _, b := range payload {
		code, length := fixedLiteralCode(int(b))
		w.writeCode(code, length)
	}
	eobCode, eobLen := fixedLiteralCode(256)
	w.writeCode(eobCode, eobLen)
	w.writeChecksum(payload)

	inf := NewInflator()
	out, err := decodeAll(t, inf, [][]byte{w.bytes()})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if string(out) != string(payload) {
		t.Errorf("decoded = %q, want %q", out, payload)
	}
}

// TestDynamicBlockRun is scenario E3: a dynamic-Huffman block whose
// run/literal alphabet has exactly three live symbols ('A', EOB, and the
// length-285 run code) and whose distance alphabet has exactly one live
// symbol, exercising the degenerate single-symbol distance table and the
// LZ77 overlap-copy path for a long run.
func TestDynamicBlockRun(t *testing.T) {
	// Code-length assignment: symbol 65 ('A') -> length 1, code 0.
	// symbol 256 (EOB) -> length 2, code 0b10. symbol 285 (run) -> length
	// 2, code 0b11. Verified complete: counts[1]=1, counts[2]=2;
	// interior = 2*1-1=1 at level1, 2*1-2=0 at level2.
	const hlit = 286
	const hdist = 1
	combined := make([]int, hlit+hdist)
	combined['A'] = 1
	combined[256] = 2
	combined[285] = 2
	combined[hlit+0] = 1 // the lone distance symbol (index 0, distance=1)

	// Code-length alphabet itself only ever emits values 0, 1, 2 (no RLE
	// needed): symbol0 -> length1/code0, symbol1 -> length2/code2,
	// symbol2 -> length2/code3 (same shape as above).
	clCode := map[int][2]uint32{
		0: {0, 1},
		1: {2, 2},
		2: {3, 2},
	}
	clLengths := make([]int, 19)
	clLengths[0], clLengths[1], clLengths[2] = 1, 2, 2

	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1) // BFINAL
	w.writeBits(2, 2) // BTYPE=10 dynamic
	w.writeBits(uint32(hlit-257), 5)
	w.writeBits(uint32(hdist-1), 5)
	w.writeBits(19-4, 4) // HCLEN = 19

	for _, sym := range codeLengthOrder {
		w.writeBits(uint32(clLengths[sym]), 3)
	}
	for _, v := range combined {
		cl := clCode[v]
		w.writeCode(cl[0], int(cl[1]))
	}

	// Body: literal 'A', then a length-285 (258, no extra bits) / distance-0
	// (1, no extra bits) back-reference replicating it 258 more times, then
	// EOB.
	litCode, litLen := uint32(0), 1
	w.writeCode(litCode, litLen)
	lengthCode, lengthLen := uint32(3), 2 // symbol 285: code 0b11
	w.writeCode(lengthCode, lengthLen)
	w.writeCode(0, 1) // distance symbol 0, either code bit selects it
	eobCode, eobLen := uint32(2), 2 // symbol 256: code 0b10
	w.writeCode(eobCode, eobLen)

	want := bytes.Repeat([]byte{'A'}, 259)
	w.writeChecksum(want)

	inf := NewInflator()
	out, err := decodeAll(t, inf, [][]byte{w.bytes()})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !bytes.Equal(out, want) {
		t.Errorf("decoded %d bytes, want %d bytes of 'A'", len(out), len(want))
	}
}

// TestChecksumCorruption is scenario E4: a structurally valid stream with
// a corrupted trailing Adler-32 must be rejected.
func TestChecksumCorruption(t *testing.T) {
	payload := []byte("Hello")
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1)
	w.writeBits(0, 2)
	w.align()
	w.writeBits(uint32(len(payload)), 16)
	w.writeBits(uint32(len(payload))^0xffff, 16)
	for _, b := range payload {
		w.writeBits(uint32(b), 8)
	}
	w.align()
	sum := adler32Ref(payload) ^ 0x1 // flip one bit
	w.writeBits((sum>>24)&0xff, 8)
	w.writeBits((sum>>16)&0xff, 8)
	w.writeBits((sum>>8)&0xff, 8)
	w.writeBits(sum&0xff, 8)

	inf := NewInflator()
	_, err := decodeAll(t, inf, [][]byte{w.bytes()})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidStreamChecksum {
		t.Fatalf("err = %v, want KindInvalidStreamChecksum", err)
	}
}

// TestInvalidDistanceReference is scenario E5: a back-reference whose
// distance exceeds the bytes produced so far must be rejected.
func TestInvalidDistanceReference(t *testing.T) {
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1)
	w.writeBits(1, 2) // fixed Huffman

	litCode, litLen := fixedLiteralCode('X')
	w.writeCode(litCode, litLen)

	lenCode, lenLen := fixedLiteralCode(257) // decade{0,3}: length 3
	w.writeCode(lenCode, lenLen)
	distCode, distLen := fixedDistanceCode(1) // decade{0,2}: distance 2
	w.writeCode(distCode, distLen)

	eobCode, eobLen := fixedLiteralCode(256)
	w.writeCode(eobCode, eobLen)

	inf := NewInflator()
	_, err := decodeAll(t, inf, [][]byte{w.bytes()})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidStringReference {
		t.Fatalf("err = %v, want KindInvalidStringReference", err)
	}
}

// TestIncrementalPushEquivalence feeds the same fixed-Huffman stream one
// byte at a time and expects the same result as a single Push.
func TestIncrementalPushEquivalence(t *testing.T) {
	payload := []byte("Hello, World!")
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1)
	w.writeBits(1, 2)
	for _, b := range payload {
		code, length := fixedLiteralCode(int(b))
		w.writeCode(code, length)
	}
	eobCode, eobLen := fixedLiteralCode(256)
	w.writeCode(eobCode, eobLen)
	w.writeChecksum(payload)
	data := w.bytes()

	chunks := make([][]byte, len(data))
	for i, b := range data {
		chunks[i] = []byte{b}
	}

	inf := NewInflator()
	out, err := decodeAll(t, inf, chunks)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if string(out) != string(payload) {
		t.Errorf("decoded = %q, want %q", out, payload)
	}
}

// TestInvalidStreamMethod rejects a CM value other than 8.
func TestInvalidStreamMethod(t *testing.T) {
	inf := NewInflator()
	_, err := inf.Push([]byte{0x77, 0x85})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidStreamMethod {
		t.Fatalf("err = %v, want KindInvalidStreamMethod", err)
	}
}

// TestInvalidHeaderCheckBits rejects a header whose FCHECK bits don't make
// (CMF*256+FLG) a multiple of 31.
func TestInvalidHeaderCheckBits(t *testing.T) {
	inf := NewInflator()
	_, err := inf.Push([]byte{0x78, 0x9d})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidStreamHeaderCheckBits {
		t.Fatalf("err = %v, want KindInvalidStreamHeaderCheckBits", err)
	}
}

// TestInvalidHuffmanRunLiteralSymbolCount rejects an HLIT raw value of 31
// (hlit = 288), which falls outside the spec's required 257..286 range.
func TestInvalidHuffmanRunLiteralSymbolCount(t *testing.T) {
	var w bitWriter
	w.zlibHeader()
	w.writeBits(1, 1)  // BFINAL
	w.writeBits(2, 2)  // BTYPE=10 dynamic
	w.writeBits(31, 5) // HLIT raw = 31 -> hlit = 288
	w.writeBits(0, 5)  // HDIST raw
	w.writeBits(0, 4)  // HCLEN raw
	// Pad with a few extra bytes of zeros so Avail(14) has real bits to see
	// regardless of where exactly the header check lands.
	w.writeBits(0, 16)

	inf := NewInflator()
	_, err := inf.Push(w.bytes())
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidHuffmanRunLiteralSymbolCount {
		t.Fatalf("err = %v, want KindInvalidHuffmanRunLiteralSymbolCount", err)
	}
	if perr.Extra != 288 {
		t.Errorf("Extra = %d, want 288", perr.Extra)
	}
}

// TestPresetDictionaryUnsupported rejects FDICT=1.
func TestPresetDictionaryUnsupported(t *testing.T) {
	// CMF=0x78 (30720 = 256*0x78); 30720 % 31 == 30, so FLG % 31 == 1
	// makes the sum a multiple of 31. FLG=0x20 satisfies that (32 % 31 ==
	// 1) and has the FDICT bit (0x20) set.
	inf := NewInflator()
	_, err := inf.Push([]byte{0x78, 0x20})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindUnexpectedStreamDictionary {
		t.Fatalf("err = %v, want KindUnexpectedStreamDictionary", err)
	}
}
