package png

import (
	"github.com/haikusw/png/internal/bitio"
	"github.com/haikusw/png/internal/huffman"
	"github.com/haikusw/png/internal/window"
)

// Status reports the outcome of a Push call.
type Status int

const (
	// StatusNeedsMore means the Inflator consumed what it could and is
	// blocked waiting for more compressed bytes.
	StatusNeedsMore Status = iota
	// StatusProgress means decoding advanced (input was consumed, output
	// may or may not have been produced) but the stream is not yet
	// complete; more Push calls are expected.
	StatusProgress
	// StatusDone means the stream (including its trailing checksum) has
	// been fully consumed and validated.
	StatusDone
)

type inflateState int

const (
	stateStreamStart inflateState = iota
	stateBlockStart
	stateBlockTablesHeader
	stateBlockTablesCL
	stateBlockTablesLengths
	stateBlockUncompressedHeader
	stateBlockUncompressedData
	stateBlockCompressed
	stateStreamChecksum
	stateStreamEnd
)

// Inflator is an incremental, resumable zlib/DEFLATE decompressor (RFC
// 1950 + RFC 1951). Feed compressed bytes with Push as they arrive and
// drain decompressed bytes with Pull; it never blocks on a short read and
// never consumes a partial token.
type Inflator struct {
	r bitio.Reader
	w *window.Window

	state inflateState
	err   error

	finalBlock bool

	hlit, hdist, hclen int
	clLengths          [19]int
	clRead             int
	clTable            *huffman.Table

	combined    []int
	combinedPos int
	lastLen     int

	litTable  *huffman.Table
	distTable *huffman.Table

	uncompRemaining int
}

// NewInflator returns an Inflator ready to receive a zlib stream header.
func NewInflator() *Inflator {
	return &Inflator{state: stateStreamStart}
}

// Push feeds newly-arrived compressed bytes and advances decoding as far
// as possible. Once an error is returned, the Inflator must not be reused.
func (inf *Inflator) Push(data []byte) (Status, error) {
	if inf.err != nil {
		return StatusNeedsMore, inf.err
	}
	inf.r.Rebase(data)
	return inf.run()
}

// Pull returns exactly n decompressed bytes if that many are ready, or
// (nil, false) otherwise. Pulled bytes are removed from the Inflator's
// retained output.
func (inf *Inflator) Pull(n int) ([]byte, bool) {
	if inf.w == nil {
		return nil, n == 0
	}
	return inf.w.Release(n)
}

// Retained returns the number of decompressed bytes produced but not yet
// pulled.
func (inf *Inflator) Retained() int {
	if inf.w == nil {
		return 0
	}
	return inf.w.Retained()
}

func align8(p uint64) uint64 { return (p + 7) &^ 7 }

func (inf *Inflator) run() (Status, error) {
	progressed := false
	for {
		if inf.state == stateStreamEnd {
			return StatusDone, nil
		}
		ok, err := inf.step()
		if err != nil {
			inf.err = err
			return StatusNeedsMore, err
		}
		if !ok {
			if progressed {
				return StatusProgress, nil
			}
			return StatusNeedsMore, nil
		}
		progressed = true
	}
}

func (inf *Inflator) step() (bool, error) {
	switch inf.state {
	case stateStreamStart:
		return inf.stepStreamStart()
	case stateBlockStart:
		return inf.stepBlockStart()
	case stateBlockTablesHeader:
		return inf.stepBlockTablesHeader()
	case stateBlockTablesCL:
		return inf.stepBlockTablesCL()
	case stateBlockTablesLengths:
		return inf.stepBlockTablesLengths()
	case stateBlockUncompressedHeader:
		return inf.stepBlockUncompressedHeader()
	case stateBlockUncompressedData:
		return inf.stepBlockUncompressedData()
	case stateBlockCompressed:
		return inf.stepBlockCompressed()
	case stateStreamChecksum:
		return inf.stepStreamChecksum()
	}
	return false, nil
}

// stepStreamStart validates the 2-byte zlib header (RFC 1950 §2.2).
func (inf *Inflator) stepStreamStart() (bool, error) {
	if !inf.r.Avail(16) {
		return false, nil
	}
	pos := inf.r.Pos()
	cmf := inf.r.Get(pos, 8)
	flg := inf.r.Get(pos+8, 8)
	inf.r.SetPos(pos + 16)

	if cmf&0x0f != 8 {
		return false, errKind(KindInvalidStreamMethod)
	}
	cinfo := cmf >> 4
	if cinfo > 7 {
		return false, errKindExtra(KindInvalidStreamWindowSize, int(cinfo))
	}
	if (cmf*256+flg)%31 != 0 {
		return false, errKind(KindInvalidStreamHeaderCheckBits)
	}
	if flg&0x20 != 0 {
		return false, errKind(KindUnexpectedStreamDictionary)
	}

	inf.w = window.New(1 << (cinfo + 8))
	inf.state = stateBlockStart
	return true, nil
}

// stepBlockStart reads BFINAL and BTYPE (RFC 1951 §3.2.3).
func (inf *Inflator) stepBlockStart() (bool, error) {
	if !inf.r.Avail(3) {
		return false, nil
	}
	pos := inf.r.Pos()
	bfinal := inf.r.Get(pos, 1)
	btype := inf.r.Get(pos+1, 2)
	inf.r.SetPos(pos + 3)
	inf.finalBlock = bfinal == 1

	switch btype {
	case 0:
		inf.state = stateBlockUncompressedHeader
	case 1:
		inf.litTable = fixedRunLiteralTable
		inf.distTable = fixedDistanceTable
		inf.state = stateBlockCompressed
	case 2:
		inf.state = stateBlockTablesHeader
	default:
		return false, errKind(KindInvalidBlockType)
	}
	return true, nil
}

// stepBlockUncompressedHeader byte-aligns and reads LEN/NLEN.
func (inf *Inflator) stepBlockUncompressedHeader() (bool, error) {
	cur := inf.r.Pos()
	aligned := align8(cur)
	need := (aligned - cur) + 32
	if !inf.r.Avail(need) {
		return false, nil
	}
	lenv := inf.r.Get(aligned, 16)
	nlen := inf.r.Get(aligned+16, 16)
	if lenv^0xFFFF != nlen {
		return false, errKind(KindInvalidBlockElementCountParity)
	}
	inf.r.SetPos(aligned + 32)
	inf.uncompRemaining = int(lenv)
	inf.state = stateBlockUncompressedData
	return true, nil
}

// stepBlockUncompressedData copies one stored byte per call, which keeps
// each step bounded and resumable mid-block.
func (inf *Inflator) stepBlockUncompressedData() (bool, error) {
	if inf.uncompRemaining == 0 {
		if inf.finalBlock {
			inf.state = stateStreamChecksum
		} else {
			inf.state = stateBlockStart
		}
		return true, nil
	}
	if !inf.r.Avail(8) {
		return false, nil
	}
	pos := inf.r.Pos()
	b := byte(inf.r.Get(pos, 8))
	inf.r.SetPos(pos + 8)
	inf.w.Append(b)
	inf.uncompRemaining--
	return true, nil
}

// stepBlockTablesHeader reads HLIT, HDIST, and HCLEN (RFC 1951 §3.2.7).
func (inf *Inflator) stepBlockTablesHeader() (bool, error) {
	if !inf.r.Avail(14) {
		return false, nil
	}
	pos := inf.r.Pos()
	hlit := inf.r.Get(pos, 5)
	hdist := inf.r.Get(pos+5, 5)
	hclen := inf.r.Get(pos+10, 4)
	inf.r.SetPos(pos + 14)

	inf.hlit = int(hlit) + 257
	if inf.hlit > 286 {
		return false, errKindExtra(KindInvalidHuffmanRunLiteralSymbolCount, inf.hlit)
	}
	inf.hdist = int(hdist) + 1
	inf.hclen = int(hclen) + 4
	for i := range inf.clLengths {
		inf.clLengths[i] = 0
	}
	inf.clRead = 0
	inf.state = stateBlockTablesCL
	return true, nil
}

// stepBlockTablesCL reads one 3-bit code-length-alphabet length per call,
// in the permuted order codeLengthOrder specifies, then builds the
// code-length Huffman table once all HCLEN entries are in.
func (inf *Inflator) stepBlockTablesCL() (bool, error) {
	if inf.clRead >= inf.hclen {
		table, err := huffman.Build(inf.clLengths[:])
		if err != nil {
			return false, errKind(KindInvalidHuffmanCodelengthHuffmanTable)
		}
		inf.clTable = table
		inf.combined = make([]int, inf.hlit+inf.hdist)
		inf.combinedPos = 0
		inf.lastLen = -1
		inf.state = stateBlockTablesLengths
		return true, nil
	}
	if !inf.r.Avail(3) {
		return false, nil
	}
	pos := inf.r.Pos()
	v := inf.r.Get(pos, 3)
	inf.r.SetPos(pos + 3)
	inf.clLengths[codeLengthOrder[inf.clRead]] = int(v)
	inf.clRead++
	return true, nil
}

// stepBlockTablesLengths decodes the combined run/literal + distance
// code-length sequence (with RLE codes 16/17/18), then builds both tables
// once the sequence is complete.
func (inf *Inflator) stepBlockTablesLengths() (bool, error) {
	total := inf.hlit + inf.hdist
	if inf.combinedPos >= total {
		litLengths := inf.combined[:inf.hlit]
		distLengths := inf.combined[inf.hlit:]
		lt, err := huffman.Build(litLengths)
		if err != nil {
			return false, errKind(KindInvalidHuffmanTable)
		}
		dt, err := huffman.BuildDistance(distLengths)
		if err != nil {
			return false, errKind(KindInvalidHuffmanTable)
		}
		inf.litTable, inf.distTable = lt, dt
		inf.state = stateBlockCompressed
		return true, nil
	}

	pos := inf.r.Pos()
	if !inf.r.Avail(15) {
		return false, nil
	}
	key := huffman.Reverse15(inf.r.Get(pos, 15))
	e := inf.clTable.Decode(key)

	extra := 0
	switch e.Symbol {
	case codeLengthRepeat:
		extra = 2
	case codeLengthZeros3:
		extra = 3
	case codeLengthZeros7:
		extra = 7
	}
	needBits := uint64(e.Length) + uint64(extra)
	if !inf.r.Avail(needBits) {
		return false, nil
	}
	extraVal := int(inf.r.Get(pos+uint64(e.Length), uint(extra)))
	inf.r.SetPos(pos + needBits)

	switch {
	case e.Symbol <= codeLengthLiteralMax:
		inf.combined[inf.combinedPos] = int(e.Symbol)
		inf.lastLen = int(e.Symbol)
		inf.combinedPos++
	case e.Symbol == codeLengthRepeat:
		if inf.lastLen < 0 {
			return false, errKind(KindInvalidHuffmanCodelengthSequence)
		}
		repeat := 3 + extraVal
		if inf.combinedPos+repeat > total {
			return false, errKind(KindInvalidHuffmanCodelengthSequence)
		}
		for i := 0; i < repeat; i++ {
			inf.combined[inf.combinedPos] = inf.lastLen
			inf.combinedPos++
		}
	case e.Symbol == codeLengthZeros3:
		repeat := 3 + extraVal
		if inf.combinedPos+repeat > total {
			return false, errKind(KindInvalidHuffmanCodelengthSequence)
		}
		for i := 0; i < repeat; i++ {
			inf.combined[inf.combinedPos] = 0
			inf.combinedPos++
		}
		inf.lastLen = 0
	case e.Symbol == codeLengthZeros7:
		repeat := 11 + extraVal
		if inf.combinedPos+repeat > total {
			return false, errKind(KindInvalidHuffmanCodelengthSequence)
		}
		for i := 0; i < repeat; i++ {
			inf.combined[inf.combinedPos] = 0
			inf.combinedPos++
		}
		inf.lastLen = 0
	default:
		return false, errKind(KindInvalidHuffmanCodelengthSequence)
	}
	return true, nil
}

// stepBlockCompressed decodes one run/literal symbol, and if it is a
// length code, the paired distance symbol and both symbols' extra bits, as
// a single atomic token: nothing is consumed unless every bit the token
// needs is already available.
func (inf *Inflator) stepBlockCompressed() (bool, error) {
	pos := inf.r.Pos()
	if !inf.r.Avail(15) {
		return false, nil
	}
	key := huffman.Reverse15(inf.r.Get(pos, 15))
	e := inf.litTable.Decode(key)

	if e.Symbol < endOfBlockSymbol {
		if !inf.r.Avail(uint64(e.Length)) {
			return false, nil
		}
		inf.r.SetPos(pos + uint64(e.Length))
		inf.w.Append(byte(e.Symbol))
		return true, nil
	}
	if e.Symbol == endOfBlockSymbol {
		if !inf.r.Avail(uint64(e.Length)) {
			return false, nil
		}
		inf.r.SetPos(pos + uint64(e.Length))
		if inf.finalBlock {
			inf.state = stateStreamChecksum
		} else {
			inf.state = stateBlockStart
		}
		return true, nil
	}

	symIdx := int(e.Symbol) - 257
	if symIdx < 0 || symIdx >= len(lengthDecades) {
		return false, errKindExtra(KindInvalidHuffmanRunLiteralSymbolCount, int(e.Symbol))
	}
	ld := lengthDecades[symIdx]
	bits := uint64(e.Length)
	if !inf.r.Avail(bits + uint64(ld.extraBits)) {
		return false, nil
	}
	lengthValue := ld.base + int(inf.r.Get(pos+bits, uint(ld.extraBits)))
	bits += uint64(ld.extraBits)

	// The 15-bit peek may run into the reader's zero padding; only the
	// decoded code's own bits are required to be real (checked below).
	distKey := huffman.Reverse15(inf.r.Get(pos+bits, 15))
	de := inf.distTable.Decode(distKey)
	if de.Length == 0 || int(de.Symbol) >= len(distDecades) {
		return false, errKind(KindInvalidHuffmanTable)
	}
	bits += uint64(de.Length)
	dd := distDecades[de.Symbol]
	if !inf.r.Avail(bits + uint64(dd.extraBits)) {
		return false, nil
	}
	distanceValue := dd.base + int(inf.r.Get(pos+bits, uint(dd.extraBits)))
	bits += uint64(dd.extraBits)

	inf.r.SetPos(pos + bits)
	if err := inf.w.Expand(distanceValue, lengthValue); err != nil {
		return false, errKind(KindInvalidStringReference)
	}
	return true, nil
}

// stepStreamChecksum byte-aligns and validates the trailing big-endian
// Adler-32 (RFC 1950 §2.3).
func (inf *Inflator) stepStreamChecksum() (bool, error) {
	cur := inf.r.Pos()
	aligned := align8(cur)
	need := (aligned - cur) + 32
	if !inf.r.Avail(need) {
		return false, nil
	}
	b0 := inf.r.Get(aligned, 8)
	b1 := inf.r.Get(aligned+8, 8)
	b2 := inf.r.Get(aligned+16, 8)
	b3 := inf.r.Get(aligned+24, 8)
	want := b0<<24 | b1<<16 | b2<<8 | b3
	inf.r.SetPos(aligned + 32)

	if want != inf.w.Checksum() {
		return false, errKind(KindInvalidStreamChecksum)
	}
	inf.state = stateStreamEnd
	return true, nil
}
