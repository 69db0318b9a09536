// Package window implements the output ring buffer used by the DEFLATE
// inflator: a growable byte buffer with four monotonically non-decreasing
// cursors (base/start/current/end), an incrementally-maintained Adler-32
// checksum, and a back-reference copy primitive that permits overlap.
package window

import "github.com/haikusw/png/internal/pool"

// adlerMod is the Adler-32 modulus (RFC 1950).
const adlerMod = 65521

// adlerBlock is the largest number of bytes that can be summed into the
// Adler-32 accumulators before a %adlerMod reduction is required, without
// either accumulator overflowing uint32.
const adlerBlock = 5552

// Window is the output ring buffer. [baseIndex, endIndex) is physically
// resident; [startIndex, endIndex) is the sliding window retained for
// back-references; [currentIndex, endIndex) is produced-but-not-yet-
// released output.
type Window struct {
	buf []byte

	baseIndex    int
	startIndex   int
	currentIndex int
	endIndex     int

	size int // maximum back-reference distance, set once from the stream header

	adlerA, adlerB uint32 // running Adler-32 over [0, baseIndex) plus folded prefixes
	adlerPending   int    // bytes summed into adlerA/adlerB since the last %adlerMod reduction
}

// New creates a Window with the given maximum back-reference distance
// (the stream header's declared window size).
func New(size int) *Window {
	w := &Window{size: size, adlerA: 1}
	w.buf = pool.Get(nextPow2(max(size*2, 1<<12)))
	w.buf = w.buf[:0]
	return w
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Window returns the configured maximum back-reference distance.
func (w *Window) Window() int { return w.size }

// EndIndex returns the current write cursor (total bytes produced so far).
func (w *Window) EndIndex() int { return w.endIndex }

// StartIndex returns the start of the retained sliding window.
func (w *Window) StartIndex() int { return w.startIndex }

// CurrentIndex returns the start of the produced-but-unreleased region.
func (w *Window) CurrentIndex() int { return w.currentIndex }

// Retained returns the number of bytes produced but not yet released.
func (w *Window) Retained() int { return w.endIndex - w.currentIndex }

// Append writes one byte at endIndex, growing storage if exhausted.
func (w *Window) Append(b byte) {
	w.ensure(1)
	off := w.endIndex - w.baseIndex
	w.buf = w.buf[:off+1]
	w.buf[off] = b
	w.endIndex++
}

// Expand copies count bytes starting from endIndex-offset to endIndex,
// permitting count > offset: the overlap naturally replicates the last
// offset bytes, computed as q = count/offset forward memmoves of length
// offset plus one final memmove of length r = count%offset.
func (w *Window) Expand(offset, count int) error {
	if offset <= 0 || offset > w.endIndex-w.startIndex {
		return errOutOfWindow
	}
	w.ensure(count)

	q, r := count/offset, count%offset
	for i := 0; i < q; i++ {
		w.copyRun(offset, offset)
	}
	if r > 0 {
		w.copyRun(offset, r)
	}
	return nil
}

// copyRun performs one forward memmove of length n, reading n bytes
// starting at endIndex-offset and writing them at endIndex. Because the
// source and destination can overlap (offset < n within a single memmove
// is never requested by Expand, but offset < count across repeated runs
// is exactly how runs replicate), it copies byte by byte.
func (w *Window) copyRun(offset, n int) {
	srcOff := w.endIndex - offset - w.baseIndex
	dstOff := w.endIndex - w.baseIndex
	w.buf = w.buf[:dstOff+n]
	for i := 0; i < n; i++ {
		w.buf[dstOff+i] = w.buf[srcOff+i]
	}
	w.endIndex += n
}

var errOutOfWindow = &outOfWindowError{}

type outOfWindowError struct{}

func (*outOfWindowError) Error() string { return "window: back-reference exceeds retained window" }

// ErrOutOfWindow is returned by Expand when the requested offset exceeds
// the currently-retained window.
func ErrOutOfWindow() error { return errOutOfWindow }

// Release returns the n bytes starting at currentIndex if at least n are
// available, advances currentIndex by n, and clamps startIndex to
// max(endIndex-window, startIndex) (never past currentIndex). Returns
// (nil, false) if fewer than n bytes are ready.
func (w *Window) Release(n int) ([]byte, bool) {
	if w.endIndex-w.currentIndex < n {
		return nil, false
	}
	off := w.currentIndex - w.baseIndex
	out := make([]byte, n)
	copy(out, w.buf[off:off+n])
	w.currentIndex += n

	newStart := w.endIndex - w.size
	if newStart > w.startIndex {
		w.startIndex = newStart
	}
	if w.startIndex > w.currentIndex {
		w.startIndex = w.currentIndex
	}
	return out, true
}

// ensure guarantees extra bytes of headroom beyond endIndex, shifting or
// reallocating storage as needed.
func (w *Window) ensure(extra int) {
	off := w.endIndex - w.baseIndex
	if off+extra <= cap(w.buf) {
		return
	}
	w.shift(extra)
}

// shift compacts [startIndex, endIndex) to the front of storage, folding
// the displaced prefix into the running Adler-32 state, reallocating via
// the pool only when the in-place compaction would not free enough room.
func (w *Window) shift(extra int) {
	keepFrom := w.startIndex
	keepLen := w.endIndex - keepFrom
	needed := keepLen + extra

	foldLen := keepFrom - w.baseIndex
	if foldLen > 0 {
		w.foldAdler(w.buf[:foldLen])
	}

	if needed <= cap(w.buf) {
		copy(w.buf[:keepLen], w.buf[foldLen:foldLen+keepLen])
		w.buf = w.buf[:keepLen]
	} else {
		newCap := nextPow2(max(needed, 16))
		nb := pool.Get(newCap)
		copy(nb, w.buf[foldLen:foldLen+keepLen])
		pool.Put(w.buf[:cap(w.buf)])
		w.buf = nb[:keepLen]
	}
	w.baseIndex = keepFrom
}

// foldAdler incorporates a displaced prefix into the running Adler-32
// state. Must be called exactly once for each byte that moves below
// baseIndex (out of residency), or the final checksum silently diverges.
func (w *Window) foldAdler(data []byte) {
	a, b := w.adlerA, w.adlerB
	i := 0
	for i < len(data) {
		n := adlerBlock - w.adlerPending
		if n > len(data)-i {
			n = len(data) - i
		}
		for _, c := range data[i : i+n] {
			a += uint32(c)
			b += a
		}
		i += n
		w.adlerPending += n
		if w.adlerPending >= adlerBlock {
			a %= adlerMod
			b %= adlerMod
			w.adlerPending = 0
		}
	}
	w.adlerA, w.adlerB = a, b
}

// Checksum returns the current Adler-32 as (b<<16 | a), incorporating
// everything folded so far plus everything still resident beyond
// baseIndex.
func (w *Window) Checksum() uint32 {
	a, b := w.adlerA, w.adlerB
	live := w.buf[:w.endIndex-w.baseIndex]
	i := 0
	pending := w.adlerPending
	for i < len(live) {
		n := adlerBlock - pending
		if n > len(live)-i {
			n = len(live) - i
		}
		for _, c := range live[i : i+n] {
			a += uint32(c)
			b += a
		}
		i += n
		pending += n
		if pending >= adlerBlock {
			a %= adlerMod
			b %= adlerMod
			pending = 0
		}
	}
	a %= adlerMod
	b %= adlerMod
	return b<<16 | a
}
