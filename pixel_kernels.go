package png

import (
	"math/bits"
	"runtime"
	"sync"
)

// minPixelsForParallel is the pixel-count threshold below which the row split
// in unpackRows isn't worth the goroutine overhead, mirroring the teacher's
// minPixelsForParallel gate in argbToNRGBA.
const minPixelsForParallel = 1 << 14

// bitWidth reports the destination integer width in bits, used to pick
// between the identity, quantum-multiply, and right-shift adapters.
func bitWidth[T Unsigned]() int {
	var z T
	switch any(z).(type) {
	case uint8:
		return 8
	case uint16:
		return 16
	case uint32:
		return 32
	case uint64:
		return 64
	default:
		return 0
	}
}

// maxOf returns T's all-ones value without relying on its bit width, so it
// stays correct at w = 64 where 1<<w overflows a machine word.
func maxOf[T Unsigned]() T {
	var z T
	return ^z
}

// buildAdapter returns the scalar depth-normalizing adapter from a depth-d
// source sample to destination width T, per spec.md §4.5:
//
//	bitWidth(T) == d: identity
//	bitWidth(T) >  d: quantum = T.max / (T.max >> (bitWidth(T) - d)); q -> quantum*q
//	bitWidth(T) <  d: q -> q >> (d - bitWidth(T))
func buildAdapter[T Unsigned](depth int) func(uint32) T {
	w := bitWidth[T]()
	switch {
	case w == depth:
		return func(q uint32) T { return T(q) }
	case w > depth:
		max := uint64(maxOf[T]())
		quantum := max / (max >> uint(w-depth))
		return func(q uint32) T { return T(quantum * uint64(q)) }
	default:
		shift := uint(depth - w)
		return func(q uint32) T { return T(q >> shift) }
	}
}

// readSample extracts one big-endian sample of width sampleBytes (1 or 2)
// starting at buf[off].
func readSample(buf []byte, off, sampleBytes int) uint32 {
	if sampleBytes == 2 {
		return uint32(buf[off])<<8 | uint32(buf[off+1])
	}
	return uint32(buf[off])
}

// unpackRows splits n pixels across GOMAXPROCS goroutines and calls fn with
// the half-open [start, end) range each worker owns, grounded on the
// teacher's argbToNRGBA/argbToNRGBARows row split (GOMAXPROCS workers,
// sync.WaitGroup barrier, parallelizing only above a minimum size).
func unpackRows(n int, fn func(start, end int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers <= 1 || n < minPixelsForParallel {
		fn(0, n)
		return
	}
	perWorker := n / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workers-1 {
			end = n
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

func unpackIndexed[T Unsigned](buf []byte, n int, palette [][4]uint8) []Color[T] {
	out := make([]Color[T], n)
	channel := buildAdapter[T](8)
	unpackRows(n, func(start, end int) {
		for i := start; i < end; i++ {
			idx := int(buf[i])
			var entry [4]uint8
			if idx < len(palette) {
				entry = palette[idx]
			}
			out[i] = Color[T]{
				R: channel(uint32(entry[0])),
				G: channel(uint32(entry[1])),
				B: channel(uint32(entry[2])),
				A: channel(uint32(entry[3])),
			}
		}
	})
	return out
}

func unpackGray[T Unsigned](buf []byte, n, depth, sampleBytes int, key *uint16) []Color[T] {
	out := make([]Color[T], n)
	adapt := buildAdapter[T](depth)
	opaque := maxOf[T]()
	unpackRows(n, func(start, end int) {
		for i := start; i < end; i++ {
			raw := readSample(buf, i*sampleBytes, sampleBytes)
			v := adapt(raw)
			a := opaque
			if key != nil && raw == uint32(*key) {
				a = 0
			}
			out[i] = Color[T]{R: v, G: v, B: v, A: a}
		}
	})
	return out
}

func unpackGrayAlpha[T Unsigned](buf []byte, n, depth, sampleBytes int) []Color[T] {
	out := make([]Color[T], n)
	adapt := buildAdapter[T](depth)
	group := 2 * sampleBytes
	unpackRows(n, func(start, end int) {
		for i := start; i < end; i++ {
			off := i * group
			v := adapt(readSample(buf, off, sampleBytes))
			a := adapt(readSample(buf, off+sampleBytes, sampleBytes))
			out[i] = Color[T]{R: v, G: v, B: v, A: a}
		}
	})
	return out
}

func unpackRGB[T Unsigned](buf []byte, n, depth, sampleBytes int, key *[3]uint16) []Color[T] {
	out := make([]Color[T], n)
	adapt := buildAdapter[T](depth)
	opaque := maxOf[T]()
	group := 3 * sampleBytes
	unpackRows(n, func(start, end int) {
		for i := start; i < end; i++ {
			off := i * group
			rRaw := readSample(buf, off, sampleBytes)
			gRaw := readSample(buf, off+sampleBytes, sampleBytes)
			bRaw := readSample(buf, off+2*sampleBytes, sampleBytes)
			a := opaque
			if key != nil && rRaw == uint32(key[0]) && gRaw == uint32(key[1]) && bRaw == uint32(key[2]) {
				a = 0
			}
			out[i] = Color[T]{R: adapt(rRaw), G: adapt(gRaw), B: adapt(bRaw), A: a}
		}
	})
	return out
}

func unpackRGBA[T Unsigned](buf []byte, n, depth, sampleBytes int) []Color[T] {
	out := make([]Color[T], n)
	adapt := buildAdapter[T](depth)
	group := 4 * sampleBytes
	unpackRows(n, func(start, end int) {
		for i := start; i < end; i++ {
			off := i * group
			out[i] = Color[T]{
				R: adapt(readSample(buf, off, sampleBytes)),
				G: adapt(readSample(buf, off+sampleBytes, sampleBytes)),
				B: adapt(readSample(buf, off+2*sampleBytes, sampleBytes)),
				A: adapt(readSample(buf, off+3*sampleBytes, sampleBytes)),
			}
		}
	})
	return out
}

// Premultiply computes premul(c, a) = round(c * a / T.max) using the
// two-carry fast-divide generalization of the classic divide-by-255 trick,
// so that for T = uint8 it reproduces (c*a + 127) / 255 bit for bit and
// extends it to wider destination precisions.
func Premultiply[T Unsigned](c, a T) T {
	w := bitWidth[T]()
	if w == 64 {
		// c*a needs 128 bits: add the half and the high word with carries.
		hi, lo := bits.Mul64(uint64(c), uint64(a))
		lo, carry := bits.Add64(lo, 1<<63, 0)
		hi += carry
		_, carry = bits.Add64(lo, hi, 0)
		return T(hi + carry)
	}
	x := uint64(c) * uint64(a)
	half := uint64(1) << (w - 1)
	t := x + half
	return T((t + (t >> w)) >> w)
}
