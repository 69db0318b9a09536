package png

// FormatKind identifies the sample layout of a [PixelFormat], per spec.md
// §4.5's dispatch table.
type FormatKind int

const (
	FormatIndexed FormatKind = iota
	FormatGray
	FormatGrayAlpha
	FormatRGB
	FormatRGBA
)

// Standard selects the output channel order. Common is plain RGBA; iOS asks
// for BGRA, which this core declines to guess at (see [ErrUnsupportedStandard]).
type Standard int

const (
	Common Standard = iota
	IOS
)

// Unsigned is the set of destination integer widths [Unpack] can target.
// Go generics dispatch on this the way the overload-resolution original
// dispatched on tuple arity: one instantiation per (source, destination)
// width pair, monomorphized at compile time.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// PixelFormat describes the layout of one pixel's worth of source samples.
// Depth is the bit depth of each logical sample (1, 2, 4, 8, or 16); for
// FormatIndexed it is the index width used only to size the palette, since
// every index sample occupies one full byte in the source buffer regardless
// of depth (spec.md §4.5's dispatch table: "indexedN | u8 palette index").
type PixelFormat struct {
	Kind  FormatKind
	Depth int

	// Palette holds one (R, G, B, A) 8-bit tuple per index, used only when
	// Kind == FormatIndexed. The core does not resolve tRNS/background data
	// beyond what the caller has already folded into the alpha channel.
	Palette [][4]uint8

	// Key, when non-nil, is the raw (pre-adaptation) sample or sample
	// triple that must map to alpha 0 instead of T.max. Len is 1 for
	// FormatGray, 3 for FormatRGB, and Key is unused otherwise.
	Key []uint16
}

// Color is one decoded pixel at destination precision T.
type Color[T Unsigned] struct {
	R, G, B, A T
}

// samplesPerGroup and sampleBytes together give the byte stride of one
// pixel's worth of source samples, per spec.md §4.5: "Output length =
// (input byte length / group size in bytes)."
func (f PixelFormat) samplesPerGroup() int {
	switch f.Kind {
	case FormatIndexed:
		return 1
	case FormatGray:
		return 1
	case FormatGrayAlpha:
		return 2
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) sampleBytes() int {
	if f.Kind == FormatIndexed {
		return 1
	}
	if f.Depth > 8 {
		return 2
	}
	return 1
}

func (f PixelFormat) groupBytes() int {
	return f.samplesPerGroup() * f.sampleBytes()
}

// Unpack expands buf, a byte buffer of back-to-back pixel-sample groups in
// the layout named by format, into Color records at destination precision
// T. std must be Common; IOS (BGRA) is declared out of scope and rejected
// with [ErrUnsupportedStandard] rather than guessing a byte order.
func Unpack[T Unsigned](buf []byte, format PixelFormat, std Standard) ([]Color[T], error) {
	if std != Common {
		return nil, ErrUnsupportedStandard
	}

	group := format.groupBytes()
	if group == 0 {
		return nil, ErrInvalidPixelFormat
	}
	n := len(buf) / group

	switch format.Kind {
	case FormatIndexed:
		return unpackIndexed[T](buf, n, format.Palette), nil
	case FormatGray:
		var key *uint16
		if len(format.Key) == 1 {
			key = &format.Key[0]
		}
		return unpackGray[T](buf, n, format.Depth, format.sampleBytes(), key), nil
	case FormatGrayAlpha:
		return unpackGrayAlpha[T](buf, n, format.Depth, format.sampleBytes()), nil
	case FormatRGB:
		var key *[3]uint16
		if len(format.Key) == 3 {
			key = (*[3]uint16)(format.Key)
		}
		return unpackRGB[T](buf, n, format.Depth, format.sampleBytes(), key), nil
	case FormatRGBA:
		return unpackRGBA[T](buf, n, format.Depth, format.sampleBytes()), nil
	default:
		return nil, ErrInvalidPixelFormat
	}
}
