package png

import (
	"errors"
	"fmt"
)

// Kind enumerates the fatal error conditions an [Inflator] can raise. Every
// Kind is fatal: once Push returns an error, the Inflator must not be
// reused.
type Kind int

const (
	// KindTruncatedBitstream is not raised by this Inflator: there is no
	// call to declare the input ended, so a truncated stream simply yields
	// StatusNeedsMore.
	KindTruncatedBitstream Kind = iota
	KindInvalidStreamMethod
	KindInvalidStreamWindowSize
	KindInvalidStreamHeaderCheckBits
	KindUnexpectedStreamDictionary
	KindInvalidStreamChecksum
	KindInvalidBlockType
	KindInvalidBlockElementCountParity
	KindInvalidHuffmanRunLiteralSymbolCount
	KindInvalidHuffmanCodelengthHuffmanTable
	KindInvalidHuffmanCodelengthSequence
	KindInvalidHuffmanTable
	KindInvalidStringReference
)

var kindText = [...]string{
	KindTruncatedBitstream:                   "truncated bitstream",
	KindInvalidStreamMethod:                  "invalid stream method",
	KindInvalidStreamWindowSize:              "invalid stream window size",
	KindInvalidStreamHeaderCheckBits:         "invalid stream header check bits",
	KindUnexpectedStreamDictionary:           "unexpected stream dictionary",
	KindInvalidStreamChecksum:                "invalid stream checksum",
	KindInvalidBlockType:                     "invalid block type",
	KindInvalidBlockElementCountParity:       "invalid block element count parity",
	KindInvalidHuffmanRunLiteralSymbolCount:  "invalid huffman run/literal symbol count",
	KindInvalidHuffmanCodelengthHuffmanTable: "invalid huffman codelength huffman table",
	KindInvalidHuffmanCodelengthSequence:     "invalid huffman codelength sequence",
	KindInvalidHuffmanTable:                  "invalid huffman table",
	KindInvalidStringReference:               "invalid string reference",
}

// String returns the human-readable name of the error kind.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindText) {
		return "unknown error kind"
	}
	return kindText[k]
}

// Error is the fatal-error type returned by [Inflator.Push]. [Unpack]
// returns the plain sentinels below instead.
// Extra carries the Kind-specific payload named in the spec (a window
// exponent for KindInvalidStreamWindowSize, a symbol count for
// KindInvalidHuffmanRunLiteralSymbolCount); it is zero for kinds that carry
// no payload.
type Error struct {
	Kind  Kind
	Extra int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidStreamWindowSize:
		return fmt.Sprintf("png: %s: exponent %d", e.Kind, e.Extra)
	case KindInvalidHuffmanRunLiteralSymbolCount:
		return fmt.Sprintf("png: %s: count %d", e.Kind, e.Extra)
	default:
		return fmt.Sprintf("png: %s", e.Kind)
	}
}

// Is reports whether target is an *Error with the same Kind, so callers can
// use errors.Is(err, &Error{Kind: KindInvalidStreamChecksum}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errKind(kind Kind) error {
	return &Error{Kind: kind}
}

func errKindExtra(kind Kind, extra int) error {
	return &Error{Kind: kind, Extra: extra}
}

// ErrUnsupportedStandard is returned by [Unpack] when asked for the iOS
// (BGRA) byte-order standard, which this core does not implement. The spec
// treats this as an explicit "unsupported" return rather than a guessed
// byte-order implementation.
var ErrUnsupportedStandard = errors.New("png: unsupported pixel standard")

// ErrInvalidPixelFormat is returned by [Unpack] when given a [PixelFormat]
// whose Kind is not one of the named FormatXxx constants.
var ErrInvalidPixelFormat = errors.New("png: invalid pixel format")
