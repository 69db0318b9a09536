// Package png implements the two hard engines behind a PNG pixel pipeline:
// a streaming, resumable DEFLATE-in-zlib decompressor (RFC 1950 + RFC 1951)
// and a depth-normalizing pixel-unpacking kernel.
//
// The decompressor is exposed as [Inflator], an incremental push/pull state
// machine: feed it compressed bytes with [Inflator.Push] as they arrive and
// drain decompressed bytes with [Inflator.Pull]. It never blocks and never
// buffers more than the stream's declared window plus whatever has been
// produced but not yet pulled.
//
// The pixel unpacker is exposed as [Unpack]: given an already-decompressed,
// bit-packed scanline buffer and a [PixelFormat] descriptor, it expands
// packed samples into typed RGBA [Color] records at a requested integer
// precision.
//
// Out of scope: PNG chunk framing, CRC-32 checks, filter reconstruction,
// interlace deinterleaving, and any higher-level image container — those
// are the responsibility of a caller built on top of this package.
package png
