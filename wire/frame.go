// Package wire implements the length-prefixed, magic-tagged byte framing
// shared by every channel kind in the host runtime:
//
//	[magic 2B]["content_size" u64][type u32][message_id u32]
//	[segments_total_len u64][segment_count u64]{[size u64][bytes]}*
//	[base_size u64][base_bytes]
//
// "content" is everything after the two header fields (magic, content_size);
// "base" is the fixed-size payload for a given message variant; "segments"
// are its variable-length trailing fields (strings, byte vectors). There is
// no separate static-buffer fast path: every content size is encoded and
// decoded by the same code, and StaticBufferThreshold only names the
// 1024-byte boundary the round-trip tests cover.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Magic is the two-byte tag every frame starts with.
var Magic = [2]byte{0x03, 0x07}

// StaticBufferThreshold is the content size at or below which the reference
// C++ runtime this protocol was distilled from avoids a heap allocation by
// using a stack buffer. Go's allocator makes the distinction invisible to
// callers, but the boundary is kept as a named constant because testable
// property 1 requires the encode/decode round trip to be identical on both
// sides of it.
const StaticBufferThreshold = 1024

var byteOrder = binary.LittleEndian

// ErrBadMagic is returned by Decode when the leading magic bytes don't match.
var ErrBadMagic = errors.New("wire: bad magic")

// ErrTruncated is returned by Decode when the buffer ends before a declared
// length is satisfied — this is a protocol error (§7.2): the caller should
// drop the single message and keep the channel open.
var ErrTruncated = errors.New("wire: truncated frame")

// Frame is one decoded message: a type tag, a message id, an ordered list of
// variable-length segments, and a fixed-size base payload.
type Frame struct {
	Type      uint32
	MessageID uint32
	Segments  [][]byte
	Base      []byte
}

// Encode serialises f into the wire format described in the package doc.
func Encode(f Frame) []byte {
	var segLen uint64
	for _, s := range f.Segments {
		segLen += 8 + uint64(len(s))
	}
	contentSize := 4 + 4 + 8 + 8 + segLen + 8 + uint64(len(f.Base))

	buf := bytes.NewBuffer(make([]byte, 0, 2+8+contentSize))
	buf.Write(Magic[:])
	writeU64(buf, contentSize)
	writeU32(buf, f.Type)
	writeU32(buf, f.MessageID)
	writeU64(buf, segLen)
	writeU64(buf, uint64(len(f.Segments)))
	for _, s := range f.Segments {
		writeU64(buf, uint64(len(s)))
		buf.Write(s)
	}
	writeU64(buf, uint64(len(f.Base)))
	buf.Write(f.Base)
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	buf.Write(b[:])
}

// ReadFrame reads one frame from r, which must yield exactly the bytes
// Encode would have written (r is typically a transport.Peer). It returns
// ErrBadMagic or ErrTruncated for malformed input without consuming more
// than necessary to detect the error.
func ReadFrame(r io.Reader) (Frame, error) {
	var magic [2]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Frame{}, errors.Wrap(ErrTruncated, err.Error())
	}
	if magic != Magic {
		return Frame{}, ErrBadMagic
	}
	contentSize, err := readU64(r)
	if err != nil {
		return Frame{}, err
	}
	content := make([]byte, contentSize)
	if _, err := io.ReadFull(r, content); err != nil {
		return Frame{}, errors.Wrap(ErrTruncated, err.Error())
	}
	return decodeContent(content)
}

// Decode parses a complete, previously-length-delimited buffer (magic +
// content_size + content), used in tests and for the in-memory fast path.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < 2+8 {
		return Frame{}, ErrTruncated
	}
	var magic [2]byte
	copy(magic[:], buf[:2])
	if magic != Magic {
		return Frame{}, ErrBadMagic
	}
	contentSize := byteOrder.Uint64(buf[2:10])
	content := buf[10:]
	if uint64(len(content)) < contentSize {
		return Frame{}, ErrTruncated
	}
	return decodeContent(content[:contentSize])
}

func decodeContent(content []byte) (Frame, error) {
	r := bytes.NewReader(content)
	typ, err := readU32(r)
	if err != nil {
		return Frame{}, err
	}
	id, err := readU32(r)
	if err != nil {
		return Frame{}, err
	}
	if _, err := readU64(r); err != nil { // segments_total_len, unused on decode
		return Frame{}, err
	}
	segCount, err := readU64(r)
	if err != nil {
		return Frame{}, err
	}
	segments := make([][]byte, 0, segCount)
	for i := uint64(0); i < segCount; i++ {
		size, err := readU64(r)
		if err != nil {
			return Frame{}, err
		}
		seg := make([]byte, size)
		if _, err := io.ReadFull(r, seg); err != nil {
			return Frame{}, errors.Wrap(ErrTruncated, err.Error())
		}
		segments = append(segments, seg)
	}
	baseSize, err := readU64(r)
	if err != nil {
		return Frame{}, err
	}
	base := make([]byte, baseSize)
	if _, err := io.ReadFull(r, base); err != nil {
		return Frame{}, errors.Wrap(ErrTruncated, err.Error())
	}
	return Frame{Type: typ, MessageID: id, Segments: segments, Base: base}, nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(ErrTruncated, err.Error())
	}
	return byteOrder.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(ErrTruncated, err.Error())
	}
	return byteOrder.Uint64(b[:]), nil
}

// IDGenerator hands out monotonically increasing message ids starting at 1,
// one instance per channel kind (the reference implementation keeps separate
// counters for its IPC-message channel and its command-buffer channel rather
// than a single global counter).
type IDGenerator struct {
	next uint32
}

// NewIDGenerator returns a generator whose first Next() call returns 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: 0}
}

// Next returns the next id in sequence.
func (g *IDGenerator) Next() uint32 {
	return atomic.AddUint32(&g.next, 1)
}
