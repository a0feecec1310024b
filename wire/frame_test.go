package wire

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, f Frame) {
	t.Helper()
	enc := Encode(f)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != f.Type || got.MessageID != f.MessageID {
		t.Fatalf("header mismatch: got %+v want %+v", got, f)
	}
	if !bytes.Equal(got.Base, f.Base) {
		t.Fatalf("base mismatch: got %v want %v", got.Base, f.Base)
	}
	if len(got.Segments) != len(f.Segments) {
		t.Fatalf("segment count mismatch: got %d want %d", len(got.Segments), len(f.Segments))
	}
	for i := range f.Segments {
		if !bytes.Equal(got.Segments[i], f.Segments[i]) {
			t.Fatalf("segment %d mismatch: got %v want %v", i, got.Segments[i], f.Segments[i])
		}
	}

	// ReadFrame must agree with Decode byte-for-byte (property 1's
	// "static buffer vs heap path" requirement: both paths read the same
	// wire bytes, so they must always agree).
	viaReader, err := ReadFrame(bytes.NewReader(enc))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if viaReader.Type != got.Type || viaReader.MessageID != got.MessageID {
		t.Fatalf("ReadFrame disagreement with Decode")
	}
	if !bytes.Equal(viaReader.Base, got.Base) || len(viaReader.Segments) != len(got.Segments) {
		t.Fatalf("ReadFrame disagreement with Decode on base or segment count")
	}
	for i := range got.Segments {
		if !bytes.Equal(viaReader.Segments[i], got.Segments[i]) {
			t.Fatalf("ReadFrame disagreement with Decode on segment %d", i)
		}
	}
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, Frame{Type: 1, MessageID: 1})
}

func TestRoundTripBaseOnly(t *testing.T) {
	roundTrip(t, Frame{Type: 2, MessageID: 7, Base: []byte("hello base struct")})
}

func TestRoundTripSegments(t *testing.T) {
	roundTrip(t, Frame{
		Type:      3,
		MessageID: 99,
		Segments:  [][]byte{[]byte("first"), {}, []byte("third segment, longer")},
		Base:      []byte{1, 2, 3, 4},
	})
}

// TestRoundTripAcrossStaticBufferBoundary exercises payload sizes just under,
// at, and just over the 1024-byte StaticBufferThreshold to confirm the
// round trip is identical on both sides of it (testable property 1).
func TestRoundTripAcrossStaticBufferBoundary(t *testing.T) {
	sizes := []int{
		StaticBufferThreshold - 1,
		StaticBufferThreshold,
		StaticBufferThreshold + 1,
		StaticBufferThreshold * 4,
	}
	for _, n := range sizes {
		base := make([]byte, n)
		for i := range base {
			base[i] = byte(i)
		}
		roundTrip(t, Frame{Type: 42, MessageID: uint32(n), Base: base})
	}
}

func TestDecodeBadMagic(t *testing.T) {
	enc := Encode(Frame{Type: 1, MessageID: 1})
	enc[0] ^= 0xFF
	if _, err := Decode(enc); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	enc := Encode(Frame{Type: 1, MessageID: 1, Base: []byte("abcdef")})
	truncated := enc[:len(enc)-2]
	if _, err := Decode(truncated); err == nil {
		t.Fatalf("expected truncation error")
	}
}

func TestIDGeneratorMonotonic(t *testing.T) {
	g := NewIDGenerator()
	prev := uint32(0)
	for i := 0; i < 100; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatalf("id generator not monotonic: %d after %d", id, prev)
		}
		prev = id
	}
}
