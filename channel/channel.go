// Package channel builds the typed channel layer (L1) on top of the framed
// transport (L0): each channel kind is a distinct type — they never share
// wire space — carrying a (type tag, base struct, ordered segments) message
// and its own monotonic message-id generator, matching the reference
// runtime's separate id spaces per channel kind (see SPEC_FULL.md §11.1).
package channel

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/webxrhost/runtime/transport"
	"github.com/webxrhost/runtime/wire"
)

// Kind names one of the six channel kinds named in §4.2. It exists purely
// for logging/diagnostics; the six concrete channel kinds below are separate
// Go types so the compiler prevents accidentally mixing their messages.
type Kind string

const (
	KindEvent         Kind = "event"
	KindFrameRequest  Kind = "frame_request"
	KindCommandBuffer Kind = "command_buffer"
	KindMediaCommand  Kind = "media_command"
	KindXRCommand     Kind = "xr_command"
	KindHiveCommand   Kind = "hive_command"
)

// Message is one decoded application message: a type tag, the fixed "base"
// payload (caller defines its shape per message variant), and its ordered
// segments (strings / raw buffers).
type Message struct {
	Type     uint32
	ID       uint32
	Base     []byte
	Segments [][]byte
}

// Channel is a typed wrapper over one transport.Peer, producing and
// consuming Message values. One Channel exists per connected peer per
// channel kind.
type Channel struct {
	Kind Kind
	peer *transport.Peer
	ids  *wire.IDGenerator
}

// New wraps peer as a channel of the given kind, with its own id generator.
func New(kind Kind, peer *transport.Peer) *Channel {
	return &Channel{Kind: kind, peer: peer, ids: wire.NewIDGenerator()}
}

// Peer returns the underlying transport peer (for pid lookups, Valid()
// checks, and Close()).
func (c *Channel) Peer() *transport.Peer { return c.peer }

// Send serialises and writes one message, assigning it a fresh id. It
// returns the assigned id so responses can be correlated against requests.
func (c *Channel) Send(msgType uint32, base []byte, segments [][]byte) (uint32, error) {
	id := c.ids.Next()
	frame := wire.Frame{Type: msgType, MessageID: id, Base: base, Segments: segments}
	if err := c.peer.SendRaw(wire.Encode(frame)); err != nil {
		return 0, errors.Wrapf(err, "channel(%s): send", c.Kind)
	}
	return id, nil
}

// Reply serialises and writes base/segments echoing requestID, so the
// original caller can correlate the response (§4.5 "RPC semantics").
func (c *Channel) Reply(msgType uint32, requestID uint32, base []byte, segments [][]byte) error {
	frame := wire.Frame{Type: msgType, MessageID: requestID, Base: base, Segments: segments}
	if err := c.peer.SendRaw(wire.Encode(frame)); err != nil {
		return errors.Wrapf(err, "channel(%s): reply", c.Kind)
	}
	return nil
}

// Recv blocks (up to timeout) for the next message on this channel.
func (c *Channel) Recv(timeout time.Duration) (Message, error) {
	frame, err := readFrameWithTimeout(c.peer, timeout)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: frame.Type, ID: frame.MessageID, Base: frame.Base, Segments: frame.Segments}, nil
}

// readFrameWithTimeout reads one length-prefixed frame off peer, honoring a
// receive timeout on each of its fixed-size reads (poll-with-timeout is the
// only explicit timeout primitive per §5).
func readFrameWithTimeout(peer *transport.Peer, timeout time.Duration) (wire.Frame, error) {
	var magic [2]byte
	if err := peer.TryRecvRaw(magic[:], timeout); err != nil {
		return wire.Frame{}, err
	}
	if magic != wire.Magic {
		return wire.Frame{}, wire.ErrBadMagic
	}
	var sizeBuf [8]byte
	if err := peer.TryRecvRaw(sizeBuf[:], timeout); err != nil {
		return wire.Frame{}, err
	}
	contentSize := binary.LittleEndian.Uint64(sizeBuf[:])
	content := make([]byte, contentSize)
	if contentSize > 0 {
		if err := peer.TryRecvRaw(content, timeout); err != nil {
			return wire.Frame{}, err
		}
	}
	full := make([]byte, 0, 2+8+len(content))
	full = append(full, wire.Magic[:]...)
	full = append(full, sizeBuf[:]...)
	full = append(full, content...)
	return wire.Decode(full)
}
