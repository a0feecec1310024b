package channel

import (
	"context"
	"testing"
	"time"

	"github.com/webxrhost/runtime/transport"
)

func dialedPair(t *testing.T) (client, server *transport.Peer) {
	t.Helper()
	srv, err := transport.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	serverPeer := make(chan *transport.Peer, 1)
	go func() {
		for {
			accepted, err := srv.TryAccept(context.Background(), 2*time.Second, func(p *transport.Peer) {
				serverPeer <- p
			})
			if err != nil || accepted {
				return
			}
		}
	}()

	c, err := transport.Dial(context.Background(), srv.Port(), 99)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c, <-serverPeer
}

func TestSendRecvCorrelatesID(t *testing.T) {
	clientPeer, serverPeer := dialedPair(t)
	defer clientPeer.Close()
	defer serverPeer.Close()

	clientCh := New(KindEvent, clientPeer)
	serverCh := New(KindEvent, serverPeer)

	id, err := clientCh.Send(7, []byte("base-payload"), [][]byte{[]byte("seg1")})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := serverCh.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if msg.ID != id {
		t.Fatalf("got id %d want %d", msg.ID, id)
	}
	if msg.Type != 7 || string(msg.Base) != "base-payload" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.Segments) != 1 || string(msg.Segments[0]) != "seg1" {
		t.Fatalf("unexpected segments: %+v", msg.Segments)
	}

	if err := serverCh.Reply(8, msg.ID, []byte("response"), nil); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	reply, err := clientCh.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("Recv reply: %v", err)
	}
	if reply.ID != id {
		t.Fatalf("reply id %d does not correlate with request id %d", reply.ID, id)
	}
}

func TestChannelKindsHaveIndependentIDSpaces(t *testing.T) {
	clientPeer, serverPeer := dialedPair(t)
	defer clientPeer.Close()
	defer serverPeer.Close()

	events := New(KindEvent, clientPeer)
	cmdbufs := New(KindCommandBuffer, clientPeer)

	id1, _ := events.Send(1, nil, nil)
	id2, _ := cmdbufs.Send(1, nil, nil)
	if id1 != 1 || id2 != 1 {
		t.Fatalf("expected both channel kinds to start their own id sequence at 1, got %d and %d", id1, id2)
	}
}
