package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
)

func idFor(b byte) gossip.NodeID {
	var id gossip.NodeID
	id[0] = b
	return id
}

func TestUDPTransport_SendAndServeRoundTrip(t *testing.T) {
	a, err := NewUDPTransport("127.0.0.1:0", 2, 4)
	if err != nil {
		t.Fatalf("NewUDPTransport a: %v", err)
	}
	defer a.Close()

	b, err := NewUDPTransport("127.0.0.1:0", 2, 4)
	if err != nil {
		t.Fatalf("NewUDPTransport b: %v", err)
	}
	defer b.Close()

	var mu sync.Mutex
	var received []gossip.Message
	done := make(chan struct{}, 1)
	b.OnMessage(func(msg gossip.Message, recvTime time.Time) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Serve(ctx)

	bAddr := b.conn.LocalAddr().(*net.UDPAddr)
	target := gossip.NodeView{
		ID:      idFor(2),
		Address: gossip.Address{Host: bAddr.IP.String(), Port: bAddr.Port},
	}

	a.Send(gossip.Message{Sender: idFor(1), Type: gossip.MessagePing, Timestamp: 7}, target)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for b to receive the datagram")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected exactly one received message, got %d", len(received))
	}
	if received[0].Sender != idFor(1) || received[0].Type != gossip.MessagePing || received[0].Timestamp != 7 {
		t.Fatalf("expected the decoded message to match what was sent, got %+v", received[0])
	}
}

func TestUDPTransport_SendToUnreachableTargetDoesNotBlock(t *testing.T) {
	a, err := NewUDPTransport("127.0.0.1:0", 1, 1)
	if err != nil {
		t.Fatalf("NewUDPTransport: %v", err)
	}
	defer a.Close()

	unreachable := gossip.NodeView{ID: idFor(9), Address: gossip.Address{Host: "203.0.113.1", Port: 1}}
	done := make(chan struct{})
	go func() {
		a.Send(gossip.Message{Sender: idFor(1), Type: gossip.MessagePing}, unreachable)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Send to return promptly even for an unreachable target")
	}
}
