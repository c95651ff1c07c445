package transport

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
	"github.com/anthanhphan/go-gossip-engine/pkg/wire"
)

type fakeEngine struct {
	self     gossip.NodeView
	snapshot []gossip.NodeView
	stats    gossip.Stats
	handled  []gossip.Message
}

func (f *fakeEngine) Self() gossip.NodeView        { return f.self }
func (f *fakeEngine) Snapshot() []gossip.NodeView  { return f.snapshot }
func (f *fakeEngine) Stats() gossip.Stats          { return f.stats }
func (f *fakeEngine) HandleMessage(msg gossip.Message, recvTime time.Time) {
	f.handled = append(f.handled, msg)
}

func TestHTTPServer_GossipAcceptsDecodedMessage(t *testing.T) {
	eng := &fakeEngine{self: gossip.NodeView{ID: idFor(1)}}
	srv, err := NewHTTPServer(eng, 1)
	if err != nil {
		t.Fatalf("NewHTTPServer: %v", err)
	}

	body, err := (wire.JSONCodec{}).Encode(gossip.Message{Sender: idFor(2), Type: gossip.MessagePing, Timestamp: 5})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	req := httptest.NewRequest("POST", "/gossip", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202 accepted, got %d", resp.StatusCode)
	}
	if len(eng.handled) != 1 || eng.handled[0].Sender != idFor(2) {
		t.Fatalf("expected the decoded message handed to the engine, got %+v", eng.handled)
	}
}

func TestHTTPServer_GossipRejectsMalformedBody(t *testing.T) {
	eng := &fakeEngine{}
	srv, _ := NewHTTPServer(eng, 1)

	req := httptest.NewRequest("POST", "/gossip", bytes.NewReader([]byte("not json")))
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
	if len(eng.handled) != 0 {
		t.Fatalf("expected no message handed to the engine for malformed input")
	}
}

func TestHTTPServer_MembersReflectsSnapshot(t *testing.T) {
	eng := &fakeEngine{snapshot: []gossip.NodeView{{ID: idFor(3), Status: gossip.StatusOnline}}}
	srv, _ := NewHTTPServer(eng, 1)

	req := httptest.NewRequest("GET", "/members", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
