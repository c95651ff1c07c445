// Package wire provides reference Serializer adapters for the gossip
// engine. The engine itself never serializes a byte; these adapters are
// what a real transport would call before/after dispatch.
package wire

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// wireNode mirrors gossip.NodeView but drops the three local-only fields
// (SeenTime, SuspicionCount, LastSuspected) that never cross the wire.
type wireNode struct {
	ID          [16]byte          `json:"id"`
	Host        string            `json:"host,omitempty"`
	Port        int               `json:"port,omitempty"`
	ConfigEpoch uint64            `json:"config_epoch"`
	Heartbeat   uint64            `json:"heartbeat"`
	Version     uint64            `json:"version"`
	Status      uint8             `json:"status"`
	Role        string            `json:"role,omitempty"`
	Region      string            `json:"region,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type wireMessage struct {
	Sender    [16]byte   `json:"sender"`
	Type      uint8      `json:"type"`
	Timestamp uint64     `json:"timestamp"`
	Entries   []wireNode `json:"entries"`
}

func toWireNode(n gossip.NodeView) wireNode {
	return wireNode{
		ID:          n.ID,
		Host:        n.Address.Host,
		Port:        n.Address.Port,
		ConfigEpoch: n.ConfigEpoch,
		Heartbeat:   n.Heartbeat,
		Version:     n.Version,
		Status:      uint8(n.Status),
		Role:        n.Role,
		Region:      n.Region,
		Metadata:    n.Metadata,
	}
}

func fromWireNode(w wireNode) gossip.NodeView {
	return gossip.NodeView{
		ID:          w.ID,
		Address:     gossip.Address{Host: w.Host, Port: w.Port},
		ConfigEpoch: w.ConfigEpoch,
		Heartbeat:   w.Heartbeat,
		Version:     w.Version,
		Status:      gossip.Status(w.Status),
		Role:        w.Role,
		Region:      w.Region,
		Metadata:    w.Metadata,
	}
}

// JSONCodec implements Encode/Decode for gossip.Message using
// json-iterator's standard-library-compatible configuration. It is the
// codec the HTTP and UDP reference transports use by default.
type JSONCodec struct{}

// Encode serializes m, dropping NodeView's local-only fields.
func (JSONCodec) Encode(m gossip.Message) ([]byte, error) {
	w := wireMessage{
		Sender:    m.Sender,
		Type:      uint8(m.Type),
		Timestamp: m.Timestamp,
	}
	if len(m.Entries) > 0 {
		w.Entries = make([]wireNode, len(m.Entries))
		for i, e := range m.Entries {
			w.Entries[i] = toWireNode(e)
		}
	}
	b, err := jsonAPI.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("wire: encode message: %w", err)
	}
	return b, nil
}

// Decode reverses Encode. Fields not carried on the wire (SeenTime,
// SuspicionCount, LastSuspected) are left at their zero value; the
// caller's table merge is expected to stamp SeenTime on receipt.
func (JSONCodec) Decode(b []byte) (gossip.Message, error) {
	var w wireMessage
	if err := jsonAPI.Unmarshal(b, &w); err != nil {
		return gossip.Message{}, fmt.Errorf("wire: decode message: %w", err)
	}
	msg := gossip.Message{
		Sender:    w.Sender,
		Type:      gossip.MessageType(w.Type),
		Timestamp: w.Timestamp,
	}
	if len(w.Entries) > 0 {
		msg.Entries = make([]gossip.NodeView, len(w.Entries))
		for i, e := range w.Entries {
			msg.Entries[i] = fromWireNode(e)
		}
	}
	return msg, nil
}
