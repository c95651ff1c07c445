// Package transport holds reference Transport adapters: concrete ways to
// move gossip.Message bytes between engines. The engine itself is
// transport-agnostic; these adapters exist so the daemon in cmd/gossipd
// has something real to run.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
	"github.com/anthanhphan/go-gossip-engine/pkg/resilience"
	"github.com/anthanhphan/go-gossip-engine/pkg/wire"
)

const maxDatagramSize = 64 * 1024

// Codec is the wire contract a transport needs: something that turns a
// gossip.Message into bytes and back. wire.JSONCodec satisfies this.
type Codec interface {
	Encode(gossip.Message) ([]byte, error)
	Decode([]byte) (gossip.Message, error)
}

// UDPTransport is the primary, best-effort transport: every Tick probe
// and every reply goes out as one datagram. Sends run through a worker
// pool so a single slow resolve never blocks the engine's Tick, and a
// circuit breaker per destination stops hammering a host that is
// consistently failing to resolve or write.
type UDPTransport struct {
	conn  *net.UDPConn
	codec Codec

	pool     *resilience.WorkerPool
	breakers map[string]*resilience.CircuitBreaker

	onMessage func(msg gossip.Message, recvTime time.Time)
}

// NewUDPTransport binds a UDP socket at addr. workers/queueSize size the
// outbound worker pool (spec places no bound on transport concurrency;
// this is purely an adapter concern).
func NewUDPTransport(addr string, workers, queueSize int) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp addr %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp %s: %w", addr, err)
	}

	return &UDPTransport{
		conn:     conn,
		codec:    wire.JSONCodec{},
		pool:     resilience.NewWorkerPool(workers, queueSize),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}, nil
}

// OnMessage registers the callback invoked for every decoded inbound
// datagram; callers wire this to gossip.Engine.HandleMessage.
func (t *UDPTransport) OnMessage(fn func(msg gossip.Message, recvTime time.Time)) {
	t.onMessage = fn
}

// Serve reads datagrams until ctx is canceled or the socket is closed: a
// single goroutine per socket, decode-then-dispatch.
func (t *UDPTransport) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = t.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: udp read: %w", err)
		}

		msg, err := t.codec.Decode(buf[:n])
		if err != nil {
			logger.Warnw("transport: dropping malformed datagram", "error", err.Error())
			continue
		}
		if t.onMessage != nil {
			t.onMessage(msg, time.Now())
		}
	}
}

// Send implements gossip.SendFunc: it encodes msg and submits the write
// to the worker pool behind a per-destination circuit breaker, so a
// target that keeps failing to resolve stops consuming pool capacity.
func (t *UDPTransport) Send(msg gossip.Message, target gossip.NodeView) {
	payload, err := t.codec.Encode(msg)
	if err != nil {
		logger.Warnw("transport: failed to encode outbound message", "error", err.Error())
		return
	}

	addr := target.Address.String()
	breaker := t.breakerFor(addr)

	submitErr := t.pool.Submit(context.Background(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := breaker.Execute(ctx, func(context.Context) error {
			return t.writeTo(addr, payload)
		})
		if err != nil {
			logger.Debugw("transport: send failed", "target", addr, "error", err.Error())
		}
	})
	if submitErr != nil {
		logger.Warnw("transport: worker pool rejected send", "target", addr, "error", submitErr.Error())
	}
}

func (t *UDPTransport) writeTo(addr string, payload []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	if _, err := t.conn.WriteToUDP(payload, udpAddr); err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	return nil
}

func (t *UDPTransport) breakerFor(addr string) *resilience.CircuitBreaker {
	if cb, ok := t.breakers[addr]; ok {
		return cb
	}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             addr,
		FailureThreshold: 5,
		OpenTimeout:      5 * time.Second,
	})
	t.breakers[addr] = cb
	return cb
}

// Close stops accepting work and waits for in-flight sends to drain.
func (t *UDPTransport) Close() error {
	t.pool.Close()
	t.pool.Wait()
	return t.conn.Close()
}
