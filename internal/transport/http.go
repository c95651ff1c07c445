package transport

import (
	"context"
	"time"

	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
	"github.com/anthanhphan/go-gossip-engine/pkg/idgen"
	"github.com/anthanhphan/go-gossip-engine/pkg/wire"
)

// Engine is the narrow slice of gossip.Engine the HTTP surface needs;
// declared here instead of depending on the concrete type so tests can
// fake it.
type Engine interface {
	Self() gossip.NodeView
	Snapshot() []gossip.NodeView
	Stats() gossip.Stats
	HandleMessage(msg gossip.Message, recvTime time.Time)
}

// HTTPServer is the reliable, inspectable counterpart to UDPTransport:
// POST /gossip accepts a message the same way a UDP datagram would, and
// GET /members and GET /self expose the table for operators.
type HTTPServer struct {
	app    *fiber.App
	engine Engine
	codec  Codec
	ids    *idgen.Snowflake
}

// NewHTTPServer wires the fiber app with the standard recover+logger
// middleware stack. POST /gossip draws a snowflake-generated trace ID
// for each request and returns it in the body of a 400 response; the
// GET routes do not use trace IDs.
func NewHTTPServer(engine Engine, nodeOrdinal int64) (*HTTPServer, error) {
	ids, err := idgen.New(nodeOrdinal, &idgen.SystemClock{})
	if err != nil {
		return nil, err
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &HTTPServer{
		app:    app,
		engine: engine,
		codec:  wire.JSONCodec{},
		ids:    ids,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	s.app.Post("/gossip", s.handleGossip)
	s.app.Get("/members", s.handleMembers)
	s.app.Get("/self", s.handleSelf)
	s.app.Get("/stats", s.handleStats)
}

func (s *HTTPServer) handleGossip(c *fiber.Ctx) error {
	traceID, err := s.ids.Next()
	if err != nil {
		sdklogger.Warnw("http transport: trace id generation failed", "error", err.Error())
	}

	msg, err := s.codec.Decode(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "malformed gossip message",
			"trace_id": traceID,
		})
	}

	s.engine.HandleMessage(msg, time.Now())
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *HTTPServer) handleMembers(c *fiber.Ctx) error {
	return c.JSON(s.engine.Snapshot())
}

func (s *HTTPServer) handleSelf(c *fiber.Ctx) error {
	return c.JSON(s.engine.Self())
}

func (s *HTTPServer) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.engine.Stats())
}

// Start blocks serving on addr.
func (s *HTTPServer) Start(addr string) error {
	return s.app.Listen(addr)
}

// Stop gracefully shuts the HTTP server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
