// Package app wires the gossip engine to its collaborators: config,
// transports, seed discovery, and the OS signal/ticker driver loop. The
// engine core never does any of this itself; this is the one place that
// decides when Tick fires and where bytes come from.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/anthanhphan/go-gossip-engine/internal/config"
	"github.com/anthanhphan/go-gossip-engine/internal/discovery"
	"github.com/anthanhphan/go-gossip-engine/internal/transport"
	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
)

// App owns one running engine plus its transports and background
// tickers.
type App struct {
	cfg *config.Config

	actor *engineActor
	udp   *transport.UDPTransport
	http  *transport.HTTPServer
	seeds *discovery.RedisSeeds

	self   discovery.Seed
	cancel context.CancelFunc
}

// New constructs an App from configPath (empty selects the ENV-driven
// default, per internal/config.Load).
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitLogger(&cfg.Logger)

	nodeID, err := resolveNodeID(cfg.Node.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve node id: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Discovery.RedisAddr,
		Password: cfg.Discovery.RedisPassword,
		DB:       cfg.Discovery.RedisDB,
	})
	seeds := discovery.NewRedisSeeds(redisClient, cfg.Discovery.ClusterKey, cfg.Discovery.SeedTTL)

	udp, err := transport.NewUDPTransport(
		fmt.Sprintf("%s:%d", cfg.Node.Host, cfg.Transport.UDPPort),
		cfg.Transport.SendWorkers, cfg.Transport.SendQueueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init udp transport: %w", err)
	}

	self := gossip.NodeView{
		ID:      nodeID,
		Address: gossip.Address{Host: cfg.Node.Host, Port: cfg.Transport.UDPPort},
		Role:    cfg.Node.Role,
		Region:  cfg.Node.Region,
	}

	a := &App{
		cfg:   cfg,
		udp:   udp,
		seeds: seeds,
		self:  discovery.Seed{ID: nodeID, Host: cfg.Node.Host, Port: cfg.Transport.UDPPort},
	}

	engine, err := gossip.New(self, udp.Send,
		gossip.WithConfig(gossip.Config{
			HeartbeatInterval:  cfg.Gossip.HeartbeatInterval,
			FailureTimeout:     cfg.Gossip.FailureTimeout,
			GossipFanout:       cfg.Gossip.GossipFanout,
			PiggybackSize:      cfg.Gossip.PiggybackSize,
			SuspicionThreshold: cfg.Gossip.SuspicionThreshold,
		}),
		gossip.WithEventSink(gossip.EventSinkFunc(a.onTransition)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init gossip engine: %w", err)
	}
	actor := newEngineActor(engine, cfg.Transport.SendQueueSize)
	a.actor = actor
	udp.OnMessage(actor.HandleMessage)

	httpServer, err := transport.NewHTTPServer(actor, int64(cfg.Transport.HTTPPort))
	if err != nil {
		return nil, fmt.Errorf("failed to init http transport: %w", err)
	}
	a.http = httpServer

	return a, nil
}

// onTransition logs every observed status change and keeps the Redis
// seed set in sync: a peer declared failed is no longer worth
// advertising as a join target for new nodes.
func (a *App) onTransition(current gossip.NodeView, previous gossip.Status) {
	logger.Infow("gossip: peer transition",
		"peer", current.ID.String(), "from", previous.String(), "to", current.Status.String())

	if current.Status == gossip.StatusFailed {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		failed := discovery.Seed{ID: current.ID, Host: current.Address.Host, Port: current.Address.Port}
		if err := a.seeds.Deregister(ctx, failed); err != nil {
			logger.Warnw("discovery: failed to deregister failed peer", "peer", current.ID.String(), "error", err.Error())
		}
	}
}

func resolveNodeID(configured string) (gossip.NodeID, error) {
	if configured == "" {
		return gossip.NodeID(uuid.New()), nil
	}
	id, err := uuid.Parse(configured)
	if err != nil {
		return gossip.NodeID{}, fmt.Errorf("invalid node id %q: %w", configured, err)
	}
	return gossip.NodeID(id), nil
}

// Run joins the cluster via registered seeds, starts both transports and
// the tick/cleanup drivers, and blocks until SIGINT/SIGTERM, leaving
// gracefully on the way out.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.seeds.Register(ctx, a.self); err != nil {
		logger.Warnw("discovery: failed to register self as a seed", "error", err.Error())
	}
	if err := a.joinSeeds(ctx); err != nil {
		logger.Warnw("gossip: failed to join any seed on startup", "error", err.Error())
	}

	serveErrCh := make(chan error, 2)
	go func() {
		if err := a.udp.Serve(ctx); err != nil {
			serveErrCh <- fmt.Errorf("udp transport: %w", err)
		}
	}()
	go func() {
		logger.Infow("gossip: http transport starting", "port", a.cfg.Transport.HTTPPort)
		if err := a.http.Start(fmt.Sprintf(":%d", a.cfg.Transport.HTTPPort)); err != nil {
			serveErrCh <- fmt.Errorf("http transport: %w", err)
		}
	}()

	go a.driveTicks(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("gossip: shutdown signal received", "signal", sig.String())
	case err := <-serveErrCh:
		runErr = err
		logger.Errorw("gossip: transport exited unexpectedly", "error", err.Error())
	}

	logger.Info("gossip: shutting down")
	a.actor.Leave(a.actor.Self().ID)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.http.Stop(shutdownCtx); err != nil {
		logger.Warnw("gossip: http shutdown error", "error", err.Error())
	}
	if err := a.udp.Close(); err != nil {
		logger.Warnw("gossip: udp shutdown error", "error", err.Error())
	}
	a.actor.Close()
	if err := a.seeds.Deregister(shutdownCtx, a.self); err != nil {
		logger.Warnw("discovery: failed to deregister self on shutdown", "error", err.Error())
	}

	return runErr
}

func (a *App) joinSeeds(ctx context.Context) error {
	seeds, err := a.seeds.Seeds(ctx)
	if err != nil {
		return err
	}
	joined := 0
	for _, seed := range seeds {
		if seed.ID == a.self.ID {
			continue
		}
		a.actor.Meet(gossip.NodeView{ID: seed.ID, Address: gossip.Address{Host: seed.Host, Port: seed.Port}})
		joined++
	}
	logger.Infow("gossip: seed join attempted", "targets", joined)
	return nil
}

// driveTicks is the clock driver: the engine itself never sleeps, so
// something external must call Tick and CleanupExpired on a schedule.
// Both go through the engine actor, the same as every inbound message,
// so they never overlap a concurrent HandleMessage. It also re-registers
// this node's seed entry every half seed TTL so the entry does not
// expire while the node is alive.
func (a *App) driveTicks(ctx context.Context) {
	tick := time.NewTicker(a.cfg.Gossip.HeartbeatInterval)
	defer tick.Stop()
	cleanup := time.NewTicker(a.cfg.Gossip.CleanupInterval)
	defer cleanup.Stop()
	seedTTL := a.cfg.Discovery.SeedTTL
	if seedTTL <= 0 {
		seedTTL = 30 * time.Second
	}
	refresh := time.NewTicker(seedTTL / 2)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			a.actor.Tick()
		case <-cleanup.C:
			a.actor.CleanupExpired(a.cfg.Gossip.CleanupTimeout)
		case <-refresh.C:
			if err := a.seeds.Register(ctx, a.self); err != nil {
				logger.Warnw("discovery: failed to refresh self seed", "error", err.Error())
			}
		}
	}
}
