// Package config loads the daemon's configuration the way the rest of
// the corpus does it: a YAML file parsed through gosdk/conflux, layered
// over hardcoded defaults, selected by an ENV-driven path.
package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

// Config holds the gossip daemon's configuration.
type Config struct {
	Node      NodeConfig      `json:"node" yaml:"node"`
	Gossip    GossipConfig    `json:"gossip" yaml:"gossip"`
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Logger    logger.Config   `json:"logger" yaml:"logger"`
}

// NodeConfig identifies this process within the cluster.
type NodeConfig struct {
	ID     string `json:"id" yaml:"id"`
	Host   string `json:"host" yaml:"host"`
	Role   string `json:"role" yaml:"role"`
	Region string `json:"region" yaml:"region"`
}

// GossipConfig mirrors gossip.Config, expressed in config-file terms
// (time.Duration fields serialize as nanoseconds via conflux's yaml
// layer, matching how the rest of the corpus sizes duration fields).
type GossipConfig struct {
	HeartbeatInterval  time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	FailureTimeout     time.Duration `json:"failure_timeout" yaml:"failure_timeout"`
	GossipFanout       int           `json:"gossip_fanout" yaml:"gossip_fanout"`
	PiggybackSize      int           `json:"piggyback_size" yaml:"piggyback_size"`
	SuspicionThreshold int           `json:"suspicion_threshold" yaml:"suspicion_threshold"`
	CleanupInterval    time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	CleanupTimeout     time.Duration `json:"cleanup_timeout" yaml:"cleanup_timeout"`
}

// TransportConfig configures both reference transports.
type TransportConfig struct {
	UDPPort       int `json:"udp_port" yaml:"udp_port"`
	HTTPPort      int `json:"http_port" yaml:"http_port"`
	SendWorkers   int `json:"send_workers" yaml:"send_workers"`
	SendQueueSize int `json:"send_queue_size" yaml:"send_queue_size"`
}

// DiscoveryConfig configures the Redis-backed seed registry.
type DiscoveryConfig struct {
	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `json:"redis_password" yaml:"redis_password"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db"`
	ClusterKey    string        `json:"cluster_key" yaml:"cluster_key"`
	SeedTTL       time.Duration `json:"seed_ttl" yaml:"seed_ttl"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Host: "127.0.0.1",
			Role: "member",
		},
		Gossip: GossipConfig{
			HeartbeatInterval:  100 * time.Millisecond,
			FailureTimeout:     2000 * time.Millisecond,
			GossipFanout:       3,
			PiggybackSize:      2,
			SuspicionThreshold: 3,
			CleanupInterval:    time.Minute,
			CleanupTimeout:     10 * time.Minute,
		},
		Transport: TransportConfig{
			UDPPort:       7946,
			HTTPPort:      7947,
			SendWorkers:   8,
			SendQueueSize: 256,
		},
		Discovery: DiscoveryConfig{
			RedisAddr:  "localhost:6379",
			ClusterKey: "gossip:seeds",
			SeedTTL:    30 * time.Second,
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from path, or from an ENV-selected default
// path when path is empty.
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
