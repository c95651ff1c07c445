// Package discovery answers the one question gossip.Engine itself never
// asks: where do meet()/join() targets come from at startup. This is an
// adapter the daemon wires in; the engine has no notion of it.
package discovery

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
)

// Seed is one entry in the shared registry: enough to call
// gossip.Engine.Meet without waiting for a reply to learn the peer's
// identity, since Meet takes a full NodeView up front.
type Seed struct {
	ID   gossip.NodeID
	Host string
	Port int
}

func (s Seed) member() string {
	return fmt.Sprintf("%s|%s:%d", s.ID.String(), s.Host, s.Port)
}

func parseSeedMember(raw string) (Seed, bool) {
	idPart, addrPart, ok := strings.Cut(raw, "|")
	if !ok {
		return Seed{}, false
	}
	host, portStr, ok := strings.Cut(addrPart, ":")
	if !ok {
		return Seed{}, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Seed{}, false
	}

	idBytes, err := hex.DecodeString(idPart)
	if err != nil || len(idBytes) != 16 {
		return Seed{}, false
	}
	var id gossip.NodeID
	copy(id[:], idBytes)
	return Seed{ID: id, Host: host, Port: port}, true
}

// RedisSeeds maintains a shared set of live node addresses under one
// cluster key, each entry refreshed on a TTL so a crashed node's seed
// entry expires on its own instead of requiring explicit cleanup.
type RedisSeeds struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSeeds constructs a seed registry against an existing client.
// key namespaces the cluster (so unrelated clusters sharing a Redis
// instance do not see each other's seeds); ttl bounds how long a
// registered seed is considered live without a refresh.
func NewRedisSeeds(client *redis.Client, key string, ttl time.Duration) *RedisSeeds {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSeeds{client: client, key: key, ttl: ttl}
}

// Register advertises seed as live, refreshing its TTL if already
// present.
func (s *RedisSeeds) Register(ctx context.Context, seed Seed) error {
	member := redis.Z{Score: float64(time.Now().Add(s.ttl).Unix()), Member: seed.member()}
	if err := s.client.ZAdd(ctx, s.key, member).Err(); err != nil {
		return fmt.Errorf("discovery: register seed %s: %w", seed.member(), err)
	}
	return nil
}

// Deregister removes seed from the set, used on graceful leave.
func (s *RedisSeeds) Deregister(ctx context.Context, seed Seed) error {
	if err := s.client.ZRem(ctx, s.key, seed.member()).Err(); err != nil {
		return fmt.Errorf("discovery: deregister seed %s: %w", seed.member(), err)
	}
	return nil
}

// Seeds returns every registered seed whose TTL has not expired,
// trimming expired entries from the set as a side effect. Malformed
// entries (from an incompatible client version) are skipped rather than
// failing the whole call.
func (s *RedisSeeds) Seeds(ctx context.Context) ([]Seed, error) {
	now := float64(time.Now().Unix())

	if err := s.client.ZRemRangeByScore(ctx, s.key, "-inf", fmt.Sprintf("(%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("discovery: prune expired seeds: %w", err)
	}

	raw, err := s.client.ZRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("discovery: list seeds: %w", err)
	}

	seeds := make([]Seed, 0, len(raw))
	for _, member := range raw {
		if seed, ok := parseSeedMember(member); ok {
			seeds = append(seeds, seed)
		}
	}
	return seeds, nil
}
