package calls

import (
	"context"
	"errors"
	"time"

	"voiceagent-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisGate caps concurrent calls per agent using atomic Redis counters.
// The slot TTL guards against leaked slots when a terminal webhook is lost or
// the process crashes mid-call.
type RedisGate struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

// defaultSlotTTL bounds a slot's life to well past any reasonable call.
const defaultSlotTTL = 4 * time.Hour

func NewRedisGate(rdb *redis.Client, limit int, ttl time.Duration) (*RedisGate, error) {
	if rdb == nil {
		return nil, errors.New("calls: redis client required for gate")
	}
	if limit <= 0 {
		return nil, errors.New("calls: gate limit must be > 0")
	}
	if ttl <= 0 {
		ttl = defaultSlotTTL
	}
	return &RedisGate{rdb: rdb, limit: limit, ttl: ttl}, nil
}

func gateKey(agentID string) string {
	return "calls:active:" + agentID
}

func (g *RedisGate) Acquire(ctx context.Context, agentID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, g.rdb, gateKey(agentID), g.limit, g.ttl)
}

func (g *RedisGate) Release(ctx context.Context, agentID string) error {
	return utils.ReleaseConcurrencyCap(ctx, g.rdb, gateKey(agentID))
}
