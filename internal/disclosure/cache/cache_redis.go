package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dim/internal/disclosure/models"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

const redisKeyPrefix = "dim:proof:"

// RedisCache stores one hash per holder, keyed by relying-party domain, so a
// holder's proofs can be dropped with a single DEL.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

type redisEntry struct {
	Proof   *models.Proof `json:"proof"`
	Expires int64         `json:"expires"`
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, logger: logger, now: time.Now}
}

func holderKey(holder domain.Address) string {
	return redisKeyPrefix + strings.ToLower(holder.String())
}

func (c *RedisCache) Get(ctx context.Context, holder domain.Address, relyingParty string) (*models.Proof, error) {
	raw, err := c.client.HGet(ctx, holderKey(holder), relyingParty).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget proof: %w: %w", sentinel.ErrUnavailable, err)
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil || e.Proof == nil {
		c.Invalidate(ctx, holder, relyingParty)
		return nil, sentinel.ErrNotFound
	}
	if c.now().UnixMilli() >= e.Expires {
		c.Invalidate(ctx, holder, relyingParty)
		return nil, sentinel.ErrNotFound
	}
	return e.Proof, nil
}

// Set stores proof until ttl passes. The holder hash lives as long as its
// newest entry.
func (c *RedisCache) Set(ctx context.Context, holder domain.Address, relyingParty string, proof *models.Proof, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(redisEntry{Proof: proof, Expires: c.now().Add(ttl).UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode proof: %w", err)
	}
	key := holderKey(holder)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, relyingParty, raw)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset proof: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Invalidate drops the proof for one relying party. A failed delete is
// logged; the entry still expires on its own.
func (c *RedisCache) Invalidate(ctx context.Context, holder domain.Address, relyingParty string) {
	if err := c.client.HDel(ctx, holderKey(holder), relyingParty).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate cached proof",
			"holder", holder,
			"domain", relyingParty,
			"error", err,
		)
	}
}

func (c *RedisCache) InvalidateHolder(ctx context.Context, holder domain.Address) {
	if err := c.client.Del(ctx, holderKey(holder)).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate cached proofs", "holder", holder, "error", err)
	}
}
