// Package cache keeps short-lived copies of messaging platform lookups in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

const keyPrefix = "crm:subscriber:"

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url inválida: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("falha ao conectar no redis: %w", err)
	}
	return client, nil
}

// CachedPlatform decorates a MessagingPlatform, caching subscriber snapshots.
// Writes go straight through and evict the cached snapshot.
type CachedPlatform struct {
	usecase.MessagingPlatform
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

var _ usecase.SubscriberInvalidator = (*CachedPlatform)(nil)

func NewCachedPlatform(inner usecase.MessagingPlatform, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedPlatform {
	if log == nil {
		log = logger.Global()
	}
	return &CachedPlatform{MessagingPlatform: inner, rdb: rdb, ttl: ttl, log: log.Named("subscriber_cache")}
}

func (c *CachedPlatform) GetSubscriber(ctx context.Context, subscriberID string) (*entity.Subscriber, error) {
	key := keyPrefix + subscriberID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var sub entity.Subscriber
		if jsonErr := json.Unmarshal(raw, &sub); jsonErr == nil {
			return &sub, nil
		}
		c.rdb.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Falha ao ler cache", logger.SubscriberID(subscriberID), zap.Error(err))
	}

	sub, err := c.MessagingPlatform.GetSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sub); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("Falha ao gravar cache", logger.SubscriberID(subscriberID), zap.Error(err))
		}
	}
	return sub, nil
}

func (c *CachedPlatform) AddTag(ctx context.Context, subscriberID, tag string) error {
	defer c.Invalidate(ctx, subscriberID)
	return c.MessagingPlatform.AddTag(ctx, subscriberID, tag)
}

func (c *CachedPlatform) RemoveTag(ctx context.Context, subscriberID, tag string) error {
	defer c.Invalidate(ctx, subscriberID)
	return c.MessagingPlatform.RemoveTag(ctx, subscriberID, tag)
}

func (c *CachedPlatform) SetCustomField(ctx context.Context, subscriberID, field, value string) error {
	defer c.Invalidate(ctx, subscriberID)
	return c.MessagingPlatform.SetCustomField(ctx, subscriberID, field, value)
}

// Invalidate drops the cached snapshot. The webhook processor calls it for
// every event so the next read sees fresh platform data.
func (c *CachedPlatform) Invalidate(ctx context.Context, subscriberID string) {
	if subscriberID == "" {
		return
	}
	if err := c.rdb.Del(ctx, keyPrefix+subscriberID).Err(); err != nil {
		c.log.Warn("Falha ao invalidar cache", logger.SubscriberID(subscriberID), zap.Error(err))
	}
}
