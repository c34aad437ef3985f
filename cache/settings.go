// Package cache puts redis in front of rarely written singleton rows.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/domain"
)

const bonusSettingsKey = "carwash:settings:bonus"

// DefaultTTL bounds how stale settings can be when another process writes
// them directly to the database.
const DefaultTTL = 5 * time.Minute

// SettingsCache wraps a domain.SettingsStore. Reads are served from redis
// when possible, writes go to the store and drop the cached value.
// Redis failures fall through to the store.
type SettingsCache struct {
	next   domain.SettingsStore
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

var _ domain.SettingsStore = (*SettingsCache)(nil)

func NewSettingsCache(next domain.SettingsStore, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SettingsCache{next: next, redis: client, ttl: ttl, logger: logger}
}

type bonusSettingsJSON struct {
	MinCarsCount     int              `json:"min_cars_count"`
	BonusAmount      decimal.Decimal  `json:"bonus_amount"`
	ExcludedStaffIDs []domain.StaffID `json:"excluded_staff_ids"`
}

func (c *SettingsCache) GetBonusSettings(ctx context.Context) (domain.BonusSettings, error) {
	var cached bonusSettingsJSON
	if c.readCache(ctx, bonusSettingsKey, &cached) {
		return domain.BonusSettings{
			MinCarsCount:     cached.MinCarsCount,
			BonusAmount:      cached.BonusAmount,
			ExcludedStaffIDs: cached.ExcludedStaffIDs,
		}, nil
	}

	s, err := c.next.GetBonusSettings(ctx)
	if err != nil {
		return domain.BonusSettings{}, err
	}
	c.writeCache(ctx, bonusSettingsKey, bonusSettingsJSON{
		MinCarsCount:     s.MinCarsCount,
		BonusAmount:      s.BonusAmount,
		ExcludedStaffIDs: s.ExcludedStaffIDs,
	})
	return s, nil
}

func (c *SettingsCache) SaveBonusSettings(ctx context.Context, s domain.BonusSettings) error {
	if err := c.next.SaveBonusSettings(ctx, s); err != nil {
		return err
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, bonusSettingsKey).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", bonusSettingsKey).Msg("cache invalidation failed")
		}
	}
	return nil
}

func (c *SettingsCache) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *SettingsCache) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
