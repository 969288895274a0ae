package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/mockview/internal/models"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration // 0 keeps entries forever
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) GetReport(ctx context.Context, sessionID string) (*models.Report, bool, error) {
	key := reportKey(sessionID)
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var r models.Report
	if err := json.Unmarshal([]byte(s), &r); err != nil || r.Validate() != nil {
		// data corrupt: treat as miss by deleting
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *RedisCache) SetReport(ctx context.Context, report *models.Report) error {
	if report == nil || report.SessionID == "" {
		return errors.New("report without session id")
	}
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	// SetNX: the first writer wins, a report is immutable once stored
	return c.rdb.SetNX(ctx, reportKey(report.SessionID), b, c.ttl).Err()
}
