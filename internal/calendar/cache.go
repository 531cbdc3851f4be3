package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores holiday answers keyed by yyyy-MM-dd.
// Get reports a miss for absent or expired entries.
type Cache interface {
	Get(ctx context.Context, date string) (HolidayInfo, bool)
	Set(ctx context.Context, date string, info HolidayInfo, ttl time.Duration)
	Clear(ctx context.Context)
}

type memoryEntry struct {
	info      HolidayInfo
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, date string) (HolidayInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[date]
	if !ok {
		return HolidayInfo{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, date)
		return HolidayInfo{}, false
	}
	return e.info, true
}

func (c *MemoryCache) Set(_ context.Context, date string, info HolidayInfo, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[date] = memoryEntry{info: info, expiresAt: c.now().Add(ttl)}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

const redisKeyPrefix = "bidtrack:holiday:"

// RedisCache shares holiday answers between processes.
// Redis errors are logged and treated as misses.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisCache(rdb *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, logger: logger}
}

// NewRedisClient connects to addr. Nothing is dialed until first use.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *RedisCache) Get(ctx context.Context, date string) (HolidayInfo, bool) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+date).Bytes()
	if errors.Is(err, redis.Nil) {
		return HolidayInfo{}, false
	}
	if err != nil {
		c.logger.Warn("Redis holiday cache read failed, treating as miss",
			zap.String("date", date),
			zap.Error(err),
		)
		return HolidayInfo{}, false
	}

	var info HolidayInfo
	if err := json.Unmarshal(data, &info); err != nil {
		c.logger.Warn("Discarding corrupt holiday cache entry",
			zap.String("date", date),
			zap.Error(err),
		)
		return HolidayInfo{}, false
	}
	return info, true
}

func (c *RedisCache) Set(ctx context.Context, date string, info HolidayInfo, ttl time.Duration) {
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+date, data, ttl).Err(); err != nil {
		c.logger.Warn("Redis holiday cache write failed",
			zap.String("date", date),
			zap.Error(err),
		)
	}
}

// Clear removes every cached holiday answer, leaving other keys alone.
func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis holiday cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Redis holiday cache clear failed", zap.Error(err))
	}
}
