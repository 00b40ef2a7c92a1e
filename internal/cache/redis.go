package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ansingh0305/BroCab/config"
	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache carries the service's best-effort state: filter results,
// geocoded places, and short cross-instance ride locks. Everything here is
// advisory; postgres stays authoritative.
type RedisCache struct {
	client    *redis.Client
	filterTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, filterTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		filterTTL: filterTTL,
	}
}

func (c *RedisCache) GetFilter(ctx context.Context, origin, destination, date string) ([]domain.Ride, error) {
	data, err := c.client.Get(ctx, filterKey(origin, destination, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rides []domain.Ride
	if err := json.Unmarshal(data, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (c *RedisCache) SetFilter(ctx context.Context, origin, destination, date string, rides []domain.Ride) error {
	payload, err := json.Marshal(rides)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, filterKey(origin, destination, date), payload, c.filterTTL).Err()
}

// InvalidateFilter drops the cached result for one corridor after a write
// that changes what filtering would return.
func (c *RedisCache) InvalidateFilter(ctx context.Context, origin, destination, date string) error {
	return c.client.Del(ctx, filterKey(origin, destination, date)).Err()
}

// AcquireRideLock takes a short SetNX lock so two instances don't mutate
// the same ride at once. The database CAS still decides correctness; this
// just keeps contenders from burning a transaction each.
func (c *RedisCache) AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, rideLockKey(rideID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseRideLock(ctx context.Context, rideID int64) error {
	return c.client.Del(ctx, rideLockKey(rideID)).Err()
}

func (c *RedisCache) GetGeocode(ctx context.Context, place string) (lat, lon float64, ok bool, err error) {
	data, err := c.client.Get(ctx, geocodeKey(place)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	var coords [2]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return 0, 0, false, err
	}
	return coords[0], coords[1], true, nil
}

func (c *RedisCache) SetGeocode(ctx context.Context, place string, lat, lon float64) error {
	payload, _ := json.Marshal([2]float64{lat, lon})
	// Geocoding barely changes; keep results for a day.
	return c.client.Set(ctx, geocodeKey(place), payload, 24*time.Hour).Err()
}

// SeenEvent records an event id and reports whether it was already seen,
// so the at-least-once notification consumer stays idempotent.
func (c *RedisCache) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	fresh, err := c.client.SetNX(ctx, "evt:"+eventID, "1", 48*time.Hour).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func filterKey(origin, destination, date string) string {
	return fmt.Sprintf("cache:rides:%s:%s:%s", origin, destination, date)
}

func rideLockKey(rideID int64) string {
	return fmt.Sprintf("lock:ride:%d", rideID)
}

func geocodeKey(place string) string {
	return "cache:geo:" + place
}
