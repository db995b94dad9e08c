package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	CarListCachePrefix = "cars:v"
	CacheVersionKey    = "cars:version"
)

// Catalog caches public car listings. Any write to cars must call Invalidate.
type Catalog interface {
	GetCars(ctx context.Context, filter models.CarFilter) ([]models.CarPublic, bool)
	SetCars(ctx context.Context, filter models.CarFilter, cars []models.CarPublic)
	Invalidate(ctx context.Context) error
}

// Redis is a versioned catalog cache. Invalidate bumps the version so every
// old list key becomes unreachable and expires on its own.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to redis and checks the connection
func NewRedis(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		client: client,
		ttl:    cfg.TTL,
		log:    log.With().Str("component", "catalog_cache").Logger(),
	}, nil
}

// Close closes the redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

// GetCars returns the cached listing for filter
func (r *Redis) GetCars(ctx context.Context, filter models.CarFilter) ([]models.CarPublic, bool) {
	version, err := r.version(ctx)
	if err != nil {
		return nil, false
	}

	data, err := r.client.Get(ctx, listKey(version, filter)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Msg("Failed to read car list from cache")
		}
		return nil, false
	}

	var cars []models.CarPublic
	if err := json.Unmarshal(data, &cars); err != nil {
		r.log.Warn().Err(err).Msg("Failed to unmarshal cached car list")
		return nil, false
	}
	return cars, true
}

// SetCars stores a listing under the current version
func (r *Redis) SetCars(ctx context.Context, filter models.CarFilter, cars []models.CarPublic) {
	version, err := r.version(ctx)
	if err != nil {
		return
	}

	data, err := json.Marshal(cars)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to marshal car list for cache")
		return
	}

	if err := r.client.Set(ctx, listKey(version, filter), data, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to cache car list")
	}
}

// Invalidate drops every cached listing by bumping the version
func (r *Redis) Invalidate(ctx context.Context) error {
	version, err := r.client.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	r.log.Debug().Int64("version", version).Msg("Catalog cache invalidated")
	return nil
}

func (r *Redis) version(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, CacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so a concurrent Invalidate is not overwritten
		if err := r.client.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return r.client.Get(ctx, CacheVersionKey).Int64()
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to read cache version")
	}
	return version, err
}

func listKey(version int64, filter models.CarFilter) string {
	return fmt.Sprintf("%s%d:%s", CarListCachePrefix, version, filter.CacheKey())
}

// Nop is used when no redis is configured
type Nop struct{}

func (Nop) GetCars(context.Context, models.CarFilter) ([]models.CarPublic, bool) { return nil, false }

func (Nop) SetCars(context.Context, models.CarFilter, []models.CarPublic) {}

func (Nop) Invalidate(context.Context) error { return nil }

var (
	_ Catalog = (*Redis)(nil)
	_ Catalog = Nop{}
)
