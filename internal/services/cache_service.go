package services

import (
	"context"
	"time"
)

// CacheService is the slice of the Redis client the services depend on.
// A nil CacheService disables caching and event publishing.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, message interface{}) error
}
