package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
)

// RevocationCache remembers revoked access token ids until they would have
// expired anyway. It only short-circuits rejections; the token tables stay
// the source of truth.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Close() error
}

// RedisClient wraps the redis client with the revocation denylist helpers
type RedisClient struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config, logger *slog.Logger) (*RedisClient, error) {
	logger.Info("🔌 [Redis] Connecting to Redis...",
		"host", cfg.Redis.Host,
		"port", cfg.Redis.Port,
		"db", cfg.Redis.Database,
	)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       int(cfg.Redis.Database),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [Redis] Redis connection established")

	return NewRedisClientWith(client, logger, time.Now), nil
}

// NewRedisClientWith wraps an existing redis.Client; tests pass a miniredis-backed client and a fixed clock.
func NewRedisClientWith(client *redis.Client, logger *slog.Logger, now func() time.Time) *RedisClient {
	if now == nil {
		now = time.Now
	}
	return &RedisClient{
		client: client,
		logger: logger,
		now:    now,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("token:revoked:%s", tokenID)
}

// MarkRevoked records tokenID until expiresAt. Already expired tokens are skipped.
func (r *RedisClient) MarkRevoked(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		r.logger.Error("❌ [Redis] Failed to mark token revoked",
			"token_id", tokenID,
			"error", err,
		)
		return err
	}

	r.logger.Debug("🚫 [Redis] Token added to denylist",
		"token_id", tokenID,
		"ttl", ttl,
	)

	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (r *RedisClient) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

// GetClient returns the underlying Redis client (for advanced use cases)
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// NoOpRevocationCache is used when Redis is not available; every lookup
// falls through to the database.
type NoOpRevocationCache struct{}

func (NoOpRevocationCache) MarkRevoked(context.Context, string, time.Time) error { return nil }

func (NoOpRevocationCache) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func (NoOpRevocationCache) Close() error { return nil }
