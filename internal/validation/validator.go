package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Validator authenticates ingest API keys against Postgres and rate-limits
// per project through Redis. Both backends are optional; with a nil pool every
// key is accepted and with a nil Redis client rate limiting is a no-op.
type Validator struct {
	db                *pgxpool.Pool
	redis             *redis.Client
	requestsPerSecond int
}

// New creates a validator over the given backends.
func New(db *pgxpool.Pool, rdb *redis.Client, requestsPerSecond int) *Validator {
	return &Validator{
		db:                db,
		redis:             rdb,
		requestsPerSecond: requestsPerSecond,
	}
}

// Enabled reports whether key validation is configured.
func (v *Validator) Enabled() bool {
	return v != nil && v.db != nil
}

// ValidateAPIKey resolves an API key to its project id. Resolved keys are
// cached in Redis for five minutes.
func (v *Validator) ValidateAPIKey(ctx context.Context, apiKey string) (string, error) {
	if !v.Enabled() {
		return "", nil
	}
	if len(apiKey) < 12 {
		return "", errors.New("invalid API key format")
	}

	cacheKey := "apikey:" + apiKey[:12]
	if v.redis != nil {
		if projectID, err := v.redis.Get(ctx, cacheKey).Result(); err == nil {
			return projectID, nil
		}
	}

	hash := sha256.Sum256([]byte(apiKey))
	keyHash := hex.EncodeToString(hash[:])

	var projectID string
	err := v.db.QueryRow(ctx, `
		SELECT project_id::text FROM api_keys
		WHERE key_hash = $1 AND is_active = true
		AND (expires_at IS NULL OR expires_at > NOW())
	`, keyHash).Scan(&projectID)
	if err != nil {
		return "", errors.New("invalid API key")
	}

	if v.redis != nil {
		v.redis.Set(ctx, cacheKey, projectID, 5*time.Minute)
	}

	go func() {
		_, err := v.db.Exec(context.Background(), `
			UPDATE api_keys
			SET last_used_at = NOW(), request_count = request_count + 1
			WHERE key_hash = $1
		`, keyHash)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to record API key use")
		}
	}()

	return projectID, nil
}

// CheckRateLimit returns false when the project exceeded its per-second
// request budget. Errors fail open.
func (v *Validator) CheckRateLimit(ctx context.Context, projectID string) bool {
	if v == nil || v.redis == nil {
		return true
	}

	key := "ratelimit:" + projectID
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		v.redis.Expire(ctx, key, time.Second)
	}

	return count <= int64(v.requestsPerSecond)
}
