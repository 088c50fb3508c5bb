package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	customError "github.com/finbranch/loan-engine/pkg/errors"
)

// Store reads settings from the system_config table through a short-lived
// redis cache. Keys missing from the table fall back to the configured
// defaults so a fresh database still underwrites sensibly.
type Store struct {
	db       *sqlx.DB
	cache    *redis.Client
	defaults map[string]string
	ttl      time.Duration
}

func NewStore(db *sqlx.DB, cache *redis.Client, defaults map[string]string, ttl time.Duration) *Store {
	return &Store{
		db:       db,
		cache:    cache,
		defaults: defaults,
		ttl:      ttl,
	}
}

func cacheKey(key string) string {
	return "settings:" + key
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			return cached, nil
		}
		// a cache miss or a cache outage both fall through to the database
	}

	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT config_value FROM system_config WHERE config_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		fallback, ok := s.defaults[key]
		if !ok {
			return "", customError.WrapInvalidArgument(fmt.Sprintf("unknown setting %q", key))
		}
		value = fallback
	} else if err != nil {
		return "", customError.WrapPersistenceFailure(err)
	}

	if s.cache != nil {
		// cache write failure is not fatal
		_ = s.cache.Set(ctx, cacheKey(key), value, s.ttl).Err()
	}

	return value, nil
}
