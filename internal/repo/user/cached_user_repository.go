package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/infra/logging"
)

var (
	// ErrCacheMiss is returned by a Cache when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
	// ErrNotMigratable is returned when the wrapped repository has no schema to apply.
	ErrNotMigratable = errors.New("repository does not support migrations")
)

// CacheConfig holds configuration for the Redis read-through cache.
// The cache is disabled when Addr is empty.
type CacheConfig struct {
	Addr      string        `env:"ADDR" envDefault:""`
	Password  string        `env:"PASSWORD" envDefault:""`
	DB        int           `env:"DB" envDefault:"0"`
	TTL       time.Duration `env:"TTL" envDefault:"1h"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"userdir:user:"`
}

// Cache is the key/value store behind CachedUserRepository.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// CachedUserRepository decorates a Repository with a read-through cache of found users.
// Users are immutable once created, so cached entries never go stale.
// Not-found results are never cached, since the username may be created later.
type CachedUserRepository struct {
	next   Repository
	cache  Cache
	ttl    time.Duration
	prefix string
	log    logging.Logger
}

var (
	_ Repository = (*CachedUserRepository)(nil)
	_ Migrator   = (*CachedUserRepository)(nil)
)

// CachedUserRepositoryFactory wraps next with a Redis cache when cfg.Addr is set,
// and returns next unchanged otherwise.
func CachedUserRepositoryFactory(next RepositoryFactory, cfg CacheConfig) RepositoryFactory {
	if cfg.Addr == "" {
		return next
	}

	return func(ctx context.Context) (Repository, error) {
		cache, err := NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("new redis cache: %w", err)
		}

		repo, err := next(ctx)
		if err != nil {
			_ = cache.Close()

			return nil, err
		}

		return NewCachedUserRepository(repo, cache, cfg), nil
	}
}

// NewCachedUserRepository wraps next with cache.
func NewCachedUserRepository(next Repository, cache Cache, cfg CacheConfig) *CachedUserRepository {
	return &CachedUserRepository{
		next:   next,
		cache:  cache,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
		log:    logging.GetLogger("repo.user.cached_user_repository"),
	}
}

// Insert implements Repository.Insert by delegating to the wrapped repository.
func (r *CachedUserRepository) Insert(ctx context.Context, newUser domain.NewUser) (domain.User, error) {
	//nolint:wrapcheck
	return r.next.Insert(ctx, newUser)
}

// FindByUsername implements Repository.FindByUsername, consulting the cache first.
// Cache failures are logged and fall through to the wrapped repository.
func (r *CachedUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	key := r.prefix + username
	log := r.log.With(logging.Group("cache", "key", key))

	data, err := r.cache.Get(ctx, key)

	switch {
	case err == nil:
		user, err := decodeCachedUser(data)
		if err == nil {
			log.DebugContext(ctx, "cache hit")

			return user, nil
		}

		log.WarnContext(ctx, "decode cached user failed", "error", err)
	case errors.Is(err, ErrCacheMiss):
		log.DebugContext(ctx, "cache miss")
	default:
		log.WarnContext(ctx, "cache get failed", "error", err)
	}

	user, err := r.next.FindByUsername(ctx, username)
	if err != nil {
		//nolint:wrapcheck
		return domain.User{}, err
	}

	data, err = json.Marshal(user)
	if err != nil {
		log.WarnContext(ctx, "encode cached user failed", "error", err)

		return user, nil
	}

	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		log.WarnContext(ctx, "cache set failed", "error", err)
	}

	return user, nil
}

// Migrate implements Migrator by migrating the wrapped repository.
func (r *CachedUserRepository) Migrate(ctx context.Context) error {
	migrator, ok := r.next.(Migrator)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotMigratable, r.next)
	}

	//nolint:wrapcheck
	return migrator.Migrate(ctx)
}

// Close closes the wrapped repository and the cache.
func (r *CachedUserRepository) Close() error {
	var errs []error

	if err := r.next.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}

	if err := r.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}

	return errors.Join(errs...)
}

// decodeCachedUser keeps numeric IDs as json.Number so they re-encode unchanged.
func decodeCachedUser(data []byte) (domain.User, error) {
	var user domain.User

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("decode: %w", err)
	}

	return user, nil
}

// RedisCache implements Cache with go-redis.
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to cfg.Addr and pings the server.
func NewRedisCache(ctx context.Context, cfg CacheConfig) (*RedisCache, error) {
	//nolint:exhaustruct
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get implements Cache.Get. A missing key is reported as ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return data, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

// Close implements Cache.Close.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}
