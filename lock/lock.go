// Package lock provides a Redis backed lock that keeps two runs from sharing a keyspace.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix  = "vector-acceptor:lock:"
	DefaultTTL = 30 * time.Minute
)

// ErrLocked is returned by Acquire when another run holds the lock
var ErrLocked = errors.New("run lock is held by another process")

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Key returns the lock key for a keyspace
func Key(keyspace string) string {
	return KeyPrefix + keyspace
}

// RunLock is a single holder lock with a TTL so a crashed run cannot block others forever
type RunLock struct {
	client     redis.UniversalClient
	ownsClient bool
	key        string
	token      string
	ttl        time.Duration
	log        log.Logger
}

// New creates a lock on key using an existing client
func New(client redis.UniversalClient, key string, ttl time.Duration, logger log.Logger) *RunLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &RunLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
		ttl:    ttl,
		log:    logger,
	}
}

// NewFromURL connects to the redis server at url and checks the connection
func NewFromURL(ctx context.Context, url, key string, ttl time.Duration, logger log.Logger) (*RunLock, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	l := New(client, key, ttl, logger)
	l.ownsClient = true
	return l, nil
}

// Acquire takes the lock or returns ErrLocked
func (l *RunLock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock %s: %w", l.key, err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.key).Result()
		return fmt.Errorf("%w: key %s owned by %s", ErrLocked, l.key, holder)
	}
	l.log.Info("Acquired run lock", "key", l.key, "ttl", l.ttl)
	return nil
}

// Release drops the lock if this process still holds it
func (l *RunLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock %s: %w", l.key, err)
	}
	if n == 0 {
		l.log.Warn("Run lock was no longer held at release", "key", l.key)
		return nil
	}
	l.log.Info("Released run lock", "key", l.key)
	return nil
}

// Close closes the redis client if the lock created it
func (l *RunLock) Close() error {
	if !l.ownsClient {
		return nil
	}
	return l.client.Close()
}
