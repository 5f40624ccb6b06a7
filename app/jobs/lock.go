package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

const defaultLockTTL = 30 * time.Minute

// Lock guarantees a single running instance of a job across processes.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockBackend stores lease tokens. ReleaseIfOwner must compare and delete
// in a single step.
type LockBackend interface {
	Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
}

// LeaseLock holds a key for at most ttl. A run that outlives the lease
// loses the key and its release becomes a no-op.
type LeaseLock struct {
	backend LockBackend
	key     string
	ttl     time.Duration
	token   string
}

func NewLeaseLock(backend LockBackend, key string, ttl time.Duration) (*LeaseLock, error) {
	if backend == nil {
		return nil, errors.New("lock backend is required")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &LeaseLock{backend: backend, key: key, ttl: ttl}, nil
}

func (l *LeaseLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.backend.Claim(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *LeaseLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	released, err := l.backend.ReleaseIfOwner(ctx, l.key, token)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !released {
		factory.NewModuleLogger("jobs").
			WithField("lock", l.key).
			Warn("Lease expired before release")
	}
	return nil
}

const releaseIfOwnerLua = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseScript = redis.NewScript(releaseIfOwnerLua)

// RedisBackend keeps leases as plain keys with an expiry.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return b.client.SetNX(ctx, key, token, ttl).Result()
}

func (b *RedisBackend) ReleaseIfOwner(ctx context.Context, key, token string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, b.client, []string{key}, token).Int64()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// LocalLock only excludes runs inside the current process. It is used when
// no Redis address is configured.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
