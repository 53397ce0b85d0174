package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "pokerbank"

var (
	ErrHeld = errors.New("lock is held")
	ErrLost = errors.New("lock lease lost")
)

// Locker hands out short-lived exclusive leases on a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (*Lease, error)
	Held(ctx context.Context, key string) (bool, error)
}

// Lease is an acquired lock. Release is safe to call more than once.
type Lease struct {
	key     string
	token   string
	ttl     time.Duration
	release func(ctx context.Context, key, token string) error
	refresh func(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	once    sync.Once
}

func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		err = l.release(ctx, l.key, l.token)
	})
	return err
}

// Refresh pushes the lease expiry out by a full TTL. ErrLost means the lease
// already expired or now belongs to someone else.
func (l *Lease) Refresh(ctx context.Context) error {
	ok, err := l.refresh(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", l.key, err)
	}
	if !ok {
		return ErrLost
	}
	return nil
}

// KeepAlive refreshes the lease every third of its TTL until stop is called.
// Refresh errors go to onErr; renewal gives up once the lease is lost.
func (l *Lease) KeepAlive(ctx context.Context, onErr func(error)) (stop func()) {
	interval := l.ttl / 3
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := l.Refresh(ctx)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if onErr != nil {
				onErr(err)
			}
			if errors.Is(err, ErrLost) {
				return
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func SettleKey(sessionID string) string {
	return fmt.Sprintf("%s:settle:%s", keyNamespace, sessionID)
}

type cmdable interface {
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Exists(context.Context, ...string) *redis.IntCmd
	Eval(context.Context, string, []string, ...any) *redis.Cmd
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lease never removes a lock taken by someone else.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const refreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

type RedisLocker struct {
	store cmdable
	raw   *redis.Client
	ttl   time.Duration
}

func NewRedisLocker(ctx context.Context, url string, ttl time.Duration) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLocker{store: raw, raw: raw, ttl: ttl}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lease{key: key, token: token, ttl: l.ttl, release: l.release, refresh: l.refresh}, nil
}

func (l *RedisLocker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.store.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLocker) Close() error {
	if l.raw == nil {
		return nil
	}
	return l.raw.Close()
}

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	return l.store.Eval(ctx, releaseScript, []string{key}, token).Err()
}

func (l *RedisLocker) refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := l.store.Eval(ctx, refreshScript, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LocalLocker serves single-instance deployments without Redis.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	ttl  time.Duration
	now  func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

func NewLocalLocker(ttl time.Duration) *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), ttl: ttl, now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expires) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(l.ttl)}
	return &Lease{key: key, token: token, ttl: l.ttl, release: l.release, refresh: l.refresh}, nil
}

func (l *LocalLocker) Held(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.held[key]
	return ok && l.now().Before(entry.expires), nil
}

func (l *LocalLocker) release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.held[key]; ok && entry.token == token {
		delete(l.held, key)
	}
	return nil
}

func (l *LocalLocker) refresh(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	entry, ok := l.held[key]
	if !ok || entry.token != token || !now.Before(entry.expires) {
		return false, nil
	}
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return true, nil
}
