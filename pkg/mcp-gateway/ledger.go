package mcpgateway

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLedgerPrefix = "feedbin-mcp:session:"
	defaultLedgerTTL    = 24 * time.Hour
)

// Ledger mirrors the set of live session ids to an external store so operators
// can see sessions across replicas. Failures are logged and never affect
// routing.
type Ledger interface {
	Record(ctx context.Context, id string) error
	Forget(ctx context.Context, id string) error
}

type nopLedger struct{}

func (nopLedger) Record(context.Context, string) error { return nil }
func (nopLedger) Forget(context.Context, string) error { return nil }

// RedisLedger stores one key per live session, valued with the owning
// instance name and expiring after a TTL in case the process dies without
// cleaning up.
type RedisLedger struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	instance string
}

// RedisLedgerOption customizes a RedisLedger.
type RedisLedgerOption func(*RedisLedger)

// WithLedgerPrefix changes the key prefix.
func WithLedgerPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.prefix = prefix
	}
}

// WithLedgerTTL changes how long a key survives without being forgotten.
func WithLedgerTTL(ttl time.Duration) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.ttl = ttl
	}
}

// WithLedgerInstance sets the value written for each session.
func WithLedgerInstance(name string) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.instance = name
	}
}

// NewRedisLedger returns a Ledger backed by rdb.
func NewRedisLedger(rdb redis.UniversalClient, opts ...RedisLedgerOption) *RedisLedger {
	host, _ := os.Hostname()
	l := &RedisLedger{
		rdb:      rdb,
		prefix:   defaultLedgerPrefix,
		ttl:      defaultLedgerTTL,
		instance: host,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes the key for id.
func (l *RedisLedger) Record(ctx context.Context, id string) error {
	return errors.Wrapf(l.rdb.Set(ctx, l.key(id), l.instance, l.ttl).Err(), "ledger: record session %s", id)
}

// Forget deletes the key for id.
func (l *RedisLedger) Forget(ctx context.Context, id string) error {
	return errors.Wrapf(l.rdb.Del(ctx, l.key(id)).Err(), "ledger: forget session %s", id)
}

// Live returns the ids currently recorded, across all instances.
func (l *RedisLedger) Live(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := l.rdb.Scan(ctx, cursor, l.prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, "ledger: scan sessions")
		}
		for _, key := range keys {
			ids = append(ids, key[len(l.prefix):])
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

func (l *RedisLedger) key(id string) string {
	return l.prefix + id
}
