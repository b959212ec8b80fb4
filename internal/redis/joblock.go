package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strenly/coachpulse/internal/metrics"
)

// ErrNotHolder is returned by Renew when another instance took the lock over.
var ErrNotHolder = errors.New("not the lock holder")

// JobLock elects a single instance to run a scheduled job, using SETNX with
// a TTL. The holder renews the lease while running; if it crashes the key
// expires and another instance takes over on the next tick.
type JobLock struct {
	client     *redis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

// NewJobLock creates a lock for the named job. instanceID must be unique per
// process (e.g., a random UUID generated at boot).
func NewJobLock(client *redis.Client, instanceID, job string, ttl time.Duration) *JobLock {
	return &JobLock{
		client:     client,
		instanceID: instanceID,
		key:        "joblock:" + job,
		ttl:        ttl,
	}
}

// Acquire attempts to take the lock. Returns true when this instance now
// holds it.
func (l *JobLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		metrics.LeaderElections.WithLabelValues(l.key).Inc()
		metrics.IsLeader.WithLabelValues(l.key).Set(1)
	}
	return ok, nil
}

// Renew extends the lease. Only succeeds while this instance still holds the
// lock; the Lua script makes check-and-expire atomic.
func (l *JobLock) Renew(ctx context.Context) error {
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("EXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
	`
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.instanceID, int(l.ttl.Seconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		metrics.IsLeader.WithLabelValues(l.key).Set(0)
		return ErrNotHolder
	}
	return nil
}

// Release gives the lock up voluntarily, but only when still held by this
// instance.
func (l *JobLock) Release(ctx context.Context) error {
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
	`
	metrics.IsLeader.WithLabelValues(l.key).Set(0)
	return l.client.Eval(ctx, script, []string{l.key}, l.instanceID).Err()
}
