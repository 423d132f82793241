// Package kv is a thin capability layer over Redis exposing exactly the
// primitives DBOS needs: keyed get/set with TTL, sorted sets scored by an
// arbitrary float, append-only lists, compare-and-set on a version field,
// and prefix scans. Callers never see a *redis.Client directly so the
// backing engine can change without touching store code.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Error kinds distinguished by callers, per the KV engine adapter contract.
var (
	ErrNotFound        = errors.New("kv: not found")
	ErrVersionConflict = errors.New("kv: version conflict")
	ErrTransport       = errors.New("kv: transport error")
)

// Store wraps a Redis client with the operations the DBOS state store needs.
type Store struct {
	rdb *redis.Client
}

// New connects to the Redis instance at addr. It does not ping eagerly;
// callers should call Ping to fail fast during startup.
func New(addr string) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewFromClient wraps an already-configured client, primarily for tests
// that point at a miniredis instance.
func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Ping verifies connectivity to the backing engine.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Get retrieves the raw value stored at key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return val, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return n > 0, nil
}

// Set stores value at key, applying ttl when positive.
func (s *Store) Set(ctx context.Context, key, value string, ttl int64) error {
	var err error
	if ttl > 0 {
		err = s.rdb.Set(ctx, key, value, secondsToDuration(ttl)).Err()
	} else {
		err = s.rdb.Set(ctx, key, value, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// SetNX stores value at key only if it does not already exist, applying ttl
// when positive. It reports whether the value was written.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl int64) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, secondsToDuration(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return ok, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// ScanPrefix returns every key with the given prefix. Intended for the
// agent registry, whose size is bounded by fleet size, not for hot paths.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return keys, nil
}

// ZAdd adds member to the sorted set at key with the given score, or
// updates its score if already present.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// ZRem removes member from the sorted set at key.
func (s *Store) ZRem(ctx context.Context, key string, member string) error {
	if err := s.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// ZRangeByScore returns members scored within [min, max], ascending.
func (s *Store) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	members, err := s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return members, nil
}

// ZRange returns the full member list of the sorted set at key, ascending
// or descending by score.
func (s *Store) ZRange(ctx context.Context, key string, desc bool, limit int64) ([]string, error) {
	var members []string
	var err error
	if desc {
		members, err = s.rdb.ZRevRange(ctx, key, 0, limitOrAll(limit)).Result()
	} else {
		members, err = s.rdb.ZRange(ctx, key, 0, limitOrAll(limit)).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return members, nil
}

// LPush prepends value to the list at key, keeping it newest-first.
func (s *Store) LPush(ctx context.Context, key, value string) error {
	if err := s.rdb.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// LRange returns up to limit entries from the head of the list at key.
func (s *Store) LRange(ctx context.Context, key string, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	vals, err := s.rdb.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return vals, nil
}

// CAS performs a compare-and-set: it invokes fn under a WATCH on key, and
// fn is responsible for validating the current value (via the string it
// receives, empty when absent) before returning the new value to persist.
// Whatever error fn returns is propagated verbatim (preserving its own
// errors.Is chain, e.g. a caller's own version-conflict or invalid-
// transition sentinel) rather than folded into ErrTransport; only a
// genuine Redis-level failure, including the watched key changing before
// EXEC, is classified here (the latter as ErrVersionConflict).
func (s *Store) CAS(ctx context.Context, key string, fn func(current string, exists bool) (next string, err error)) error {
	var fnErr error
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
			err = nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}

		next, err := fn(current, exists)
		if err != nil {
			fnErr = err
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return nil
	}

	err := s.rdb.Watch(ctx, txf, key)
	if fnErr != nil {
		return fnErr
	}
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Pipeline exposes a raw pipeliner for callers that must apply several
// writes as one atomic unit; the result store and the task queue issue
// their writes one call at a time and do not use it. Redis
// pipelines executed via TxPipelined are wrapped in MULTI/EXEC.
func (s *Store) Pipeline(ctx context.Context, fn func(pipe redis.Pipeliner) error) error {
	_, err := s.rdb.TxPipelined(ctx, fn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func limitOrAll(limit int64) int64 {
	if limit <= 0 {
		return -1
	}
	return limit - 1
}

func formatScore(v float64) string {
	return fmt.Sprintf("%f", v)
}

func secondsToDuration(ttl int64) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return time.Duration(ttl) * time.Second
}
