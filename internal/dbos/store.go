package dbos

import (
	"context"
	"errors"
	"time"

	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
)

// DefaultTimeout bounds any single KV round trip issued by the store.
const DefaultTimeout = 5 * time.Second

// Store is the durable state store described by the DBOS component: agent
// registry, module-state machine, result store, task queue, and event log,
// all layered on a single KV engine.
type Store struct {
	kv *kv.Store

	idempotencyTTL int64
	maxRetries     int
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithIdempotencyTTL overrides the default 24h TTL on result dedup marks.
func WithIdempotencyTTL(seconds int64) Option {
	return func(s *Store) { s.idempotencyTTL = seconds }
}

// WithMaxRetries overrides the default task retry ceiling of 5.
func WithMaxRetries(n int) Option {
	return func(s *Store) { s.maxRetries = n }
}

// New wraps a KV engine with DBOS semantics.
func New(store *kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, idempotencyTTL: 86400, maxRetries: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}

func mapKVError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kv.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, kv.ErrVersionConflict):
		return ErrVersionConflict
	default:
		return err
	}
}
