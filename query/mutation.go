package query

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Mutation is a write that invalidates a fixed set of resources once it succeeds.
type Mutation[I, O any] struct {
	cache       *Cache
	fn          func(ctx context.Context, in I) (O, error)
	invalidates []string
	pending     atomic.Int32
}

func NewMutation[I, O any](cache *Cache, fn func(ctx context.Context, in I) (O, error), invalidates ...string) *Mutation[I, O] {
	return &Mutation[I, O]{cache: cache, fn: fn, invalidates: invalidates}
}

// Mutate runs the write. The cache is only touched after it succeeds, so a failure
// leaves every cached value as it was.
func (m *Mutation[I, O]) Mutate(ctx context.Context, in I) (O, error) {
	m.pending.Add(1)
	defer m.pending.Add(-1)

	out, err := m.fn(ctx, in)
	if err != nil {
		log.Debug().Err(err).Strs("invalidates", m.invalidates).Msg("[Mutation.Mutate] failed")
		return out, err
	}
	if len(m.invalidates) > 0 {
		m.cache.Invalidate(m.invalidates...)
	}
	return out, nil
}

func (m *Mutation[I, O]) IsPending() bool {
	return m.pending.Load() > 0
}

// Invalidates lists the resources marked stale after a successful Mutate.
func (m *Mutation[I, O]) Invalidates() []string {
	out := make([]string, len(m.invalidates))
	copy(out, m.invalidates)
	return out
}
