package query

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle position of a query as seen by its consumer.
type Status int

const (
	// NotReady means the enabled guard is false; nothing is fetched.
	NotReady Status = iota
	Idle
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is what a consumer renders from.
type State[T any] struct {
	Status     Status
	Data       T
	Err        error
	IsLoading  bool // no data yet and a fetch is running
	IsFetching bool // any fetch is running
	IsStale    bool
	FetchedAt  time.Time
}

// Options configures a Query.
type Options[T any] struct {
	// Key returns the cache key for the current parameters.
	Key func() Key
	// Fetch loads the data; it is only called when Enabled allows.
	Fetch func(ctx context.Context) (T, error)
	// Enabled guards fetching. Nil means always enabled.
	Enabled func() bool
	// StaleTime is how long fetched data is served without a new fetch.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failure, capped at MaxRetries.
	Retry int
	// RetryDelay returns the wait before retry n (starting at 1). Nil uses Backoff.
	RetryDelay func(attempt int) time.Duration
}

// Query binds one resource to the cache.
type Query[T any] struct {
	cache *Cache
	opts  Options[T]
}

func New[T any](cache *Cache, opts Options[T]) *Query[T] {
	if opts.Retry > MaxRetries {
		opts.Retry = MaxRetries
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = Backoff
	}
	return &Query[T]{cache: cache, opts: opts}
}

func (q *Query[T]) Key() Key {
	return q.opts.Key()
}

// Enabled reports whether the guard currently allows fetching.
func (q *Query[T]) Enabled() bool {
	return q.opts.Enabled == nil || q.opts.Enabled()
}

func (q *Query[T]) fresh(snap Snapshot) bool {
	if !snap.HasData || snap.Stale {
		return false
	}
	return q.cache.nowTime().Sub(snap.FetchedAt) < q.opts.StaleTime
}

// Fetch returns fresh cached data or fetches it, sharing any in-flight fetch for the
// same key. It fails with ErrNotReady while the guard is false.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	if !q.Enabled() {
		return zero, errors.ErrNotReady
	}
	key := q.opts.Key()
	if snap, ok := q.cache.Peek(key); ok && q.fresh(snap) {
		q.cache.metrics.hit(key.Resource)
		return q.cast(key, snap.Data)
	}
	q.cache.metrics.miss(key.Resource)
	data, err := q.cache.Fetch(ctx, key, q.fetchFunc(key))
	if err != nil {
		return zero, err
	}
	return q.cast(key, data)
}

// Refetch ignores freshness and starts a new fetch.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if !q.Enabled() {
		return zero, errors.ErrNotReady
	}
	key := q.opts.Key()
	q.cache.metrics.miss(key.Resource)
	data, err := q.cache.Refetch(ctx, key, q.fetchFunc(key))
	if err != nil {
		return zero, err
	}
	return q.cast(key, data)
}

func (q *Query[T]) fetchFunc(key Key) FetchFunc {
	return func(ctx context.Context) (any, error) {
		var (
			data T
			err  error
		)
		for attempt := 0; ; attempt++ {
			data, err = q.opts.Fetch(ctx)
			if err == nil || attempt >= q.opts.Retry || !Retryable(err) {
				break
			}
			delay := q.opts.RetryDelay(attempt + 1)
			log.Debug().Err(err).Str("key", key.String()).Int("attempt", attempt+1).Dur("delay", delay).Msg("[Query.Fetch] retrying")
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func (q *Query[T]) cast(key Key, data any) (T, error) {
	var zero T
	if data == nil {
		return zero, nil
	}
	v, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("[Query] cached value for %s is %T, not %T", key, data, zero)
	}
	return v, nil
}

// State reports the query's current status without fetching.
func (q *Query[T]) State() State[T] {
	if !q.Enabled() {
		return State[T]{Status: NotReady}
	}
	key := q.opts.Key()
	snap, ok := q.cache.Peek(key)
	if !ok {
		return State[T]{Status: Idle}
	}

	st := State[T]{
		Err:        snap.Err,
		IsFetching: snap.Fetching,
		IsLoading:  snap.Fetching && !snap.HasData,
		IsStale:    !q.fresh(snap),
		FetchedAt:  snap.FetchedAt,
	}
	if snap.HasData {
		st.Data, _ = q.cast(key, snap.Data)
	}
	switch {
	case st.IsLoading:
		st.Status = Loading
	case snap.Err != nil:
		st.Status = Error
	case snap.HasData:
		st.Status = Success
	default:
		st.Status = Idle
	}
	return st
}

// Subscribe calls fn with the new state whenever the current key's entry changes.
func (q *Query[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	return q.cache.Subscribe(q.opts.Key(), func() {
		fn(q.State())
	})
}

// Poll fetches once and then refetches every interval until ctx is done, passing each
// result to onResult. Fetches in flight when ctx ends still complete into the cache.
func (q *Query[T]) Poll(ctx context.Context, interval time.Duration, onResult func(T, error)) {
	data, err := q.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	onResult(data, err)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := q.Refetch(ctx)
			if ctx.Err() != nil {
				return
			}
			onResult(data, err)
		}
	}
}
