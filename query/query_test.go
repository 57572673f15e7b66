package query_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	apperrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	cache   *query.Cache
	metrics *query.Metrics
	now     time.Time
	mu      sync.Mutex
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m, err := query.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f.metrics = m
	f.cache = query.NewCache(query.WithNowTime(f.clock), query.WithMetrics(m), query.WithGCTime(time.Minute))
	return f
}

func (f *testFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func staticKey(resource string, params url.Values) func() query.Key {
	return func() query.Key { return query.NewKey(resource, params) }
}

// TestNewKey_Canonical collapses empty filters and orders parameters
func TestNewKey_Canonical(t *testing.T) {
	a := query.NewKey("properties", url.Values{"location": {""}})
	b := query.NewKey("properties", nil)
	require.Equal(t, a, b)
	require.Equal(t, "properties", a.String())

	c := query.NewKey("properties", url.Values{"type": {"rental"}, "bedrooms": {"2"}, "town": {}})
	require.Equal(t, "bedrooms=2&type=rental", c.Params)
	require.Equal(t, "properties?bedrooms=2&type=rental", c.String())
}

// TestQuery_DeduplicatesConcurrentReads shares one in-flight fetch
func TestQuery_DeduplicatesConcurrentReads(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	release := make(chan struct{})
	q := query.New(f.cache, query.Options[[]string]{
		Key: staticKey("marketplace_items", url.Values{"category": {"furniture"}}),
		Fetch: func(ctx context.Context) ([]string, error) {
			calls.Add(1)
			<-release
			return []string{"Sofa"}, nil
		},
	})

	var wg sync.WaitGroup
	results := make([][]string, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = q.Fetch(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return q.State().IsFetching }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i, r := range results {
		require.NoError(t, errs[i])
		require.Equal(t, []string{"Sofa"}, r)
	}
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Fetches().WithLabelValues("marketplace_items")))
}

// TestQuery_StaleTime serves cached data inside the window and refetches after
func TestQuery_StaleTime(t *testing.T) {
	f := setupTestFixture(t)
	calls := 0
	q := query.New(f.cache, query.Options[int]{
		Key:       staticKey("dashboard", nil),
		StaleTime: 5 * time.Minute,
		Fetch: func(context.Context) (int, error) {
			calls++
			return calls, nil
		},
	})

	v, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	f.advance(4 * time.Minute)
	v, err = q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	f.advance(2 * time.Minute)
	v, err = q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Hits().WithLabelValues("dashboard")))
}

// TestQuery_InvalidateForcesRefetch marks all parameter variants stale without fetching
func TestQuery_InvalidateForcesRefetch(t *testing.T) {
	f := setupTestFixture(t)
	calls := map[string]int{}
	newQuery := func(resource string, params url.Values) *query.Query[int] {
		key := query.NewKey(resource, params)
		return query.New(f.cache, query.Options[int]{
			Key:       func() query.Key { return key },
			StaleTime: time.Hour,
			Fetch: func(context.Context) (int, error) {
				calls[key.String()]++
				return calls[key.String()], nil
			},
		})
	}
	all := newQuery("properties", nil)
	rentals := newQuery("properties", url.Values{"property_type": {"rental"}})
	bookings := newQuery("bookings", nil)
	for _, q := range []*query.Query[int]{all, rentals, bookings} {
		_, err := q.Fetch(context.Background())
		require.NoError(t, err)
	}

	require.Equal(t, 2, f.cache.Invalidate("properties"))
	require.True(t, all.State().IsStale)
	require.True(t, rentals.State().IsStale)
	require.False(t, bookings.State().IsStale)
	require.Equal(t, 1, calls["properties"])

	v, err := rentals.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
	v, err = bookings.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

// TestQuery_NotReady never fetches while disabled
func TestQuery_NotReady(t *testing.T) {
	f := setupTestFixture(t)
	token := ""
	called := false
	q := query.New(f.cache, query.Options[int]{
		Key:     staticKey("user_bookings", nil),
		Enabled: func() bool { return token != "" },
		Fetch: func(context.Context) (int, error) {
			called = true
			return 1, nil
		},
	})

	_, err := q.Fetch(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotReady)
	require.Equal(t, query.NotReady, q.State().Status)
	require.False(t, called)

	token = "A1"
	require.Equal(t, query.Idle, q.State().Status)
	_, err = q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, query.Success, q.State().Status)
}

// TestQuery_RetryCapped retries server errors at most twice
func TestQuery_RetryCapped(t *testing.T) {
	f := setupTestFixture(t)
	calls := 0
	q := query.New(f.cache, query.Options[int]{
		Key:        staticKey("dashboard", nil),
		Retry:      5,
		RetryDelay: func(int) time.Duration { return 0 },
		Fetch: func(context.Context) (int, error) {
			calls++
			return 0, &apiclient.APIError{StatusCode: http.StatusBadGateway, Message: "API request failed: 502 Bad Gateway"}
		},
	})

	_, err := q.Fetch(context.Background())
	require.EqualError(t, err, "API request failed: 502 Bad Gateway")
	require.Equal(t, 3, calls)
	st := q.State()
	require.Equal(t, query.Error, st.Status)
	require.Error(t, st.Err)
}

// TestQuery_NoRetryOnClientError gives up immediately on 4xx and auth errors
func TestQuery_NoRetryOnClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"forbidden", &apiclient.APIError{StatusCode: http.StatusForbidden, Message: "Admin access required"}},
		{"auth required", apperrors.ErrAuthRequired},
		{"session invalid", apperrors.Wrapf(apperrors.ErrSessionInvalid, "refresh")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			calls := 0
			q := query.New(f.cache, query.Options[int]{
				Key:        staticKey("admin_dashboard", nil),
				Retry:      2,
				RetryDelay: func(int) time.Duration { return 0 },
				Fetch: func(context.Context) (int, error) {
					calls++
					return 0, tt.err
				},
			})
			_, err := q.Fetch(context.Background())
			require.Error(t, err)
			require.Equal(t, 1, calls)
		})
	}
}

// TestQuery_RetryThenSuccess returns data from a later attempt
func TestQuery_RetryThenSuccess(t *testing.T) {
	f := setupTestFixture(t)
	calls := 0
	q := query.New(f.cache, query.Options[string]{
		Key:        staticKey("dashboard", nil),
		Retry:      2,
		RetryDelay: func(int) time.Duration { return 0 },
		Fetch: func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("connection reset")
			}
			return "ok", nil
		},
	})
	v, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, calls)
}

// TestQuery_ErrorKeepsPreviousData leaves cached data in place after a failed refetch
func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	f := setupTestFixture(t)
	fail := false
	q := query.New(f.cache, query.Options[string]{
		Key: staticKey("properties", nil),
		Fetch: func(context.Context) (string, error) {
			if fail {
				return "", errors.New("boom")
			}
			return "first", nil
		},
	})
	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = q.Refetch(context.Background())
	require.Error(t, err)

	st := q.State()
	require.Equal(t, query.Error, st.Status)
	require.Equal(t, "first", st.Data)
}

// TestCache_OutOfOrderCompletion keeps the newest fetch's result
func TestCache_OutOfOrderCompletion(t *testing.T) {
	f := setupTestFixture(t)
	key := query.NewKey("properties", nil)
	releaseOld := make(chan struct{})
	oldStarted := make(chan struct{})

	oldDone := make(chan any)
	go func() {
		v, _ := f.cache.Refetch(context.Background(), key, func(context.Context) (any, error) {
			close(oldStarted)
			<-releaseOld
			return "old", nil
		})
		oldDone <- v
	}()
	<-oldStarted

	v, err := f.cache.Refetch(context.Background(), key, func(context.Context) (any, error) {
		return "new", nil
	})
	require.NoError(t, err)
	require.Equal(t, "new", v)

	close(releaseOld)
	require.Equal(t, "new", <-oldDone)

	got, ok := f.cache.Get(key)
	require.True(t, ok)
	require.Equal(t, "new", got)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Discarded().WithLabelValues("properties")))
}

// TestCache_InvalidatedDuringFetch stores the result but keeps it stale
func TestCache_InvalidatedDuringFetch(t *testing.T) {
	f := setupTestFixture(t)
	key := query.NewKey("user_bookings", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.cache.Fetch(context.Background(), key, func(context.Context) (any, error) {
			close(started)
			<-release
			return []int{1}, nil
		})
	}()
	<-started
	require.Equal(t, 1, f.cache.Invalidate("user_bookings"))
	close(release)
	<-done

	snap, ok := f.cache.Peek(key)
	require.True(t, ok)
	require.True(t, snap.HasData)
	require.True(t, snap.Stale)
}

// TestQuery_ReadAfterInvalidationSkipsOlderFetch never hands out data fetched before the mutation
func TestQuery_ReadAfterInvalidationSkipsOlderFetch(t *testing.T) {
	f := setupTestFixture(t)
	var (
		version atomic.Int32
		calls   atomic.Int32
	)
	version.Store(1)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	q := query.New(f.cache, query.Options[int]{
		Key: staticKey("user_bookings", nil),
		Fetch: func(ctx context.Context) (int, error) {
			v := int(version.Load())
			if calls.Add(1) == 1 {
				started <- struct{}{}
				<-release
			}
			return v, nil
		},
	})

	first := make(chan int)
	go func() {
		v, _ := q.Fetch(context.Background())
		first <- v
	}()
	<-started

	version.Store(2)
	require.Equal(t, 1, f.cache.Invalidate("user_bookings"))

	v, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, int32(2), calls.Load())
	require.Zero(t, testutil.ToFloat64(f.metrics.DedupJoins().WithLabelValues("user_bookings")))

	// the older result arrives last; it is dropped and its waiters get the newer data
	close(release)
	require.Equal(t, 2, <-first)

	st := q.State()
	require.Equal(t, query.Success, st.Status)
	require.Equal(t, 2, st.Data)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Discarded().WithLabelValues("user_bookings")))
}

// TestCache_CallerCancellationDoesNotAbortFetch lets the shared fetch finish
func TestCache_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	f := setupTestFixture(t)
	key := query.NewKey("moving_services", nil)
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() {
		_, err := f.cache.Fetch(ctx, key, func(fctx context.Context) (any, error) {
			<-release
			defer close(finished)
			return "movers", fctx.Err()
		})
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		snap, ok := f.cache.Peek(key)
		return ok && snap.Fetching
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-finished
	require.Eventually(t, func() bool {
		v, ok := f.cache.Get(key)
		return ok && v == "movers"
	}, time.Second, time.Millisecond)
}

// TestCache_GC removes only unobserved idle entries
func TestCache_GC(t *testing.T) {
	f := setupTestFixture(t)
	kept := query.NewKey("dashboard", nil)
	dropped := query.NewKey("properties", nil)
	f.cache.Set(kept, 1)
	f.cache.Set(dropped, 2)
	unsubscribe := f.cache.Subscribe(kept, func() {})

	f.advance(30 * time.Second)
	require.Zero(t, f.cache.GC())

	f.advance(time.Minute)
	require.Equal(t, 1, f.cache.GC())
	_, ok := f.cache.Get(dropped)
	require.False(t, ok)
	_, ok = f.cache.Get(kept)
	require.True(t, ok)

	unsubscribe()
	f.advance(2 * time.Minute)
	require.Equal(t, 1, f.cache.GC())
	require.Zero(t, f.cache.Len())
}

// TestQuery_Subscribe receives state changes for its key
func TestQuery_Subscribe(t *testing.T) {
	f := setupTestFixture(t)
	q := query.New(f.cache, query.Options[int]{
		Key:   staticKey("quotes", nil),
		Fetch: func(context.Context) (int, error) { return 7, nil },
	})
	var mu sync.Mutex
	var statuses []query.Status
	unsubscribe := q.Subscribe(func(s query.State[int]) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s.Status)
	})
	defer unsubscribe()

	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []query.Status{query.Loading, query.Success}, statuses)
}

// TestQuery_Poll refetches on every tick until cancelled
func TestQuery_Poll(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	q := query.New(f.cache, query.Options[int32]{
		Key:       staticKey("dashboard", nil),
		StaleTime: time.Hour,
		Fetch: func(context.Context) (int32, error) {
			return calls.Add(1), nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan int32, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Poll(ctx, 5*time.Millisecond, func(v int32, err error) {
			if err == nil {
				select {
				case results <- v:
				default:
				}
			}
		})
	}()

	require.Equal(t, int32(1), <-results)
	require.Equal(t, int32(2), <-results)
	cancel()
	<-done
}

// TestMutation_InvalidatesOnlyOnSuccess leaves the cache alone when the write fails
func TestMutation_InvalidatesOnlyOnSuccess(t *testing.T) {
	f := setupTestFixture(t)
	key := query.NewKey("user_bookings", nil)
	f.cache.Set(key, []string{"existing"})

	fail := true
	m := query.NewMutation(f.cache, func(_ context.Context, in string) (string, error) {
		if fail {
			return "", errors.New("API request failed: 500 Internal Server Error")
		}
		return in, nil
	}, "bookings", "user_bookings")

	_, err := m.Mutate(context.Background(), "b1")
	require.Error(t, err)
	snap, _ := f.cache.Peek(key)
	require.False(t, snap.Stale)
	require.Equal(t, []string{"existing"}, snap.Data)

	fail = false
	out, err := m.Mutate(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, "b1", out)
	snap, _ = f.cache.Peek(key)
	require.True(t, snap.Stale)
	require.False(t, m.IsPending())
	require.Equal(t, []string{"bookings", "user_bookings"}, m.Invalidates())
}

// TestMutation_IsPending is true while the write runs
func TestMutation_IsPending(t *testing.T) {
	f := setupTestFixture(t)
	release := make(chan struct{})
	m := query.NewMutation(f.cache, func(context.Context, int) (int, error) {
		<-release
		return 1, nil
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Mutate(context.Background(), 1)
	}()
	require.Eventually(t, m.IsPending, time.Second, time.Millisecond)
	close(release)
	<-done
	require.False(t, m.IsPending())
}

// TestRetryable classifies errors
func TestRetryable(t *testing.T) {
	require.True(t, query.Retryable(errors.New("dial tcp: refused")))
	require.True(t, query.Retryable(&apiclient.APIError{StatusCode: http.StatusServiceUnavailable}))
	require.False(t, query.Retryable(&apiclient.APIError{StatusCode: http.StatusNotFound}))
	require.False(t, query.Retryable(context.Canceled))
	require.False(t, query.Retryable(nil))
	require.Equal(t, time.Second, query.Backoff(1))
	require.Equal(t, 2*time.Second, query.Backoff(2))
	require.Equal(t, 30*time.Second, query.Backoff(10))
}
