package hooks_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/auth"
	"github.com/jrsteele09/go-marketplace-client/hooks"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	apperrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/query"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/server"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const adminPassword = "admin-password"

type testFixture struct {
	hooks   *hooks.Hooks
	manager *auth.Manager
	metrics *query.Metrics

	mu      sync.Mutex
	calls   map[string]int
	gates   map[string]chan struct{}
	rejects map[string]int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("ENV", "TEST")

	srv, err := server.New(config.New())
	require.NoError(t, err)
	_, err = srv.Seed(context.Background(), adminPassword)
	require.NoError(t, err)

	f := &testFixture{calls: map[string]int{}, gates: map[string]chan struct{}{}, rejects: map[string]int{}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		gate := f.gates[r.URL.Path]
		reject := f.rejects[r.URL.Path] > 0
		if reject {
			f.rejects[r.URL.Path]--
		}
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if reject {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type","code":"token_not_valid"}`))
			return
		}
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	api := apiclient.New(ts.URL + "/api")
	f.manager, err = auth.NewManager(api, sessions.NewStore(sessions.NewMemoryKV()))
	require.NoError(t, err)
	require.NoError(t, f.manager.Init(context.Background()))

	f.metrics, err = query.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	cache := query.NewCache(query.WithMetrics(f.metrics))
	f.hooks = hooks.New(api, f.manager, cache, config.Cache{})
	return f
}

func (f *testFixture) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// hold makes requests to path wait until the returned func is called.
func (f *testFixture) hold(path string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[path] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, path)
			f.mu.Unlock()
			close(gate)
		})
	}
}

// expireToken makes the next n requests to path fail with 401 as if the access token
// had expired.
func (f *testFixture) expireToken(path string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects[path] = n
}

func (f *testFixture) signUp(t *testing.T, username string) {
	t.Helper()
	require.NoError(t, f.manager.SignUp(context.Background(), users.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: "correctpw",
	}))
}

// TestMarketplaceItems_ConcurrentConsumersShareOneRequest de-duplicates identical reads
func TestMarketplaceItems_ConcurrentConsumersShareOneRequest(t *testing.T) {
	f := setupTestFixture(t)
	release := f.hold("/api/marketplace/")
	defer release()

	filters := resources.MarketplaceFilters{Category: "furniture"}
	const consumers = 5
	results := make([][]resources.MarketplaceItem, consumers)
	errs := make([]error, consumers)
	var wg sync.WaitGroup
	start := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.hooks.MarketplaceItems(filters).Fetch(context.Background())
		}()
	}

	start(0)
	require.Eventually(t, func() bool { return f.count(http.MethodGet, "/api/marketplace/") == 1 }, time.Second, time.Millisecond)
	for i := 1; i < consumers; i++ {
		start(i)
	}
	dedups := f.metrics.DedupJoins().WithLabelValues(hooks.ResourceMarketplaceItems)
	require.Eventually(t, func() bool { return testutil.ToFloat64(dedups) == consumers-1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	require.Equal(t, 1, f.count(http.MethodGet, "/api/marketplace/"))
	for i := 0; i < consumers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		require.Equal(t, "Sofa", results[i][0].Title)
	}
}

// TestMarketplaceItems_SofaScenario filters by category and price through the cache
func TestMarketplaceItems_SofaScenario(t *testing.T) {
	f := setupTestFixture(t)
	q := f.hooks.MarketplaceItems(resources.MarketplaceFilters{Category: "furniture", MaxPrice: utils.Ptr(20000.0)})

	require.Equal(t, query.Idle, q.State().Status)
	items, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Sofa", items[0].Title)
	require.Equal(t, resources.Money(12000), items[0].Price)

	st := q.State()
	require.Equal(t, query.Success, st.Status)
	require.Equal(t, items, st.Data)
	require.Equal(t, "marketplace_items?category=furniture&max_price=20000", q.Key().String())
}

// TestProperties_EquivalentFiltersShareAnEntry keys empty and unset filters the same
func TestProperties_EquivalentFiltersShareAnEntry(t *testing.T) {
	f := setupTestFixture(t)

	a := f.hooks.Properties(resources.PropertyFilters{Location: ""})
	b := f.hooks.Properties(resources.PropertyFilters{})
	require.Equal(t, a.Key(), b.Key())

	_, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, query.Success, b.State().Status)
	require.Equal(t, 1, f.hooks.Cache().Len())
}

// TestUserQueries_NotReadyWithoutSession never call the backend while signed out
func TestUserQueries_NotReadyWithoutSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	q := f.hooks.UserBookings()
	require.Equal(t, query.NotReady, q.State().Status)
	_, err := q.Fetch(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotReady)

	_, err = f.hooks.Dashboard().Fetch(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotReady)
	_, err = f.hooks.Properties(resources.PropertyFilters{CreatedByUser: true}).Fetch(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotReady)
	_, err = f.hooks.SearchProperties(resources.SearchFilters{}).Fetch(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotReady)
	_, err = f.hooks.Property(0).Fetch(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotReady)

	require.Zero(t, f.count(http.MethodGet, "/api/bookings/"))
	require.Zero(t, f.count(http.MethodGet, "/api/dashboard/"))
	require.Zero(t, f.count(http.MethodGet, "/api/properties/"))
}

// TestMutation_RequiresSession fails before any request when signed out
func TestMutation_RequiresSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.hooks.CreateBooking().Mutate(context.Background(), resources.BookingInput{Property: 1})
	require.ErrorIs(t, err, apperrors.ErrAuthRequired)
	require.Zero(t, f.count(http.MethodPost, "/api/bookings/"))
}

// TestCreateBooking_InvalidatesUserBookings makes the next read refetch
func TestCreateBooking_InvalidatesUserBookings(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.signUp(t, "alice")

	bookings := f.hooks.UserBookings()
	list, err := bookings.Fetch(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	dashboard, err := f.hooks.Dashboard().Fetch(ctx)
	require.NoError(t, err)
	require.Zero(t, dashboard.Stats.TotalBookings)

	props, err := f.hooks.AirbnbProperties().Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)

	_, err = f.hooks.CreateBooking().Mutate(ctx, resources.BookingInput{
		Property:    props[0].ID,
		GuestName:   "Alice",
		GuestEmail:  "alice@example.com",
		GuestPhone:  "0700000000",
		BookingDate: "2026-04-01",
	})
	require.NoError(t, err)
	require.True(t, bookings.State().IsStale)

	list, err = bookings.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, f.count(http.MethodGet, "/api/bookings/"))

	// the dashboard is normally served from cache for minutes; the booking marked it stale
	dashboard, err = f.hooks.Dashboard().Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.Stats.TotalBookings)
	require.Equal(t, 2, f.count(http.MethodGet, "/api/dashboard/"))
}

// TestFailedMutation_InvalidatesNothing leaves the cache alone on error
func TestFailedMutation_InvalidatesNothing(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.signUp(t, "alice")

	dashboard := f.hooks.Dashboard()
	_, err := dashboard.Fetch(ctx)
	require.NoError(t, err)
	require.False(t, dashboard.State().IsStale)

	_, err = f.hooks.CreateBooking().Mutate(ctx, resources.BookingInput{Property: 999})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.NotEmpty(t, apiErr.FieldErrors())

	require.False(t, dashboard.State().IsStale)
	require.Zero(t, testutil.ToFloat64(f.metrics.Invalidations().WithLabelValues(hooks.ResourceDashboard)))
}

// TestAdminDashboard_ForbiddenIsNotRetried surfaces a 403 after a single request
func TestAdminDashboard_ForbiddenIsNotRetried(t *testing.T) {
	f := setupTestFixture(t)
	f.signUp(t, "alice")

	q := f.hooks.AdminDashboard()
	_, err := q.Fetch(context.Background())
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "Admin access required", apiErr.Message)
	require.Equal(t, 1, f.count(http.MethodGet, "/api/admin/dashboard/"))
	require.Equal(t, query.Error, q.State().Status)
}

// TestAdminDashboard_Staff loads the overview for a staff account
func TestAdminDashboard_Staff(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.SignIn(context.Background(), server.DefaultAdminUsername, adminPassword))

	d, err := f.hooks.AdminDashboard().Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, d.Stats.TotalProperties)
	require.Equal(t, 1, d.Stats.TotalUsers)
}

// TestUserKeys_SeparateAccounts never serves one account's data to another
func TestUserKeys_SeparateAccounts(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.signUp(t, "alice")
	aliceKey := f.hooks.UserBookings().Key()
	_, err := f.hooks.UserBookings().Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, f.manager.SignOut())
	f.signUp(t, "bob")
	bobKey := f.hooks.UserBookings().Key()
	require.NotEqual(t, aliceKey, bobKey)
	require.Equal(t, query.Idle, f.hooks.UserBookings().State().Status)
}

// TestProfile_UpdateAndRead derives the profile from the user record
func TestProfile_UpdateAndRead(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.signUp(t, "alice")

	profile, err := f.hooks.Profile().Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, resources.RoleUser, profile.Role)

	updated, err := f.hooks.UpdateProfile().Mutate(ctx, resources.ProfileUpdate{FullName: "Alice Liddell", Bio: "hello"})
	require.NoError(t, err)
	require.Equal(t, "Alice Liddell", updated.FullName)
	require.Equal(t, "hello", updated.Bio)
	require.True(t, f.hooks.Profile().State().IsStale)
}

// TestPropertyWrites_StaffCreateInvalidatesLists refreshes property lists after a create
func TestPropertyWrites_StaffCreateInvalidatesLists(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.SignIn(ctx, server.DefaultAdminUsername, adminPassword))

	offices := f.hooks.OfficeProperties()
	list, err := offices.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	created, err := f.hooks.CreateProperty().Mutate(ctx, resources.PropertyInput{
		Title:    utils.Ptr("Co-working Desk"),
		Location: utils.Ptr("Upper Hill, Nairobi"),
		Price:    utils.Ptr(resources.Money(20000)),
		Type:     utils.Ptr(resources.PropertyTypeOffice),
	})
	require.NoError(t, err)
	require.True(t, offices.State().IsStale)

	list, err = offices.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, created.ID, list[0].ID)

	_, err = f.hooks.DeleteProperty().Mutate(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.hooks.Property(created.ID).Fetch(ctx)
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}

// TestUploadImage_ResolvesMediaURL returns an absolute URL on the backend origin
func TestUploadImage_ResolvesMediaURL(t *testing.T) {
	f := setupTestFixture(t)
	f.signUp(t, "alice")

	res, err := f.hooks.UploadImage().Mutate(context.Background(), hooks.ImageUpload{
		Filename: "photo.jpg",
		File:     strings.NewReader("\xff\xd8\xff\xe0 fake jpeg"),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.ImageURL, "http://"))
	require.Contains(t, res.ImageURL, "/media/uploads/")
	require.NotContains(t, res.ImageURL, "/api/")
}

// TestUploadImage_RetryAfterRefreshSendsWholeFile resends the same bytes after a 401
func TestUploadImage_RetryAfterRefreshSendsWholeFile(t *testing.T) {
	f := setupTestFixture(t)
	f.signUp(t, "alice")
	before := f.manager.AccessToken()
	f.expireToken("/api/upload/image/", 1)

	content := "\xff\xd8\xff\xe0 fake jpeg"
	res, err := f.hooks.UploadImage().Mutate(context.Background(), hooks.ImageUpload{
		Filename: "photo.jpg",
		File:     strings.NewReader(content),
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.count(http.MethodPost, "/api/upload/image/"))
	require.Equal(t, 1, f.count(http.MethodPost, "/api/auth/token/refresh/"))
	require.NotEqual(t, before, f.manager.AccessToken())

	resp, err := http.Get(res.ImageURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, content, string(body))
}

// TestProperties_CreatedByUserKeyedPerAccount keeps one account's listings from another
func TestProperties_CreatedByUserKeyedPerAccount(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	mine := resources.PropertyFilters{CreatedByUser: true}

	require.NoError(t, f.manager.SignIn(ctx, server.DefaultAdminUsername, adminPassword))
	list, err := f.hooks.Properties(mine).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	adminKey := f.hooks.Properties(mine).Key()

	require.NoError(t, f.manager.SignOut())
	f.signUp(t, "alice")
	q := f.hooks.Properties(mine)
	require.NotEqual(t, adminKey, q.Key())
	require.Equal(t, query.Idle, q.State().Status)

	list, err = q.Fetch(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

// TestHealth is readable without a session
func TestHealth(t *testing.T) {
	f := setupTestFixture(t)

	h, err := f.hooks.Health().Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", h.Status)
}
