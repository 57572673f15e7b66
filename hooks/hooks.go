// Package hooks binds each backend resource to a cache key, a fetch and an
// enabled guard, and each write to the resources it invalidates.
package hooks

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/auth"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/query"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/pkg/errors"
)

// API is the backend surface the hooks use.
type API interface {
	ListProperties(ctx context.Context, token string, params url.Values) ([]resources.Property, error)
	GetProperty(ctx context.Context, id int) (*resources.Property, error)
	CreateProperty(ctx context.Context, token string, in resources.PropertyInput) (*resources.Property, error)
	UpdateProperty(ctx context.Context, token string, id int, in resources.PropertyInput) (*resources.Property, error)
	DeleteProperty(ctx context.Context, token string, id int) error
	ListMarketplaceItems(ctx context.Context, params url.Values) ([]resources.MarketplaceItem, error)
	CreateMarketplaceItem(ctx context.Context, token string, in resources.MarketplaceItemInput) (*resources.MarketplaceItem, error)
	ListMovingServices(ctx context.Context, params url.Values) ([]resources.MovingService, error)
	CreateMovingService(ctx context.Context, token string, in resources.MovingServiceInput) (*resources.MovingService, error)
	ListBookings(ctx context.Context, token string) ([]resources.Booking, error)
	CreateBooking(ctx context.Context, token string, in resources.BookingInput) (*resources.Booking, error)
	ListQuotes(ctx context.Context, token string) ([]resources.Quote, error)
	CreateQuote(ctx context.Context, token string, in resources.QuoteInput) (*resources.Quote, error)
	ListPurchases(ctx context.Context, token string) ([]resources.Purchase, error)
	CreatePurchase(ctx context.Context, token string, in resources.PurchaseInput) (*resources.Purchase, error)
	UserDashboard(ctx context.Context, token string) (*resources.Dashboard, error)
	AdminDashboard(ctx context.Context, token string) (*resources.AdminDashboard, error)
	CurrentUser(ctx context.Context, token string) (*users.User, error)
	UpdateProfile(ctx context.Context, token string, patch resources.UserPatch) (*users.User, error)
	UploadImage(ctx context.Context, token, filename string, r io.Reader) (*resources.UploadResult, error)
	HealthCheck(ctx context.Context) (*resources.Health, error)
	ResolveMediaURL(u string) string
}

var _ API = (*apiclient.Client)(nil)

// Session supplies the access token. Authorized runs a call with it and deals with
// expiry; it fails with ErrAuthRequired when there is no token.
type Session interface {
	AccessToken() string
	User() *users.User
	Authorized(ctx context.Context, call func(ctx context.Context, accessToken string) error) error
}

var _ Session = (*auth.Manager)(nil)

// PropertyUpdate is the input of UpdateProperty.
type PropertyUpdate struct {
	ID    int
	Input resources.PropertyInput
}

// ImageUpload is the input of UploadImage.
type ImageUpload struct {
	Filename string
	File     io.Reader
}

type Hooks struct {
	api     API
	session Session
	cache   *query.Cache
	cfg     config.CacheConfig
	nowTime func() time.Time
}

type Option func(*Hooks)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(h *Hooks) {
		h.nowTime = nowFunc
	}
}

func New(api API, session Session, cache *query.Cache, cfg config.CacheConfig, opts ...Option) *Hooks {
	h := &Hooks{api: api, session: session, cache: cache, cfg: cfg, nowTime: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hooks) Cache() *query.Cache {
	return h.cache
}

func (h *Hooks) hasToken() bool {
	return h.session.AccessToken() != ""
}

// userParams scopes a key to the signed-in user so accounts never share entries.
func (h *Hooks) userParams() url.Values {
	params := url.Values{}
	if u := h.session.User(); u != nil {
		params.Set("user", strconv.Itoa(u.ID))
	}
	return params
}

func newQuery[T any](h *Hooks, resource string, params func() url.Values, enabled func() bool, fetch func(ctx context.Context) (T, error)) *query.Query[T] {
	return query.New(h.cache, query.Options[T]{
		Key:       func() query.Key { return query.NewKey(resource, params()) },
		Fetch:     fetch,
		Enabled:   enabled,
		StaleTime: h.cfg.GetDefaultStaleTime(),
	})
}

func fixed(params url.Values) func() url.Values {
	return func() url.Values { return params }
}

// authorized adapts a token-taking API call to the session.
func authorized[T any](h *Hooks, call func(ctx context.Context, token string) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		err := h.session.Authorized(ctx, func(ctx context.Context, token string) error {
			var err error
			out, err = call(ctx, token)
			return err
		})
		return out, err
	}
}

// Properties lists properties matching filters. Listings created by the caller need
// a session.
func (h *Hooks) Properties(filters resources.PropertyFilters) *query.Query[[]resources.Property] {
	params := filters.Values()
	enabled := func() bool { return !filters.CreatedByUser || h.hasToken() }
	keyParams := fixed(params)
	fetch := func(ctx context.Context) ([]resources.Property, error) {
		return h.api.ListProperties(ctx, "", params)
	}
	if filters.CreatedByUser {
		// the backend scopes this filter to the caller, so the key must too
		keyParams = func() url.Values {
			scoped := h.userParams()
			for name, values := range params {
				scoped[name] = values
			}
			return scoped
		}
		fetch = authorized(h, func(ctx context.Context, token string) ([]resources.Property, error) {
			return h.api.ListProperties(ctx, token, params)
		})
	}
	return newQuery(h, ResourceProperties, keyParams, enabled, fetch)
}

func (h *Hooks) FeaturedProperties() *query.Query[[]resources.Property] {
	featured := true
	return h.Properties(resources.PropertyFilters{Featured: &featured})
}

func (h *Hooks) RentalProperties() *query.Query[[]resources.Property] {
	return h.Properties(resources.PropertyFilters{PropertyType: resources.PropertyTypeRental})
}

func (h *Hooks) AirbnbProperties() *query.Query[[]resources.Property] {
	return h.Properties(resources.PropertyFilters{PropertyType: resources.PropertyTypeAirbnb})
}

func (h *Hooks) OfficeProperties() *query.Query[[]resources.Property] {
	return h.Properties(resources.PropertyFilters{PropertyType: resources.PropertyTypeOffice})
}

// Property loads one property; it is not ready until id is positive.
func (h *Hooks) Property(id int) *query.Query[*resources.Property] {
	return newQuery(h, ResourceProperty,
		fixed(url.Values{"id": {strconv.Itoa(id)}}),
		func() bool { return id > 0 },
		func(ctx context.Context) (*resources.Property, error) {
			return h.api.GetProperty(ctx, id)
		})
}

// UserProperties lists the properties the signed-in user created.
func (h *Hooks) UserProperties() *query.Query[[]resources.Property] {
	params := resources.PropertyFilters{CreatedByUser: true}.Values()
	return newQuery(h, ResourceUserProperties,
		func() url.Values { return h.userParams() },
		h.hasToken,
		authorized(h, func(ctx context.Context, token string) ([]resources.Property, error) {
			return h.api.ListProperties(ctx, token, params)
		}))
}

// SearchProperties runs an ad-hoc search; it stays not ready until a filter is set.
func (h *Hooks) SearchProperties(filters resources.SearchFilters) *query.Query[[]resources.Property] {
	params := filters.Values()
	return newQuery(h, ResourceSearchProperties, fixed(params),
		func() bool { return !filters.IsEmpty() },
		func(ctx context.Context) ([]resources.Property, error) {
			return h.api.ListProperties(ctx, "", params)
		})
}

func (h *Hooks) MarketplaceItems(filters resources.MarketplaceFilters) *query.Query[[]resources.MarketplaceItem] {
	params := filters.Values()
	return newQuery(h, ResourceMarketplaceItems, fixed(params), nil,
		func(ctx context.Context) ([]resources.MarketplaceItem, error) {
			return h.api.ListMarketplaceItems(ctx, params)
		})
}

// SearchMarketplace searches listings by text and category; it needs at least one.
func (h *Hooks) SearchMarketplace(search, category string) *query.Query[[]resources.MarketplaceItem] {
	params := resources.MarketplaceFilters{Search: search, Category: category}.Values()
	return newQuery(h, ResourceSearchMarketplace, fixed(params),
		func() bool { return search != "" || category != "" },
		func(ctx context.Context) ([]resources.MarketplaceItem, error) {
			return h.api.ListMarketplaceItems(ctx, params)
		})
}

func (h *Hooks) MovingServices(filters resources.MovingServiceFilters) *query.Query[[]resources.MovingService] {
	params := filters.Values()
	return newQuery(h, ResourceMovingServices, fixed(params), nil,
		func(ctx context.Context) ([]resources.MovingService, error) {
			return h.api.ListMovingServices(ctx, params)
		})
}

func (h *Hooks) UserBookings() *query.Query[[]resources.Booking] {
	return newQuery(h, ResourceUserBookings, func() url.Values { return h.userParams() }, h.hasToken,
		authorized(h, h.api.ListBookings))
}

func (h *Hooks) UserQuotes() *query.Query[[]resources.Quote] {
	return newQuery(h, ResourceUserQuotes, func() url.Values { return h.userParams() }, h.hasToken,
		authorized(h, h.api.ListQuotes))
}

func (h *Hooks) UserPurchases() *query.Query[[]resources.Purchase] {
	return newQuery(h, ResourceUserPurchases, func() url.Values { return h.userParams() }, h.hasToken,
		authorized(h, h.api.ListPurchases))
}

func (h *Hooks) dashboardOptions() (time.Duration, int) {
	return h.cfg.GetDashboardStaleTime(), h.cfg.GetDashboardRetries()
}

// Dashboard is the signed-in user's aggregate view. It is served from cache for the
// dashboard stale time and retried on server errors.
func (h *Hooks) Dashboard() *query.Query[*resources.Dashboard] {
	stale, retries := h.dashboardOptions()
	return query.New(h.cache, query.Options[*resources.Dashboard]{
		Key:       func() query.Key { return query.NewKey(ResourceDashboard, h.userParams()) },
		Fetch:     authorized(h, h.api.UserDashboard),
		Enabled:   h.hasToken,
		StaleTime: stale,
		Retry:     retries,
	})
}

// AdminDashboard is the staff overview. Non-staff users get a 403, which is not
// retried.
func (h *Hooks) AdminDashboard() *query.Query[*resources.AdminDashboard] {
	stale, retries := h.dashboardOptions()
	return query.New(h.cache, query.Options[*resources.AdminDashboard]{
		Key:       func() query.Key { return query.NewKey(ResourceAdminDashboard, h.userParams()) },
		Fetch:     authorized(h, h.api.AdminDashboard),
		Enabled:   h.hasToken,
		StaleTime: stale,
		Retry:     retries,
	})
}

// Profile derives the profile view from the current user record.
func (h *Hooks) Profile() *query.Query[resources.Profile] {
	return newQuery(h, ResourceProfile, func() url.Values { return h.userParams() }, h.hasToken,
		authorized(h, func(ctx context.Context, token string) (resources.Profile, error) {
			u, err := h.api.CurrentUser(ctx, token)
			if err != nil {
				return resources.Profile{}, err
			}
			return resources.ProfileFromUser(*u, h.nowTime()), nil
		}))
}

func (h *Hooks) Health() *query.Query[*resources.Health] {
	return newQuery(h, ResourceHealth, fixed(nil), nil, h.api.HealthCheck)
}

func newMutation[I, O any](h *Hooks, name string, call func(ctx context.Context, token string, in I) (O, error)) *query.Mutation[I, O] {
	return query.NewMutation(h.cache, func(ctx context.Context, in I) (O, error) {
		var out O
		err := h.session.Authorized(ctx, func(ctx context.Context, token string) error {
			var err error
			out, err = call(ctx, token, in)
			return err
		})
		return out, err
	}, InvalidationGraph[name]...)
}

func (h *Hooks) CreateProperty() *query.Mutation[resources.PropertyInput, *resources.Property] {
	return newMutation(h, CreateProperty, h.api.CreateProperty)
}

func (h *Hooks) UpdateProperty() *query.Mutation[PropertyUpdate, *resources.Property] {
	return newMutation(h, UpdateProperty, func(ctx context.Context, token string, in PropertyUpdate) (*resources.Property, error) {
		return h.api.UpdateProperty(ctx, token, in.ID, in.Input)
	})
}

func (h *Hooks) DeleteProperty() *query.Mutation[int, struct{}] {
	return newMutation(h, DeleteProperty, func(ctx context.Context, token string, id int) (struct{}, error) {
		return struct{}{}, h.api.DeleteProperty(ctx, token, id)
	})
}

func (h *Hooks) CreateMarketplaceItem() *query.Mutation[resources.MarketplaceItemInput, *resources.MarketplaceItem] {
	return newMutation(h, CreateMarketplaceItem, h.api.CreateMarketplaceItem)
}

func (h *Hooks) CreateMovingService() *query.Mutation[resources.MovingServiceInput, *resources.MovingService] {
	return newMutation(h, CreateMovingService, h.api.CreateMovingService)
}

func (h *Hooks) CreateBooking() *query.Mutation[resources.BookingInput, *resources.Booking] {
	return newMutation(h, CreateBooking, h.api.CreateBooking)
}

func (h *Hooks) CreateQuote() *query.Mutation[resources.QuoteInput, *resources.Quote] {
	return newMutation(h, CreateQuote, h.api.CreateQuote)
}

func (h *Hooks) CreatePurchase() *query.Mutation[resources.PurchaseInput, *resources.Purchase] {
	return newMutation(h, CreatePurchase, h.api.CreatePurchase)
}

// UpdateProfile sends the name and username change and returns the new profile.
func (h *Hooks) UpdateProfile() *query.Mutation[resources.ProfileUpdate, resources.Profile] {
	return newMutation(h, UpdateProfile, func(ctx context.Context, token string, in resources.ProfileUpdate) (resources.Profile, error) {
		current := h.session.User()
		if current == nil {
			return resources.Profile{}, errors.New("[Hooks.UpdateProfile] no signed-in user")
		}
		updated, err := h.api.UpdateProfile(ctx, token, in.Patch(*current))
		if err != nil {
			return resources.Profile{}, err
		}
		return in.Apply(*updated, h.nowTime()), nil
	})
}

// UploadImage uploads a file and returns its result with an absolute image URL. The
// file is read once up front so a retry after a token refresh sends the same bytes.
func (h *Hooks) UploadImage() *query.Mutation[ImageUpload, *resources.UploadResult] {
	return query.NewMutation(h.cache, func(ctx context.Context, in ImageUpload) (*resources.UploadResult, error) {
		data, err := io.ReadAll(in.File)
		if err != nil {
			return nil, errors.Wrap(err, "[Hooks.UploadImage] read file")
		}
		var res *resources.UploadResult
		err = h.session.Authorized(ctx, func(ctx context.Context, token string) error {
			var err error
			res, err = h.api.UploadImage(ctx, token, in.Filename, bytes.NewReader(data))
			return err
		})
		if err != nil {
			return nil, err
		}
		res.ImageURL = h.api.ResolveMediaURL(res.ImageURL)
		return res, nil
	}, InvalidationGraph[UploadImage]...)
}
