package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/hooks"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <username> <password>")
		}
		if err := a.manager.SignIn(ctx, args[0], args[1]); err != nil {
			return err
		}
		return a.whoami()
	case "register":
		if len(args) < 3 {
			return errors.New("usage: register <username> <email> <password> [first] [last]")
		}
		reg := users.Registration{Username: args[0], Email: args[1], Password: args[2]}
		if len(args) > 3 {
			reg.FirstName = args[3]
		}
		if len(args) > 4 {
			reg.LastName = args[4]
		}
		if err := a.manager.SignUp(ctx, reg); err != nil {
			return err
		}
		return a.whoami()
	case "logout":
		if err := a.manager.SignOut(); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "refresh":
		if err := a.manager.Refresh(ctx); err != nil {
			return err
		}
		fmt.Println("access token refreshed")
		return nil
	case "properties":
		return a.properties(ctx, args)
	case "property":
		if len(args) != 1 {
			return errors.New("usage: property <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrap(err, "property id")
		}
		return printResult(a.hooks.Property(id).Fetch(ctx))
	case "marketplace":
		return a.marketplace(ctx, args)
	case "movers":
		return a.movers(ctx, args)
	case "bookings":
		return printResult(a.hooks.UserBookings().Fetch(ctx))
	case "quotes":
		return printResult(a.hooks.UserQuotes().Fetch(ctx))
	case "purchases":
		return printResult(a.hooks.UserPurchases().Fetch(ctx))
	case "book":
		return a.book(ctx, args)
	case "dashboard":
		fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
		admin := fs.Bool("admin", false, "show the staff overview")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *admin {
			return printResult(a.hooks.AdminDashboard().Fetch(ctx))
		}
		return printResult(a.hooks.Dashboard().Fetch(ctx))
	case "watch":
		return a.watch(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "health":
		return printResult(a.hooks.Health().Fetch(ctx))
	case "raw":
		return a.raw(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) whoami() error {
	u := a.manager.User()
	if u == nil {
		fmt.Println("not signed in")
		return nil
	}
	role := "user"
	if u.IsStaff {
		role = "staff"
	}
	fmt.Printf("%s <%s> (%s, %s)\n", u.Username, u.Email, role, a.manager.State())
	return nil
}

func (a *app) properties(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("properties", flag.ContinueOnError)
	var f resources.PropertyFilters
	fs.StringVar(&f.Type, "type", "", "rental, airbnb or office")
	fs.StringVar(&f.Location, "location", "", "exact location")
	fs.StringVar(&f.County, "county", "", "county, partial match")
	featured := fs.Bool("featured", false, "featured listings only")
	fs.BoolVar(&f.CreatedByUser, "mine", false, "listings you created")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *featured {
		f.Featured = featured
	}
	return printResult(a.hooks.Properties(f).Fetch(ctx))
}

func (a *app) marketplace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("marketplace", flag.ContinueOnError)
	var f resources.MarketplaceFilters
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.Search, "search", "", "text search")
	fs.StringVar(&f.Location, "location", "", "location")
	maxPrice := fs.Float64("max-price", 0, "maximum price")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *maxPrice > 0 {
		f.MaxPrice = maxPrice
	}
	return printResult(a.hooks.MarketplaceItems(f).Fetch(ctx))
}

func (a *app) movers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("movers", flag.ContinueOnError)
	var f resources.MovingServiceFilters
	fs.StringVar(&f.Location, "location", "", "location")
	verified := fs.Bool("verified", false, "verified movers only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verified {
		f.Verified = verified
	}
	return printResult(a.hooks.MovingServices(f).Fetch(ctx))
}

func (a *app) book(ctx context.Context, args []string) error {
	if len(args) != 5 {
		return errors.New("usage: book <property-id> <name> <email> <phone> <yyyy-mm-dd>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "property id")
	}
	return printResult(a.hooks.CreateBooking().Mutate(ctx, resources.BookingInput{
		Property:    id,
		GuestName:   args[1],
		GuestEmail:  args[2],
		GuestPhone:  args[3],
		BookingDate: args[4],
	}))
}

// watch polls the dashboard on the refresh interval. With -metrics-addr the cache
// counters are served for scraping while it runs.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", "", "address to serve /metrics on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("[watch] metrics server")
			}
		}()
		defer srv.Close()
		log.Info().Str("addr", *metricsAddr).Msg("[watch] serving metrics")
	}

	a.hooks.Cache().StartGC(ctx, a.cfg.GetGCTime())
	a.hooks.Dashboard().Poll(ctx, a.cfg.GetDashboardRefreshInterval(), func(d *resources.Dashboard, err error) {
		if err != nil {
			fmt.Fprintln(os.Stderr, "dashboard:", describe(err))
			return
		}
		fmt.Printf("%s  bookings=%d purchases=%d quotes=%d listings=%d\n",
			time.Now().Format(time.Kitchen), d.Stats.TotalBookings, d.Stats.TotalPurchases, d.Stats.TotalQuotes, d.Stats.ActiveListings)
	})
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: upload <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return printResult(a.hooks.UploadImage().Mutate(ctx, hooks.ImageUpload{Filename: filepath.Base(args[0]), File: f}))
}

// raw sends an authenticated GET through the session's token source.
func (a *app) raw(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: raw <path>")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.api.BaseURL()+"/"+strings.TrimLeft(args[0], "/"), nil)
	if err != nil {
		return err
	}
	client := http.DefaultClient
	if a.manager.IsAuthenticated() {
		client = a.manager.HTTPClient(ctx)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintln(os.Stderr, resp.Status)
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

func printResult[T any](v T, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe flattens field errors into one line per field.
func describe(err error) string {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	fe := apiErr.FieldErrors()
	if len(fe) == 0 {
		return fmt.Sprintf("%s (%d)", apiErr.Message, apiErr.StatusCode)
	}
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	var b strings.Builder
	fmt.Fprintf(&b, "%d", apiErr.StatusCode)
	for _, field := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(fe[field], " "))
	}
	return b.String()
}
