package server

import (
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
)

const (
	dashboardRecent      = 5
	adminDashboardRecent = 10
)

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (s *Store) dashboardBookings(owner, n int) []resources.DashboardBooking {
	out := []resources.DashboardBooking{}
	for _, b := range firstN(s.Bookings(owner), n) {
		row := resources.DashboardBooking{
			ID:          b.ID,
			GuestName:   b.GuestName,
			BookingDate: b.BookingDate,
			Status:      b.Status,
			CreatedAt:   b.CreatedAt,
		}
		// the property may have been deleted since
		if p, err := s.GetProperty(b.Property); err == nil {
			row.PropertyTitle = p.Title
			row.PropertyImage = p.Image
		}
		out = append(out, row)
	}
	return out
}

func (s *Store) dashboardPurchases(owner, n int) []resources.DashboardPurchase {
	out := []resources.DashboardPurchase{}
	for _, p := range firstN(s.Purchases(owner), n) {
		row := resources.DashboardPurchase{
			ID:            p.ID,
			BuyerName:     p.BuyerName,
			PurchasePrice: p.PurchasePrice,
			Status:        p.Status,
			CreatedAt:     p.CreatedAt,
		}
		if p.Item != nil {
			row.ItemTitle = p.Item.Title
			row.ItemImage = p.Item.Image
		}
		out = append(out, row)
	}
	return out
}

func (s *Store) dashboardQuotes(owner, n int) []resources.DashboardQuote {
	out := []resources.DashboardQuote{}
	for _, q := range firstN(s.Quotes(owner), n) {
		row := resources.DashboardQuote{
			ID:          q.ID,
			ClientName:  q.ClientName,
			MovingDate:  q.MovingDate,
			Status:      q.Status,
			QuoteAmount: q.QuoteAmount,
			CreatedAt:   q.CreatedAt,
		}
		if q.Service != nil {
			row.ServiceName = q.Service.Name
			row.ServiceImage = q.Service.Image
		}
		out = append(out, row)
	}
	return out
}

// Dashboard builds the aggregate view for one user.
func (s *Store) Dashboard(user users.User) resources.Dashboard {
	listings := s.MarketplaceByCreator(user.ID)
	d := resources.Dashboard{
		User:             user,
		Bookings:         s.dashboardBookings(user.ID, dashboardRecent),
		Purchases:        s.dashboardPurchases(user.ID, dashboardRecent),
		Quotes:           s.dashboardQuotes(user.ID, dashboardRecent),
		MarketplaceItems: []resources.DashboardListing{},
		UserProperties:   []resources.DashboardProperty{},
		Stats: resources.DashboardStats{
			TotalBookings:  len(s.Bookings(user.ID)),
			TotalPurchases: len(s.Purchases(user.ID)),
			TotalQuotes:    len(s.Quotes(user.ID)),
			ActiveListings: len(listings),
		},
	}
	for _, m := range firstN(listings, dashboardRecent) {
		d.MarketplaceItems = append(d.MarketplaceItems, resources.DashboardListing{
			ID:        m.ID,
			Title:     m.Title,
			Image:     m.Image,
			Price:     m.Price,
			Status:    "active",
			CreatedAt: m.CreatedAt,
		})
	}
	owner := user.ID
	for _, p := range firstN(s.ListProperties(PropertyQuery{CreatedBy: &owner}), dashboardRecent) {
		d.UserProperties = append(d.UserProperties, resources.DashboardProperty{
			ID:        p.ID,
			Title:     p.Title,
			Image:     p.Image,
			Price:     p.Price,
			Type:      p.Type,
			CreatedAt: p.CreatedAt,
		})
	}
	return d
}

// AdminDashboard builds the site-wide view; totalUsers comes from the user repo.
func (s *Store) AdminDashboard(totalUsers int) resources.AdminDashboard {
	return resources.AdminDashboard{
		Stats: resources.AdminStats{
			TotalProperties: s.CountProperties(),
			TotalBookings:   len(s.Bookings(0)),
			TotalPurchases:  len(s.Purchases(0)),
			TotalQuotes:     len(s.Quotes(0)),
			TotalUsers:      totalUsers,
		},
		RecentBookings:  s.dashboardBookings(0, adminDashboardRecent),
		RecentPurchases: s.dashboardPurchases(0, adminDashboardRecent),
		RecentQuotes:    s.dashboardQuotes(0, adminDashboardRecent),
	}
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.store.Dashboard(*userFromContext(r.Context())))
	}
}

func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !userFromContext(r.Context()).IsStaff {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		writeJSON(w, http.StatusOK, s.store.AdminDashboard(s.users.Count()))
	}
}
