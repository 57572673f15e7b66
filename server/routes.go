package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) initRoutes() {
	r := s.router
	r.Use(middleware.RequestID, s.LoggingMiddleware, s.RecoverMiddleware, s.CorsMiddleware)
	r.NotFound(notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	})

	r.Route(RouteAPIPrefix, func(r chi.Router) {
		r.Use(s.RateLimitMiddleware, s.AuthenticateMiddleware)

		// AUTH
		r.Post(RouteAuthLogin, s.LoginHandler())
		r.Post(RouteAuthRegister, s.RegisterHandler())
		r.Post(RouteTokenRefresh, s.TokenRefreshHandler())
		r.Post(RouteAuthLogout, s.LogoutHandler())
		r.With(s.RequireAuth).Get(RouteAuthMe, s.CurrentUserHandler())
		r.With(s.RequireAuth).Patch(RouteAuthProfile, s.UpdateProfileHandler())

		// LISTINGS (anyone reads, staff write)
		r.Group(func(r chi.Router) {
			r.Use(s.AdminOrReadOnly)
			r.Get(RouteProperties, s.ListPropertiesHandler())
			r.Post(RouteProperties, s.CreatePropertyHandler())
			r.Get(RouteProperty, s.GetPropertyHandler())
			r.Put(RouteProperty, s.UpdatePropertyHandler())
			r.Patch(RouteProperty, s.UpdatePropertyHandler())
			r.Delete(RouteProperty, s.DeletePropertyHandler())

			r.Get(RouteMarketplace, s.ListMarketplaceHandler())
			r.Post(RouteMarketplace, s.CreateMarketplaceItemHandler())
			r.Get(RouteMarketplaceItem, s.GetMarketplaceItemHandler())

			r.Get(RouteMovingServices, s.ListMovingServicesHandler())
			r.Post(RouteMovingServices, s.CreateMovingServiceHandler())
		})

		// ORDERS and DASHBOARDS (signed-in users, scoped to themselves)
		r.Group(func(r chi.Router) {
			r.Use(s.RequireAuth)
			r.Get(RouteBookings, s.ListBookingsHandler())
			r.Post(RouteBookings, s.CreateBookingHandler())
			r.Get(RouteQuotes, s.ListQuotesHandler())
			r.Post(RouteQuotes, s.CreateQuoteHandler())
			r.Get(RoutePurchases, s.ListPurchasesHandler())
			r.Post(RoutePurchases, s.CreatePurchaseHandler())

			r.Get(RouteDashboard, s.DashboardHandler())
			r.Get(RouteAdminDashboard, s.AdminDashboardHandler())
			r.Post(RouteUploadImage, s.UploadImageHandler())
		})

		r.Get(RouteHealth, s.HealthHandler())
	})

	r.Get(s.mediaRoute(), s.MediaHandler())
}

// mediaRoute mounts uploaded files under the configured media URL when it is
// root-relative.
func (s *Server) mediaRoute() string {
	media := s.config.GetMediaURL()
	if len(media) == 0 || media[0] != '/' {
		return RouteMediaUpload
	}
	if media[len(media)-1] != '/' {
		media += "/"
	}
	return media + "uploads/{name}"
}
