package server

// Route path constants. API routes are relative to RouteAPIPrefix; paths keep the
// backend's trailing slash.
const (
	RouteAPIPrefix = "/api"

	// Auth
	RouteAuthLogin    = "/auth/login/"
	RouteAuthRegister = "/auth/register/"
	RouteAuthMe       = "/auth/me/"
	RouteAuthProfile  = "/auth/profile/"
	RouteTokenRefresh = "/auth/token/refresh/"
	RouteAuthLogout   = "/auth/logout/"

	// Listings
	RouteProperties      = "/properties/"
	RouteProperty        = "/properties/{id}/"
	RouteMarketplace     = "/marketplace/"
	RouteMarketplaceItem = "/marketplace/{id}/"
	RouteMovingServices  = "/moving-services/"

	// Orders
	RouteBookings  = "/bookings/"
	RouteQuotes    = "/quotes/"
	RoutePurchases = "/purchases/"

	// Dashboards
	RouteDashboard      = "/dashboard/"
	RouteAdminDashboard = "/admin/dashboard/"

	RouteUploadImage = "/upload/image/"
	RouteHealth      = "/health/"

	// Media is served from the site root, outside the API prefix.
	RouteMediaUpload = "/media/uploads/{name}"
)
