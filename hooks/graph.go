package hooks

// Cache resources. A resource is the first half of a query key; invalidation works
// on whole resources.
const (
	ResourceProperties        = "properties"
	ResourceProperty          = "property"
	ResourceUserProperties    = "user_properties"
	ResourceSearchProperties  = "search_properties"
	ResourceMarketplaceItems  = "marketplace_items"
	ResourceSearchMarketplace = "search_marketplace"
	ResourceMovingServices    = "moving_services"
	ResourceBookings          = "bookings"
	ResourceUserBookings      = "user_bookings"
	ResourceQuotes            = "quotes"
	ResourceUserQuotes        = "user_quotes"
	ResourcePurchases         = "purchases"
	ResourceUserPurchases     = "user_purchases"
	ResourceDashboard         = "django-dashboard"
	ResourceAdminDashboard    = "admin_dashboard"
	ResourceProfile           = "profile"
	ResourceHealth            = "health"
)

// Mutation names, the keys of InvalidationGraph.
const (
	CreateProperty        = "create_property"
	UpdateProperty        = "update_property"
	DeleteProperty        = "delete_property"
	CreateMarketplaceItem = "create_marketplace_item"
	CreateMovingService   = "create_moving_service"
	CreateBooking         = "create_booking"
	CreateQuote           = "create_quote"
	CreatePurchase        = "create_purchase"
	UpdateProfile         = "update_profile"
	UploadImage           = "upload_image"
)

var propertyWrites = []string{
	ResourceProperties,
	ResourceProperty,
	ResourceUserProperties,
	ResourceSearchProperties,
	ResourceDashboard,
	ResourceAdminDashboard,
}

// InvalidationGraph lists, per mutation, every resource whose cached data the
// mutation can change. Nothing outside this map is ever invalidated.
var InvalidationGraph = map[string][]string{
	CreateProperty:        propertyWrites,
	UpdateProperty:        propertyWrites,
	DeleteProperty:        propertyWrites,
	CreateMarketplaceItem: {ResourceMarketplaceItems, ResourceSearchMarketplace, ResourceDashboard},
	CreateMovingService:   {ResourceMovingServices},
	CreateBooking:         {ResourceBookings, ResourceUserBookings, ResourceDashboard, ResourceAdminDashboard},
	CreateQuote:           {ResourceQuotes, ResourceUserQuotes, ResourceDashboard, ResourceAdminDashboard},
	CreatePurchase:        {ResourcePurchases, ResourceUserPurchases, ResourceDashboard, ResourceAdminDashboard},
	UpdateProfile:         {ResourceProfile, ResourceDashboard},
	UploadImage:           nil,
}
