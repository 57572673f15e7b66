package resources

import (
	"time"

	"github.com/jrsteele09/go-marketplace-client/users"
)

// Dashboard is the signed-in user's aggregate view; each list holds the five most recent rows.
type Dashboard struct {
	User             users.User          `json:"user"`
	Bookings         []DashboardBooking  `json:"bookings"`
	Purchases        []DashboardPurchase `json:"purchases"`
	Quotes           []DashboardQuote    `json:"quotes"`
	MarketplaceItems []DashboardListing  `json:"marketplace_items"`
	UserProperties   []DashboardProperty `json:"user_properties"`
	Stats            DashboardStats      `json:"stats"`
}

type DashboardBooking struct {
	ID            int       `json:"id"`
	GuestName     string    `json:"guest_name,omitempty"`
	PropertyTitle string    `json:"property_title"`
	PropertyImage string    `json:"property_image,omitempty"`
	BookingDate   string    `json:"booking_date"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type DashboardPurchase struct {
	ID            int       `json:"id"`
	BuyerName     string    `json:"buyer_name,omitempty"`
	ItemTitle     string    `json:"item_title"`
	ItemImage     string    `json:"item_image,omitempty"`
	PurchasePrice Money     `json:"purchase_price"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type DashboardQuote struct {
	ID           int       `json:"id"`
	ClientName   string    `json:"client_name,omitempty"`
	ServiceName  string    `json:"service_name"`
	ServiceImage string    `json:"service_image,omitempty"`
	MovingDate   string    `json:"moving_date"`
	Status       string    `json:"status"`
	QuoteAmount  *Money    `json:"quote_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

type DashboardListing struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Price     Money     `json:"price"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type DashboardProperty struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Price     Money     `json:"price"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalBookings  int `json:"total_bookings"`
	TotalPurchases int `json:"total_purchases"`
	TotalQuotes    int `json:"total_quotes"`
	ActiveListings int `json:"active_listings"`
}

type AdminDashboard struct {
	Stats           AdminStats          `json:"stats"`
	RecentBookings  []DashboardBooking  `json:"recent_bookings"`
	RecentPurchases []DashboardPurchase `json:"recent_purchases"`
	RecentQuotes    []DashboardQuote    `json:"recent_quotes"`
}

type AdminStats struct {
	TotalProperties int `json:"total_properties"`
	TotalBookings   int `json:"total_bookings"`
	TotalPurchases  int `json:"total_purchases"`
	TotalQuotes     int `json:"total_quotes"`
	TotalUsers      int `json:"total_users"`
}
