// Package resources holds the records the marketplace backend serves. They are read
// replicas: the client never resolves conflicts, it refetches.
package resources

import "time"

const (
	PropertyTypeRental = "rental"
	PropertyTypeAirbnb = "airbnb"
	PropertyTypeOffice = "office"

	StatusPending = "pending"
)

type Property struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	County       string    `json:"county,omitempty"`
	Town         string    `json:"town,omitempty"`
	Price        Money     `json:"price"`
	PriceType    string    `json:"price_type,omitempty"`
	Type         string    `json:"type"`
	Bedrooms     *int      `json:"bedrooms,omitempty"`
	Bathrooms    *int      `json:"bathrooms,omitempty"`
	Area         *int      `json:"area,omitempty"`
	RentalType   string    `json:"rental_type,omitempty"`
	Image        string    `json:"image,omitempty"`
	Images       []string  `json:"images,omitempty"`
	Rating       *Money    `json:"rating,omitempty"`
	Reviews      int       `json:"reviews"`
	Featured     bool      `json:"featured"`
	ManagedBy    string    `json:"managed_by,omitempty"`
	LandlordName string    `json:"landlord_name,omitempty"`
	AgencyName   string    `json:"agency_name,omitempty"`
	ReadyDate    string    `json:"ready_date,omitempty"`
	Amenities    []string  `json:"amenities,omitempty"`
	CreatedBy    *int      `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PropertyInput is used for create and partial update; nil fields are not sent.
type PropertyInput struct {
	Title      *string  `json:"title,omitempty"`
	Location   *string  `json:"location,omitempty"`
	County     *string  `json:"county,omitempty"`
	Town       *string  `json:"town,omitempty"`
	Price      *Money   `json:"price,omitempty"`
	PriceType  *string  `json:"price_type,omitempty"`
	Type       *string  `json:"type,omitempty"`
	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Bathrooms  *int     `json:"bathrooms,omitempty"`
	Area       *int     `json:"area,omitempty"`
	RentalType *string  `json:"rental_type,omitempty"`
	Images     []string `json:"images,omitempty"`
	Featured   *bool    `json:"featured,omitempty"`
	Amenities  []string `json:"amenities,omitempty"`
}

type MarketplaceItem struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Price       Money     `json:"price"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Image       string    `json:"image"`
	CreatedBy   int       `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MarketplaceItemInput struct {
	Title       string `json:"title"`
	Price       Money  `json:"price"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location"`
	Image       string `json:"image"`
}

type MovingService struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	PriceRange string    `json:"price_range"`
	Services   []string  `json:"services"`
	Image      string    `json:"image"`
	Rating     *Money    `json:"rating,omitempty"`
	Reviews    int       `json:"reviews"`
	Verified   bool      `json:"verified"`
	CreatedBy  *int      `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type MovingServiceInput struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	PriceRange string   `json:"price_range"`
	Services   []string `json:"services"`
	Image      string   `json:"image"`
}

// Booking dates are calendar dates in YYYY-MM-DD form.
type Booking struct {
	ID           int       `json:"id"`
	Property     int       `json:"property"`
	User         string    `json:"user,omitempty"`
	GuestName    string    `json:"guest_name"`
	GuestEmail   string    `json:"guest_email"`
	GuestPhone   string    `json:"guest_phone"`
	BookingDate  string    `json:"booking_date"`
	CheckInDate  string    `json:"check_in_date,omitempty"`
	CheckOutDate string    `json:"check_out_date,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type BookingInput struct {
	Property     int    `json:"property"`
	GuestName    string `json:"guest_name"`
	GuestEmail   string `json:"guest_email"`
	GuestPhone   string `json:"guest_phone"`
	BookingDate  string `json:"booking_date"`
	CheckInDate  string `json:"check_in_date,omitempty"`
	CheckOutDate string `json:"check_out_date,omitempty"`
}

type Quote struct {
	ID               int            `json:"id"`
	Service          *MovingService `json:"service"`
	User             int            `json:"user"`
	ClientName       string         `json:"client_name"`
	ClientEmail      string         `json:"client_email"`
	ClientPhone      string         `json:"client_phone"`
	PickupLocation   string         `json:"pickup_location"`
	DeliveryLocation string         `json:"delivery_location"`
	MovingDate       string         `json:"moving_date"`
	Inventory        string         `json:"inventory,omitempty"`
	QuoteAmount      *Money         `json:"quote_amount,omitempty"`
	Status           string         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
}

type QuoteInput struct {
	Service          int    `json:"service"`
	ClientName       string `json:"client_name"`
	ClientEmail      string `json:"client_email"`
	ClientPhone      string `json:"client_phone"`
	PickupLocation   string `json:"pickup_location"`
	DeliveryLocation string `json:"delivery_location"`
	MovingDate       string `json:"moving_date"`
	Inventory        string `json:"inventory,omitempty"`
}

type Purchase struct {
	ID              int              `json:"id"`
	Item            *MarketplaceItem `json:"item"`
	Buyer           string           `json:"buyer"`
	BuyerName       string           `json:"buyer_name"`
	BuyerEmail      string           `json:"buyer_email"`
	BuyerPhone      string           `json:"buyer_phone"`
	PurchasePrice   Money            `json:"purchase_price"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

type PurchaseInput struct {
	Item            int    `json:"item"`
	BuyerName       string `json:"buyer_name"`
	BuyerEmail      string `json:"buyer_email"`
	BuyerPhone      string `json:"buyer_phone"`
	PurchasePrice   Money  `json:"purchase_price"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

// UploadResult is returned by the image upload endpoint. ImageURL may be absolute or
// root-relative.
type UploadResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url"`
	FileName string `json:"file_name,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Health struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services,omitempty"`
}
