package server

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/resources"
)

type ownedBooking struct {
	owner int
	resources.Booking
}

type ownedQuote struct {
	owner int
	resources.Quote
}

type ownedPurchase struct {
	owner int
	resources.Purchase
}

// Store is the in-memory data behind the mock API. Records are kept as values and
// copied in and out, so callers never share memory with it.
type Store struct {
	mu          sync.RWMutex
	properties  map[int]resources.Property
	marketplace map[int]resources.MarketplaceItem
	movers      map[int]resources.MovingService
	bookings    []ownedBooking
	quotes      []ownedQuote
	purchases   []ownedPurchase
	nextID      map[string]int
	nowTime     func() time.Time
}

func NewStore(nowTime func() time.Time) *Store {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Store{
		properties:  make(map[int]resources.Property),
		marketplace: make(map[int]resources.MarketplaceItem),
		movers:      make(map[int]resources.MovingService),
		nextID:      make(map[string]int),
		nowTime:     nowTime,
	}
}

func (s *Store) idLocked(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

// newestFirst orders by creation time, then id, both descending.
func newestFirst(aTime, bTime time.Time, aID, bID int) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

// PropertyQuery holds the parsed list filters for properties.
type PropertyQuery struct {
	Type       string
	RentalType string
	Location   string
	Contains   []string // county and town both match location case-insensitively
	MinPrice   *float64
	MaxPrice   *float64
	Bedrooms   *int
	Featured   *bool
	CreatedBy  *int
	Search     string
}

func (q PropertyQuery) matches(p resources.Property) bool {
	if q.Type != "" && p.Type != q.Type {
		return false
	}
	if q.RentalType != "" && p.RentalType != q.RentalType {
		return false
	}
	if q.Location != "" && p.Location != q.Location {
		return false
	}
	for _, c := range q.Contains {
		if !containsFold(p.Location, c) {
			return false
		}
	}
	if q.MinPrice != nil && float64(p.Price) < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && float64(p.Price) > *q.MaxPrice {
		return false
	}
	if q.Bedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms != *q.Bedrooms) {
		return false
	}
	if q.Featured != nil && p.Featured != *q.Featured {
		return false
	}
	if q.CreatedBy != nil && (p.CreatedBy == nil || *p.CreatedBy != *q.CreatedBy) {
		return false
	}
	if q.Search != "" && !containsFold(p.Title, q.Search) && !containsFold(p.Location, q.Search) && !containsFold(p.RentalType, q.Search) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (s *Store) ListProperties(q PropertyQuery) []resources.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resources.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if q.matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) GetProperty(id int) (resources.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return resources.Property{}, errors.ErrNotFound
	}
	return p, nil
}

// SaveProperty applies in to the property with id, or creates one when id is 0.
func (s *Store) SaveProperty(id int, in resources.PropertyInput, createdBy int) (resources.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p resources.Property
	if id == 0 {
		p = resources.Property{ID: s.idLocked("property"), CreatedBy: &createdBy, CreatedAt: s.nowTime(), PriceType: "month"}
	} else {
		existing, ok := s.properties[id]
		if !ok {
			return resources.Property{}, errors.ErrNotFound
		}
		p = existing
	}
	applyPropertyInput(&p, in)
	s.properties[p.ID] = p
	return p, nil
}

func applyPropertyInput(p *resources.Property, in resources.PropertyInput) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Title, in.Title)
	set(&p.Location, in.Location)
	set(&p.County, in.County)
	set(&p.Town, in.Town)
	set(&p.PriceType, in.PriceType)
	set(&p.Type, in.Type)
	set(&p.RentalType, in.RentalType)
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Bedrooms != nil {
		p.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = in.Bathrooms
	}
	if in.Area != nil {
		p.Area = in.Area
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Images != nil {
		p.Images = append([]string(nil), in.Images...)
		if len(p.Images) > 0 {
			p.Image = p.Images[0]
		}
	}
	if in.Amenities != nil {
		p.Amenities = append([]string(nil), in.Amenities...)
	}
}

func (s *Store) DeleteProperty(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return errors.ErrNotFound
	}
	delete(s.properties, id)
	return nil
}

type MarketplaceQuery struct {
	Category  string
	Condition string
	Location  string
	MinPrice  *float64
	MaxPrice  *float64
	Search    string
}

func (q MarketplaceQuery) matches(m resources.MarketplaceItem) bool {
	switch {
	case q.Category != "" && m.Category != q.Category:
		return false
	case q.Condition != "" && m.Condition != q.Condition:
		return false
	case q.Location != "" && m.Location != q.Location:
		return false
	case q.MinPrice != nil && float64(m.Price) < *q.MinPrice:
		return false
	case q.MaxPrice != nil && float64(m.Price) > *q.MaxPrice:
		return false
	case q.Search != "" && !containsFold(m.Title, q.Search) && !containsFold(m.Description, q.Search) && !containsFold(m.Category, q.Search):
		return false
	}
	return true
}

func (s *Store) ListMarketplace(q MarketplaceQuery) []resources.MarketplaceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resources.MarketplaceItem, 0, len(s.marketplace))
	for _, m := range s.marketplace {
		if q.matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) GetMarketplaceItem(id int) (resources.MarketplaceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.marketplace[id]
	if !ok {
		return resources.MarketplaceItem{}, errors.ErrNotFound
	}
	return m, nil
}

func (s *Store) CreateMarketplaceItem(in resources.MarketplaceItemInput, createdBy int) resources.MarketplaceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := resources.MarketplaceItem{
		ID:          s.idLocked("marketplace"),
		Title:       in.Title,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		Description: in.Description,
		Location:    in.Location,
		Image:       in.Image,
		CreatedBy:   createdBy,
		CreatedAt:   s.nowTime(),
	}
	s.marketplace[m.ID] = m
	return m
}

type MovingQuery struct {
	Location string
	Verified *bool
	Search   string
}

func (q MovingQuery) matches(m resources.MovingService) bool {
	switch {
	case q.Location != "" && m.Location != q.Location:
		return false
	case q.Verified != nil && m.Verified != *q.Verified:
		return false
	case q.Search != "" && !containsFold(m.Name, q.Search) && !containsFold(m.Location, q.Search):
		return false
	}
	return true
}

func (s *Store) ListMovingServices(q MovingQuery) []resources.MovingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resources.MovingService, 0, len(s.movers))
	for _, m := range s.movers {
		if q.matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) CreateMovingService(in resources.MovingServiceInput, createdBy int) resources.MovingService {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := resources.MovingService{
		ID:         s.idLocked("moving"),
		Name:       in.Name,
		Location:   in.Location,
		PriceRange: in.PriceRange,
		Services:   append([]string{}, in.Services...),
		Image:      in.Image,
		CreatedBy:  &createdBy,
		CreatedAt:  s.nowTime(),
	}
	s.movers[m.ID] = m
	return m
}

func (s *Store) CreateBooking(owner int, username string, in resources.BookingInput) (resources.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[in.Property]; !ok {
		return resources.Booking{}, errors.ErrNotFound
	}
	b := resources.Booking{
		ID:           s.idLocked("booking"),
		Property:     in.Property,
		User:         username,
		GuestName:    in.GuestName,
		GuestEmail:   in.GuestEmail,
		GuestPhone:   in.GuestPhone,
		BookingDate:  in.BookingDate,
		CheckInDate:  in.CheckInDate,
		CheckOutDate: in.CheckOutDate,
		Status:       resources.StatusPending,
		CreatedAt:    s.nowTime(),
	}
	s.bookings = append(s.bookings, ownedBooking{owner: owner, Booking: b})
	return b, nil
}

// Bookings returns the bookings of owner, or every booking when owner is 0.
func (s *Store) Bookings(owner int) []resources.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []resources.Booking{}
	for i := len(s.bookings) - 1; i >= 0; i-- {
		if owner == 0 || s.bookings[i].owner == owner {
			out = append(out, s.bookings[i].Booking)
		}
	}
	return out
}

func (s *Store) CreateQuote(owner int, in resources.QuoteInput) (resources.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	service, ok := s.movers[in.Service]
	if !ok {
		return resources.Quote{}, errors.ErrNotFound
	}
	q := resources.Quote{
		ID:               s.idLocked("quote"),
		Service:          &service,
		User:             owner,
		ClientName:       in.ClientName,
		ClientEmail:      in.ClientEmail,
		ClientPhone:      in.ClientPhone,
		PickupLocation:   in.PickupLocation,
		DeliveryLocation: in.DeliveryLocation,
		MovingDate:       in.MovingDate,
		Inventory:        in.Inventory,
		Status:           resources.StatusPending,
		CreatedAt:        s.nowTime(),
	}
	s.quotes = append(s.quotes, ownedQuote{owner: owner, Quote: q})
	return q, nil
}

func (s *Store) Quotes(owner int) []resources.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []resources.Quote{}
	for i := len(s.quotes) - 1; i >= 0; i-- {
		if owner == 0 || s.quotes[i].owner == owner {
			out = append(out, s.quotes[i].Quote)
		}
	}
	return out
}

func (s *Store) CreatePurchase(owner int, username string, in resources.PurchaseInput) (resources.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.marketplace[in.Item]
	if !ok {
		return resources.Purchase{}, errors.ErrNotFound
	}
	price := in.PurchasePrice
	if price == 0 {
		price = item.Price
	}
	p := resources.Purchase{
		ID:              s.idLocked("purchase"),
		Item:            &item,
		Buyer:           username,
		BuyerName:       in.BuyerName,
		BuyerEmail:      in.BuyerEmail,
		BuyerPhone:      in.BuyerPhone,
		PurchasePrice:   price,
		DeliveryAddress: in.DeliveryAddress,
		Status:          resources.StatusPending,
		CreatedAt:       s.nowTime(),
	}
	s.purchases = append(s.purchases, ownedPurchase{owner: owner, Purchase: p})
	return p, nil
}

func (s *Store) Purchases(owner int) []resources.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []resources.Purchase{}
	for i := len(s.purchases) - 1; i >= 0; i-- {
		if owner == 0 || s.purchases[i].owner == owner {
			out = append(out, s.purchases[i].Purchase)
		}
	}
	return out
}

// MarketplaceByCreator lists the listings a user created, newest first.
func (s *Store) MarketplaceByCreator(owner int) []resources.MarketplaceItem {
	items := s.ListMarketplace(MarketplaceQuery{})
	out := []resources.MarketplaceItem{}
	for _, m := range items {
		if m.CreatedBy == owner {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) CountProperties() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.properties)
}
