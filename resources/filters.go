package resources

import (
	"net/url"

	"github.com/jrsteele09/go-marketplace-client/internal/utils"
)

// PropertyFilters are the list filters of the properties endpoint. Type is an alias
// for PropertyType; PropertyType wins when both are set.
type PropertyFilters struct {
	Type          string
	PropertyType  string
	Location      string
	County        string
	Town          string
	RentalType    string
	MinPrice      *float64
	MaxPrice      *float64
	Bedrooms      *int
	Featured      *bool
	CreatedByUser bool
}

func (f PropertyFilters) Values() url.Values {
	q := NewQuery().
		Add("property_type", utils.FirstNonEmpty(f.PropertyType, f.Type)).
		Add("location", f.Location).
		Add("min_price", f.MinPrice).
		Add("max_price", f.MaxPrice).
		Add("featured", f.Featured).
		Add("county", f.County).
		Add("town", f.Town).
		Add("rental_type", f.RentalType).
		Add("bedrooms", f.Bedrooms)
	if f.CreatedByUser {
		q.Add("created_by_user", true)
	}
	return q.Values()
}

// SearchFilters drive the ad-hoc property search.
type SearchFilters struct {
	Location  string
	Type      string
	PriceMin  *float64
	PriceMax  *float64
	Bedrooms  *int
	Bathrooms *int
}

func (f SearchFilters) Values() url.Values {
	return NewQuery().
		Add("location", f.Location).
		Add("type", f.Type).
		Add("min_price", f.PriceMin).
		Add("max_price", f.PriceMax).
		Add("bedrooms", f.Bedrooms).
		Add("bathrooms", f.Bathrooms).
		Values()
}

// IsEmpty reports whether no filter carries a value.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Values()) == 0
}

type MarketplaceFilters struct {
	Category  string
	Location  string
	Condition string
	Search    string
	MinPrice  *float64
	MaxPrice  *float64
}

func (f MarketplaceFilters) Values() url.Values {
	return NewQuery().
		Add("category", f.Category).
		Add("location", f.Location).
		Add("condition", f.Condition).
		Add("search", f.Search).
		Add("min_price", f.MinPrice).
		Add("max_price", f.MaxPrice).
		Values()
}

type MovingServiceFilters struct {
	Location string
	Verified *bool
	Search   string
}

func (f MovingServiceFilters) Values() url.Values {
	return NewQuery().
		Add("location", f.Location).
		Add("verified", f.Verified).
		Add("search", f.Search).
		Values()
}
