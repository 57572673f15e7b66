package resources_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/stretchr/testify/require"
)

// TestList_Envelope unwraps the results of a paginated payload
func TestList_Envelope(t *testing.T) {
	payload := `{"results":[{"id":9,"title":"Sofa","price":"12000.00","category":"furniture"}],"count":1,"next":null,"previous":null}`

	var items resources.List[resources.MarketplaceItem]
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	require.Len(t, items, 1)
	require.Equal(t, 9, items[0].ID)
	require.Equal(t, "Sofa", items[0].Title)
	require.Equal(t, resources.Money(12000), items[0].Price)
}

// TestList_BareArray accepts an unpaginated list
func TestList_BareArray(t *testing.T) {
	var items resources.List[resources.MovingService]
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"name":"Swift Movers"},{"id":2,"name":"Careful Co"}]`), &items))
	require.Len(t, items, 2)
	require.Equal(t, "Careful Co", items[1].Name)
}

// TestList_RejectsUnknownObject fails for an object without results
func TestList_RejectsUnknownObject(t *testing.T) {
	var items resources.List[resources.Property]
	require.Error(t, json.Unmarshal([]byte(`{"detail":"odd"}`), &items))
}

// TestMoney_DecodesStringsAndNumbers covers both decimal encodings
func TestMoney_DecodesStringsAndNumbers(t *testing.T) {
	var v struct {
		A resources.Money  `json:"a"`
		B resources.Money  `json:"b"`
		C *resources.Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1500.50","b":42,"c":null}`), &v))
	require.Equal(t, resources.Money(1500.5), v.A)
	require.Equal(t, resources.Money(42), v.B)
	require.Nil(t, v.C)

	out, err := json.Marshal(resources.Money(12000))
	require.NoError(t, err)
	require.Equal(t, "12000", string(out))
}

// TestPropertyFilters_OmitsEmpty canonicalises absent values away
func TestPropertyFilters_OmitsEmpty(t *testing.T) {
	require.Empty(t, resources.PropertyFilters{}.Values().Encode())
	require.Equal(t,
		resources.PropertyFilters{}.Values().Encode(),
		resources.PropertyFilters{Location: ""}.Values().Encode())

	f := resources.PropertyFilters{
		Type:     "rental",
		MinPrice: utils.Ptr(1000.0),
		Featured: utils.Ptr(true),
		Bedrooms: utils.Ptr(2),
	}
	require.Equal(t, "bedrooms=2&featured=true&min_price=1000&property_type=rental", f.Values().Encode())

	f.PropertyType = "office"
	require.Equal(t, "office", f.Values().Get("property_type"))
}

// TestSearchFilters_IsEmpty ignores zero-valued filters
func TestSearchFilters_IsEmpty(t *testing.T) {
	require.True(t, resources.SearchFilters{}.IsEmpty())
	require.True(t, resources.SearchFilters{Location: ""}.IsEmpty())
	require.False(t, resources.SearchFilters{Bathrooms: utils.Ptr(0)}.IsEmpty())
}

// TestMarketplaceFilters_Values encodes in stable order
func TestMarketplaceFilters_Values(t *testing.T) {
	f := resources.MarketplaceFilters{Category: "furniture", Search: "sofa"}
	require.Equal(t, "category=furniture&search=sofa", f.Values().Encode())
}

// TestProfile_FromUserAndPatch derives and edits the profile view
func TestProfile_FromUserAndPatch(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	u := users.User{ID: 7, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"}

	p := resources.ProfileFromUser(u, now)
	require.Equal(t, "7", p.ID)
	require.Equal(t, "jane", p.Username)
	require.Equal(t, "Jane Doe", p.FullName)
	require.Equal(t, resources.RoleUser, p.Role)

	patch := resources.ProfileUpdate{FullName: "Janet Anne Smith"}.Patch(u)
	require.Equal(t, resources.UserPatch{FirstName: "Janet", LastName: "Anne Smith", Username: ""}, patch)

	patch = resources.ProfileUpdate{Username: "jd"}.Patch(u)
	require.Equal(t, "Jane", patch.FirstName)
	require.Equal(t, "jd", patch.Username)
}
