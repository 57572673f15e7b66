package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/rs/zerolog/log"
)

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeDetail(w, http.StatusNotFound, "No record matches the given query.")
		return 0, false
	}
	return id, true
}

func (s *Server) ListPropertiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := newFilterParser(r.URL.Query())
		q := PropertyQuery{
			Type:       p.str("type"),
			RentalType: p.str("rental_type"),
			Location:   p.str("location"),
			MinPrice:   p.number("min_price"),
			MaxPrice:   p.number("max_price"),
			Bedrooms:   p.integer("bedrooms"),
			Featured:   p.boolean("featured"),
			Search:     p.str("search"),
		}
		if pt := p.str("property_type"); pt != "" {
			q.Type = pt
		}
		for _, name := range []string{"county", "town"} {
			if v := p.str(name); v != "" {
				q.Contains = append(q.Contains, v)
			}
		}
		if fe := p.err(); fe != nil {
			writeFieldErrors(w, fe)
			return
		}
		// only honoured for a signed-in caller
		if p.str("created_by_user") != "" {
			if user := userFromContext(r.Context()); user != nil {
				q.CreatedBy = &user.ID
			}
		}
		writePage(w, r, s.store.ListProperties(q))
	}
}

func (s *Server) GetPropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		p, err := s.store.GetProperty(id)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "No Property matches the given query.")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func validatePropertyInput(in resources.PropertyInput, partial bool) users.FieldErrors {
	fe := users.FieldErrors{}
	required := func(field string, v *string) {
		if v == nil {
			if !partial {
				fe.Add(field, msgRequired)
			}
			return
		}
		if strings.TrimSpace(*v) == "" {
			fe.Add(field, "This field may not be blank.")
		}
	}
	required("title", in.Title)
	required("location", in.Location)
	required("type", in.Type)
	if in.Price == nil && !partial {
		fe.Add("price", msgRequired)
	}
	if in.Price != nil && *in.Price < 0 {
		fe.Add("price", "Ensure this value is greater than or equal to 0.")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (s *Server) CreatePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.PropertyInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if fe := validatePropertyInput(in, false); fe != nil {
			writeFieldErrors(w, fe)
			return
		}
		p, err := s.store.SaveProperty(0, in, userFromContext(r.Context()).ID)
		if err != nil {
			log.Err(err).Msg("[CreatePropertyHandler] save property")
			writeError(w, http.StatusInternalServerError, "Failed to create property")
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// UpdatePropertyHandler serves PUT and PATCH; only PUT requires every field.
func (s *Server) UpdatePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in resources.PropertyInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if fe := validatePropertyInput(in, r.Method == http.MethodPatch); fe != nil {
			writeFieldErrors(w, fe)
			return
		}
		p, err := s.store.SaveProperty(id, in, 0)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "No Property matches the given query.")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) DeletePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.store.DeleteProperty(id); err != nil {
			writeDetail(w, http.StatusNotFound, "No Property matches the given query.")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListMarketplaceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := newFilterParser(r.URL.Query())
		q := MarketplaceQuery{
			Category:  p.str("category"),
			Condition: p.str("condition"),
			Location:  p.str("location"),
			MinPrice:  p.number("min_price"),
			MaxPrice:  p.number("max_price"),
			Search:    p.str("search"),
		}
		if fe := p.err(); fe != nil {
			writeFieldErrors(w, fe)
			return
		}
		writePage(w, r, s.store.ListMarketplace(q))
	}
}

func (s *Server) GetMarketplaceItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		m, err := s.store.GetMarketplaceItem(id)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "No MarketplaceItem matches the given query.")
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) CreateMarketplaceItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.MarketplaceItemInput
		if !decodeJSON(w, r, &in) {
			return
		}
		fe := users.FieldErrors{}
		for field, v := range map[string]string{"title": in.Title, "category": in.Category, "condition": in.Condition, "location": in.Location} {
			if strings.TrimSpace(v) == "" {
				fe.Add(field, msgRequired)
			}
		}
		if len(fe) > 0 {
			writeFieldErrors(w, fe)
			return
		}
		writeJSON(w, http.StatusCreated, s.store.CreateMarketplaceItem(in, userFromContext(r.Context()).ID))
	}
}

func (s *Server) ListMovingServicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := newFilterParser(r.URL.Query())
		q := MovingQuery{
			Location: p.str("location"),
			Verified: p.boolean("verified"),
			Search:   p.str("search"),
		}
		if fe := p.err(); fe != nil {
			writeFieldErrors(w, fe)
			return
		}
		writePage(w, r, s.store.ListMovingServices(q))
	}
}

func (s *Server) CreateMovingServiceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.MovingServiceInput
		if !decodeJSON(w, r, &in) {
			return
		}
		fe := users.FieldErrors{}
		for field, v := range map[string]string{"name": in.Name, "location": in.Location, "price_range": in.PriceRange} {
			if strings.TrimSpace(v) == "" {
				fe.Add(field, msgRequired)
			}
		}
		if len(fe) > 0 {
			writeFieldErrors(w, fe)
			return
		}
		writeJSON(w, http.StatusCreated, s.store.CreateMovingService(in, userFromContext(r.Context()).ID))
	}
}
