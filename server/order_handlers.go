package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
)

const dateLayout = "2006-01-02"

func requireFields(fields map[string]string) users.FieldErrors {
	fe := users.FieldErrors{}
	for field, v := range fields {
		if strings.TrimSpace(v) == "" {
			fe.Add(field, msgRequired)
		}
	}
	return fe
}

func checkDate(fe users.FieldErrors, field, v string) {
	if v == "" {
		return
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		fe.Add(field, "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
	}
}

func invalidPK(fe users.FieldErrors, field string, pk int) {
	fe.Add(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", pk))
}

func (s *Server) ListBookingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, s.store.Bookings(userFromContext(r.Context()).ID))
	}
}

func (s *Server) CreateBookingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.BookingInput
		if !decodeJSON(w, r, &in) {
			return
		}
		fe := requireFields(map[string]string{
			"guest_name":   in.GuestName,
			"guest_email":  in.GuestEmail,
			"guest_phone":  in.GuestPhone,
			"booking_date": in.BookingDate,
		})
		checkDate(fe, "booking_date", in.BookingDate)
		checkDate(fe, "check_in_date", in.CheckInDate)
		checkDate(fe, "check_out_date", in.CheckOutDate)
		if in.Property == 0 {
			fe.Add("property", msgRequired)
		}
		if len(fe) > 0 {
			writeFieldErrors(w, fe)
			return
		}

		user := userFromContext(r.Context())
		b, err := s.store.CreateBooking(user.ID, user.Username, in)
		if err != nil {
			invalidPK(fe, "property", in.Property)
			writeFieldErrors(w, fe)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

func (s *Server) ListQuotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, s.store.Quotes(userFromContext(r.Context()).ID))
	}
}

func (s *Server) CreateQuoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.QuoteInput
		if !decodeJSON(w, r, &in) {
			return
		}
		fe := requireFields(map[string]string{
			"client_name":       in.ClientName,
			"client_email":      in.ClientEmail,
			"client_phone":      in.ClientPhone,
			"pickup_location":   in.PickupLocation,
			"delivery_location": in.DeliveryLocation,
			"moving_date":       in.MovingDate,
		})
		checkDate(fe, "moving_date", in.MovingDate)
		if in.Service == 0 {
			fe.Add("service", msgRequired)
		}
		if len(fe) > 0 {
			writeFieldErrors(w, fe)
			return
		}

		q, err := s.store.CreateQuote(userFromContext(r.Context()).ID, in)
		if err != nil {
			invalidPK(fe, "service", in.Service)
			writeFieldErrors(w, fe)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func (s *Server) ListPurchasesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, s.store.Purchases(userFromContext(r.Context()).ID))
	}
}

func (s *Server) CreatePurchaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resources.PurchaseInput
		if !decodeJSON(w, r, &in) {
			return
		}
		fe := requireFields(map[string]string{
			"buyer_name":  in.BuyerName,
			"buyer_email": in.BuyerEmail,
			"buyer_phone": in.BuyerPhone,
		})
		if in.Item == 0 {
			fe.Add("item", msgRequired)
		}
		if in.PurchasePrice < 0 {
			fe.Add("purchase_price", "Ensure this value is greater than or equal to 0.")
		}
		if len(fe) > 0 {
			writeFieldErrors(w, fe)
			return
		}

		user := userFromContext(r.Context())
		p, err := s.store.CreatePurchase(user.ID, user.Username, in)
		if err != nil {
			invalidPK(fe, "item", in.Item)
			writeFieldErrors(w, fe)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}
