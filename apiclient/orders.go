package apiclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/resources"
)

// Bookings, quotes and purchases are always scoped to the token's user.

func (c *Client) ListBookings(ctx context.Context, token string) ([]resources.Booking, error) {
	var out resources.List[resources.Booking]
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/bookings/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBooking(ctx context.Context, token string, in resources.BookingInput) (*resources.Booking, error) {
	var out resources.Booking
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/bookings/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListQuotes(ctx context.Context, token string) ([]resources.Quote, error) {
	var out resources.List[resources.Quote]
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/quotes/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateQuote(ctx context.Context, token string, in resources.QuoteInput) (*resources.Quote, error) {
	var out resources.Quote
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/quotes/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPurchases(ctx context.Context, token string) ([]resources.Purchase, error) {
	var out resources.List[resources.Purchase]
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/purchases/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePurchase(ctx context.Context, token string, in resources.PurchaseInput) (*resources.Purchase, error) {
	var out resources.Purchase
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/purchases/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserDashboard(ctx context.Context, token string) (*resources.Dashboard, error) {
	var out resources.Dashboard
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/dashboard/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminDashboard(ctx context.Context, token string) (*resources.AdminDashboard, error) {
	var out resources.AdminDashboard
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/admin/dashboard/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
