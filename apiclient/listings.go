package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-marketplace-client/resources"
)

func (c *Client) ListMarketplaceItems(ctx context.Context, params url.Values) ([]resources.MarketplaceItem, error) {
	var out resources.List[resources.MarketplaceItem]
	if err := c.request(ctx, http.MethodGet, withQuery("/marketplace/", params), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMarketplaceItem(ctx context.Context, token string, in resources.MarketplaceItemInput) (*resources.MarketplaceItem, error) {
	var out resources.MarketplaceItem
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/marketplace/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMovingServices(ctx context.Context, params url.Values) ([]resources.MovingService, error) {
	var out resources.List[resources.MovingService]
	if err := c.request(ctx, http.MethodGet, withQuery("/moving-services/", params), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMovingService(ctx context.Context, token string, in resources.MovingServiceInput) (*resources.MovingService, error) {
	var out resources.MovingService
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/moving-services/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
