package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-marketplace-client/resources"
)

func withQuery(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// ListProperties lists properties. token may be empty; it is needed for filters such
// as created_by_user that depend on the caller.
func (c *Client) ListProperties(ctx context.Context, token string, params url.Values) ([]resources.Property, error) {
	var out resources.List[resources.Property]
	endpoint := withQuery("/properties/", params)
	var err error
	if token == "" {
		err = c.request(ctx, http.MethodGet, endpoint, nil, &out)
	} else {
		err = c.authenticatedRequest(ctx, token, http.MethodGet, endpoint, nil, &out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProperty(ctx context.Context, id int) (*resources.Property, error) {
	var out resources.Property
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/properties/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProperty(ctx context.Context, token string, in resources.PropertyInput) (*resources.Property, error) {
	var out resources.Property
	if err := c.authenticatedRequest(ctx, token, http.MethodPost, "/properties/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProperty sends a partial update; only the set fields of in are changed.
func (c *Client) UpdateProperty(ctx context.Context, token string, id int, in resources.PropertyInput) (*resources.Property, error) {
	var out resources.Property
	if err := c.authenticatedRequest(ctx, token, http.MethodPatch, fmt.Sprintf("/properties/%d/", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProperty(ctx context.Context, token string, id int) error {
	return c.authenticatedRequest(ctx, token, http.MethodDelete, fmt.Sprintf("/properties/%d/", id), nil, nil)
}
