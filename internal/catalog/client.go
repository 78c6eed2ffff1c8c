package catalog

import (
	"context"
	"fmt"
	"net/url"
)

type restClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
}

// Client consumes the remote catalog source. Reads serve the storefront;
// writes serve the admin back-office.
type Client struct {
	rest restClient
}

// NewClient builds a catalog client over the shared REST transport.
func NewClient(rest restClient) (*Client, error) {
	if rest == nil {
		return nil, fmt.Errorf("rest client required")
	}
	return &Client{rest: rest}, nil
}

// List fetches the full catalog.
func (c *Client) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.rest.Get(ctx, "/productos", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get fetches a single product by code.
func (c *Client) Get(ctx context.Context, code string) (*Product, error) {
	var product Product
	if err := c.rest.Get(ctx, "/productos/"+url.PathEscape(code), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Create registers a new product. The payload is validated before any
// network call is made; the server assigns the code.
func (c *Client) Create(ctx context.Context, product Product) (*Product, error) {
	if err := product.validateAttributes(); err != nil {
		return nil, err
	}
	var created Product
	if err := c.rest.Post(ctx, "/productos", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces the product stored under code. The code itself is
// immutable; a payload carrying a different one is rejected.
func (c *Client) Update(ctx context.Context, code string, product Product) (*Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if product.Code != code {
		return nil, fmt.Errorf("product code is immutable: %q != %q", product.Code, code)
	}
	var updated Product
	if err := c.rest.Put(ctx, "/productos/"+url.PathEscape(code), product, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a product from the catalog.
func (c *Client) Delete(ctx context.Context, code string) error {
	return c.rest.Delete(ctx, "/productos/"+url.PathEscape(code))
}
