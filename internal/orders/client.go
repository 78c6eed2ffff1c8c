package orders

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
)

type restClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	PatchText(ctx context.Context, path, body string, out any) error
	Delete(ctx context.Context, path string) error
}

// Client exposes the /pedidos operations.
type Client struct {
	rest restClient
}

func NewClient(rest restClient) (*Client, error) {
	if rest == nil {
		return nil, fmt.Errorf("rest client is required")
	}
	return &Client{rest: rest}, nil
}

func (c *Client) Create(ctx context.Context, draft Draft) (Order, error) {
	if err := draft.Validate(); err != nil {
		return Order{}, err
	}
	var out Order
	if err := c.rest.Post(ctx, "/pedidos", draft, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.rest.Get(ctx, "/pedidos", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	path := "/pedidos?usuario=" + url.QueryEscape(userID)
	if err := c.rest.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (Order, error) {
	var out Order
	if err := c.rest.Get(ctx, orderPath(id), &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// UpdateStatus patches the status endpoint with the bare wire value, not
// a JSON document.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status Status) (Order, error) {
	if !status.IsValid() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown order status %q", status))
	}
	var out Order
	if err := c.rest.PatchText(ctx, orderPath(id)+"/estado", string(status), &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.rest.Delete(ctx, orderPath(id))
}

func orderPath(id int64) string {
	return "/pedidos/" + strconv.FormatInt(id, 10)
}
