package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/racoonius-programmer/levelup-storefront/pkg/broadcast"
	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
)

type orderSource interface {
	Create(ctx context.Context, draft Draft) (Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (Order, error)
}

type notifier interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Controller keeps a local order list reconciled against the server. The
// local list is a cache of server-confirmed state: creates append
// optimistically, loads replace wholesale, and read failures reset the
// list rather than leaving stale entries behind.
type Controller struct {
	mu       sync.Mutex
	orders   []Order
	loadErr  error
	loading  bool
	source   orderSource
	notifier notifier
	logg     *logger.Logger
}

// NewController builds a controller. A nil notifier disables cross-tab
// announcements without error.
func NewController(source orderSource, notifier notifier, logg *logger.Logger) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("order source is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Controller{
		source:   source,
		notifier: notifier,
		logg:     logg,
	}, nil
}

// Create submits the draft and on success appends the server's order to
// the local list, then announces it to other tabs. An announcement
// failure is logged and never affects the result. On request failure the
// local list is untouched and the error propagates.
func (c *Controller) Create(ctx context.Context, draft Draft) (Order, error) {
	if err := draft.Validate(); err != nil {
		return Order{}, err
	}

	order, err := c.source.Create(ctx, draft)
	if err != nil {
		return Order{}, err
	}

	c.mu.Lock()
	c.orders = append(c.orders, order)
	c.mu.Unlock()

	if c.notifier != nil {
		payload := broadcast.OrderCreatedPayload{OrderID: order.ID, UserID: order.UserID}
		if err := c.notifier.Publish(ctx, broadcast.EventOrderCreated, payload); err != nil {
			ctx = c.logg.WithOrderID(ctx, order.ID)
			c.logg.Error(ctx, "announcing created order failed, other tabs will catch up on reload", err)
		}
	}
	return order, nil
}

// UpdateStatus enforces the forward-only transition against the local
// entry when present, patches the server, and replaces the local entry
// with the server's representation.
func (c *Controller) UpdateStatus(ctx context.Context, id int64, status Status) (Order, error) {
	if !status.IsValid() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown order status %q", status))
	}

	c.mu.Lock()
	for _, order := range c.orders {
		if order.ID == id && !order.Status.CanTransition(status) {
			c.mu.Unlock()
			return Order{}, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %d cannot move from %q to %q", id, order.Status, status))
		}
	}
	c.mu.Unlock()

	updated, err := c.source.UpdateStatus(ctx, id, status)
	if err != nil {
		return Order{}, err
	}

	c.mu.Lock()
	for i := range c.orders {
		if c.orders[i].ID == id {
			c.orders[i] = updated
			break
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// LoadByUser replaces the local list with the server's listing for one
// user. Full reconciliation: optimistic entries the server does not
// confirm are dropped.
func (c *Controller) LoadByUser(ctx context.Context, userID string) error {
	return c.load(ctx, func(ctx context.Context) ([]Order, error) {
		return c.source.ListByUser(ctx, userID)
	})
}

// LoadAll replaces the local list with the full server listing.
func (c *Controller) LoadAll(ctx context.Context) error {
	return c.load(ctx, c.source.List)
}

// load fails closed: on error the list resets to empty and the error
// flag is set, so a stale list is never presented as current.
func (c *Controller) load(ctx context.Context, fetch func(context.Context) ([]Order, error)) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	listed, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.orders = nil
		c.loadErr = err
		c.logg.Error(ctx, "loading orders failed, clearing local view", err)
		return err
	}
	c.orders = listed
	c.loadErr = nil
	return nil
}

// Orders returns a copy of the reconciled local list.
func (c *Controller) Orders() []Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Order, len(c.orders))
	copy(out, c.orders)
	return out
}

// Err reports the last load failure, cleared by a successful load.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Loading reports whether a load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
