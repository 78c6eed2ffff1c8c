// Package cart maintains the client-side cart: an ordered collection of
// quantity-keyed lines, serialized wholesale to the durable store after
// every mutation and rehydrated on startup.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
	redisclient "github.com/racoonius-programmer/levelup-storefront/pkg/redis"
)

// Line is one product-plus-quantity entry. UnitPrice is the resolved
// price captured at insertion time; the cart never recomputes pricing.
type Line struct {
	Code      string `json:"codigo"`
	Name      string `json:"nombre"`
	UnitPrice int64  `json:"precio"`
	Quantity  int    `json:"cantidad"`
	Image     string `json:"imagen,omitempty"`
}

// Subtotal is the line's contribution to the cart total.
func (l Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

type blobStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type cartKeyer interface {
	CartKey(clientID string) string
}

// Aggregator is the authoritative in-memory cart for one storefront
// instance.
type Aggregator struct {
	mu       sync.Mutex
	lines    []Line
	store    blobStore
	keyer    cartKeyer
	clientID string
	logg     *logger.Logger
}

// NewAggregator constructs a cart backed by the shared store.
func NewAggregator(client *redisclient.Client, clientID string, logg *logger.Logger) (*Aggregator, error) {
	if client == nil {
		return nil, fmt.Errorf("store client is required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Aggregator{
		store:    client,
		keyer:    client,
		clientID: clientID,
		logg:     logg,
	}, nil
}

// Hydrate loads the previously persisted cart. A missing, unreadable, or
// corrupt blob yields an empty cart; the failure is logged, never
// returned.
func (a *Aggregator) Hydrate(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.store.Get(ctx, a.keyer.CartKey(a.clientID))
	if err != nil {
		if !errors.Is(err, redisclient.Nil) {
			a.logg.Error(ctx, "reading persisted cart failed, starting empty", err)
		}
		a.lines = nil
		return
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		a.logg.Error(ctx, "discarding corrupt persisted cart", err)
		a.lines = nil
		return
	}
	a.lines = lines
}

// Add merges the line into the cart: an existing line with the same code
// has its quantity incremented, otherwise the line is appended preserving
// insertion order. A non-positive quantity counts as one.
func (a *Aggregator) Add(ctx context.Context, line Line) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	merged := false
	for i := range a.lines {
		if a.lines[i].Code == line.Code {
			a.lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		a.lines = append(a.lines, line)
	}
	a.persist(ctx)
}

// Remove decrements the matching line's quantity, deleting the line when
// it would drop to zero or below. An absent code is a no-op.
func (a *Aggregator) Remove(ctx context.Context, code string, quantity int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if quantity <= 0 {
		quantity = 1
	}
	for i := range a.lines {
		if a.lines[i].Code != code {
			continue
		}
		a.lines[i].Quantity -= quantity
		if a.lines[i].Quantity <= 0 {
			a.lines = append(a.lines[:i], a.lines[i+1:]...)
		}
		a.persist(ctx)
		return
	}
}

// Clear empties the cart.
func (a *Aggregator) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lines = nil
	a.persist(ctx)
}

// Lines returns a copy of the current cart lines in insertion order.
func (a *Aggregator) Lines() []Line {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

// TotalAmount is the fold of unit price times quantity over all lines.
func (a *Aggregator) TotalAmount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total int64
	for _, line := range a.lines {
		total += line.Subtotal()
	}
	return total
}

// TotalQuantity is the sum of all line quantities.
func (a *Aggregator) TotalQuantity() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total int
	for _, line := range a.lines {
		total += line.Quantity
	}
	return total
}

// persist serializes the whole collection and overwrites the durable
// key. Write failures are logged and swallowed: the in-memory cart stays
// authoritative for this instance. Callers must hold the mutex.
func (a *Aggregator) persist(ctx context.Context) {
	raw, err := json.Marshal(a.linesOrEmpty())
	if err != nil {
		a.logg.Error(ctx, "encoding cart failed", err)
		return
	}
	if err := a.store.Set(ctx, a.keyer.CartKey(a.clientID), string(raw), 0); err != nil {
		a.logg.Error(ctx, "persisting cart failed", err)
	}
}

func (a *Aggregator) linesOrEmpty() []Line {
	if a.lines == nil {
		return []Line{}
	}
	return a.lines
}
