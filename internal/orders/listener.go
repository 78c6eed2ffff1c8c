package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/racoonius-programmer/levelup-storefront/internal/session"
	"github.com/racoonius-programmer/levelup-storefront/pkg/broadcast"
	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
)

type identitySource interface {
	Current(ctx context.Context) *session.Identity
}

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

type eventKeyer interface {
	EventKey(eventID string) string
}

type reloader interface {
	LoadByUser(ctx context.Context, userID string) error
}

// Listener reacts to order_created announcements from other tabs. It
// never trusts the payload: a matching event only triggers an
// authoritative reload, so the local view is never ahead of the server.
type Listener struct {
	clientID  string
	identity  identitySource
	dedupe    dedupeStore
	keyer     eventKeyer
	dedupeTTL time.Duration
	reloader  reloader
	logg      *logger.Logger
}

// NewListener wires the cross-tab reaction. dedupe and keyer come from
// the shared store so replays across redeliveries are dropped once.
func NewListener(clientID string, identity identitySource, dedupe dedupeStore, keyer eventKeyer, dedupeTTL time.Duration, reloader reloader, logg *logger.Logger) (*Listener, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if identity == nil || dedupe == nil || keyer == nil || reloader == nil {
		return nil, fmt.Errorf("identity source, dedupe store, keyer and reloader are required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if dedupeTTL <= 0 {
		dedupeTTL = time.Hour
	}
	return &Listener{
		clientID:  clientID,
		identity:  identity,
		dedupe:    dedupe,
		keyer:     keyer,
		dedupeTTL: dedupeTTL,
		reloader:  reloader,
		logg:      logg,
	}, nil
}

// Handle processes one envelope. Safe to use as a broadcast.Handler.
func (l *Listener) Handle(ctx context.Context, envelope broadcast.Envelope) {
	if envelope.Type != broadcast.EventOrderCreated {
		return
	}
	if envelope.ClientID == l.clientID {
		return
	}

	var payload broadcast.OrderCreatedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		l.logg.Error(ctx, "dropping order_created event with malformed payload", err)
		return
	}

	identity := l.identity.Current(ctx)
	if identity == nil || identity.Username != payload.UserID {
		return
	}

	fresh, err := l.dedupe.SetNX(ctx, l.keyer.EventKey(envelope.EventID), l.clientID, l.dedupeTTL)
	if err != nil {
		// Dedupe is an optimization; a store failure still reloads.
		l.logg.Warn(ctx, "event dedupe check failed, reloading anyway")
	} else if !fresh {
		return
	}

	ctx = l.logg.WithUserID(ctx, payload.UserID)
	if err := l.reloader.LoadByUser(ctx, payload.UserID); err != nil {
		l.logg.Error(ctx, "reloading orders after cross-tab event failed", err)
	}
}
