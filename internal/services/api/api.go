// Package api is the HTTP+JSON boundary: the device poll endpoints, the
// operator endpoints and the event feed. Handlers are stateless; every
// operation is a read-modify-write cycle against the zone record store.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agromind/agromind-backend/internal/history"
	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/store"
)

// ZoneStore is the zone record store surface the handlers need.
type ZoneStore interface {
	GetZone(ctx context.Context, id int64) (model.Zone, error)
	ListZones(ctx context.Context, userID int64) ([]model.Zone, error)
	CreateZone(ctx context.Context, z model.Zone) (model.Zone, error)
	UpdateZone(ctx context.Context, z model.Zone) error
	DeleteZone(ctx context.Context, id int64) error
}

// EventStore is the audit-event surface for the event feed endpoints.
type EventStore interface {
	InsertEvent(ctx context.Context, e model.Event) (model.Event, error)
	ListEvents(ctx context.Context, userID int64, f store.EventFilter) ([]model.Event, error)
	DeleteEventsBefore(ctx context.Context, userID *int64, cutoff time.Time) (int64, error)
	DeleteEventsForUser(ctx context.Context, userID int64) (int64, error)
}

// EventRecorder appends audit events best-effort (never returns errors).
type EventRecorder interface {
	Record(ctx context.Context, events ...model.Event)
}

// Handlers carries the dependencies of every endpoint.
type Handlers struct {
	zones    ZoneStore
	events   EventStore
	recorder EventRecorder
	history  *history.Writer
	now      func() time.Time
}

func NewHandlers(zones ZoneStore, events EventStore, rec EventRecorder, hist *history.Writer) *Handlers {
	return &Handlers{
		zones:    zones,
		events:   events,
		recorder: rec,
		history:  hist,
		now:      time.Now,
	}
}

// updateZone runs one read-modify-write cycle with a compare-and-swap
// write. Version conflicts (device report e comando manuale quasi
// simultanei sulla stessa zona) are retried with exponential backoff; the
// mutate func is re-run on the fresh record each attempt.
func (h *Handlers) updateZone(ctx context.Context, id int64, mutate func(z *model.Zone) error) (model.Zone, error) {
	var out model.Zone
	op := func() error {
		z, err := h.zones.GetZone(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := mutate(&z); err != nil {
			return backoff.Permanent(err)
		}
		if err := h.zones.UpdateZone(ctx, z); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		out = z
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxElapsedTime = time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 4), ctx))
	return out, err
}
