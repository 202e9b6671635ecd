package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/store"
)

// memZones is an in-memory ZoneStore with the same compare-and-swap
// semantics as the PostgreSQL repo.
type memZones struct {
	mu     sync.Mutex
	nextID int64
	zones  map[int64]model.Zone
}

func newMemZones() *memZones {
	return &memZones{nextID: 1, zones: make(map[int64]model.Zone)}
}

func (m *memZones) put(z model.Zone) model.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z.ID == 0 {
		z.ID = m.nextID
		m.nextID++
	}
	if z.Version == 0 {
		z.Version = 1
	}
	m.zones[z.ID] = z
	return z
}

func (m *memZones) GetZone(_ context.Context, id int64) (model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[id]
	if !ok {
		return model.Zone{}, store.ErrZoneNotFound
	}
	return z, nil
}

func (m *memZones) ListZones(_ context.Context, userID int64) ([]model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Zone
	for _, z := range m.zones {
		if z.UserID == userID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *memZones) CreateZone(_ context.Context, z model.Zone) (model.Zone, error) {
	z.CreatedAt = time.Now().UTC()
	z.UpdatedAt = z.CreatedAt
	return m.put(z), nil
}

func (m *memZones) UpdateZone(_ context.Context, z model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.zones[z.ID]
	if !ok {
		return store.ErrZoneNotFound
	}
	if cur.Version != z.Version {
		return store.ErrVersionConflict
	}
	z.Version++
	z.UpdatedAt = time.Now().UTC()
	m.zones[z.ID] = z
	return nil
}

func (m *memZones) DeleteZone(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return store.ErrZoneNotFound
	}
	delete(m.zones, id)
	return nil
}

// memEvents is an in-memory EventStore; failInsert simulates a broken
// audit sink.
type memEvents struct {
	mu         sync.Mutex
	events     []model.Event
	failInsert bool
}

func (m *memEvents) InsertEvent(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert {
		return model.Event{}, errors.New("audit sink down")
	}
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, e)
	return e, nil
}

func (m *memEvents) ListEvents(_ context.Context, userID int64, f store.EventFilter) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.UserID != userID {
			continue
		}
		if f.ZoneID != nil && e.ZoneID != *f.ZoneID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEvents) DeleteEventsBefore(_ context.Context, userID *int64, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []model.Event
	var deleted int64
	for _, e := range m.events {
		match := e.CreatedAt.Before(cutoff) && (userID == nil || e.UserID == *userID)
		if match {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

func (m *memEvents) DeleteEventsForUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []model.Event
	var deleted int64
	for _, e := range m.events {
		if e.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

func (m *memEvents) byType(typ string) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (m *memEvents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
