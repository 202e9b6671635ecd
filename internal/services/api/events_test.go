package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromind/agromind-backend/internal/model"
)

func TestCreateAndListEvents(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/events", map[string]any{
		"userId":      3,
		"zoneId":      1,
		"type":        "EMAIL_SENT",
		"description": "Tank alarm notification sent",
		"metadata":    map[string]any{"to": "farmer@example.com"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "EMAIL_SENT", body["type"])

	list := getList(t, e, "/api/events/3")
	require.Len(t, list, 1)

	// filter by type
	assert.Len(t, getList(t, e, "/api/events/3?type=EMAIL_SENT"), 1)
	assert.Len(t, getList(t, e, "/api/events/3?type=TANK_ALARM"), 0)
	assert.Len(t, getList(t, e, "/api/events/3?zoneId=1"), 1)
	assert.Len(t, getList(t, e, "/api/events/3?zoneId=2"), 0)

	// altro utente: feed vuoto
	assert.Len(t, getList(t, e, "/api/events/9"), 0)
}

func TestCreateEventValidation(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/events", map[string]any{
		"userId": 3,
		"zoneId": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", body["error"])
}

func TestDeleteEventsOlderThan(t *testing.T) {
	e := newTestEnv(t)
	e.seedZone(t)

	seedEvent(t, e, e.now.AddDate(0, 0, -40))
	seedEvent(t, e, e.now.Add(-time.Hour))

	rec, body := e.do(t, http.MethodDelete, "/api/events/3?olderThan=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["deleted"])
	assert.Equal(t, 1, e.events.count())

	rec, body = e.do(t, http.MethodDelete, "/api/events/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["deleted"])
	assert.Equal(t, 0, e.events.count())
}

func seedEvent(t *testing.T, e *testEnv, at time.Time) {
	t.Helper()
	_, err := e.events.InsertEvent(context.Background(), model.Event{
		UserID:      3,
		ZoneID:      1,
		Type:        model.EventTankAlarm,
		Description: "Tank empty",
		CreatedAt:   at,
	})
	require.NoError(t, err)
}

func TestDeleteEventsBadOlderThan(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodDelete, "/api/events/3?olderThan=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "olderThan must be a positive number of days", body["error"])
}
