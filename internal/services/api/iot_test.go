package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/recorder"
)

type testEnv struct {
	zones  *memZones
	events *memEvents
	router http.Handler
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		zones:  newMemZones(),
		events: &memEvents{},
		now:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	h := NewHandlers(e.zones, e.events, recorder.New(e.events, nil), nil)
	h.now = func() time.Time { return e.now }
	e.router = NewRouter(h)
	return e
}

func (e *testEnv) seedZone(t *testing.T) model.Zone {
	t.Helper()
	last := e.now.Add(-5 * time.Second)
	return e.zones.put(model.Zone{
		UserID: 3,
		Name:   "Orto",
		Type:   model.EnvOutdoor,
		Sensors: model.SensorSnapshot{
			SoilMoisture: model.Float64Ptr(40),
			TankLevel:    model.Float64Ptr(50),
			WaterLevel:   model.Float64Ptr(50),
		},
		Status: model.StatusDocument{
			Pump:          model.PumpOff,
			Connection:    model.ConnOnline,
			LastUpdate:    &last,
			HasSensorData: true,
		},
		Config: model.ConfigDocument{
			AutoMode:          true,
			MoistureThreshold: 30,
			WateringDuration:  10,
		},
	})
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestSensorDataUnknownZone(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/iot/sensor-data", map[string]any{
		"zoneId":  99,
		"sensors": map[string]any{"temperature": 21.5},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Zone not found", body["error"])
	assert.Equal(t, true, body["pairingRequired"])
}

func TestSensorDataMergesAndAnswersCommands(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)

	rec, body := e.do(t, http.MethodPost, "/api/iot/sensor-data", map[string]any{
		"zoneId": z.ID,
		"sensors": map[string]any{
			"temperature": 22.0,
			"waterLevel":  47.0,
			"pumpStatus":  false,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	cmds := body["commands"].(map[string]any)
	assert.Nil(t, cmds["pumpState"])
	assert.Equal(t, true, cmds["autoMode"])
	assert.Equal(t, 30.0, cmds["moistureThreshold"])
	assert.Equal(t, false, cmds["tankLocked"])

	stored, err := e.zones.GetZone(context.Background(), z.ID)
	require.NoError(t, err)
	// carry-forward for omitted fields, alias kept in sync
	assert.Equal(t, 40.0, *stored.Sensors.SoilMoisture)
	assert.Equal(t, 22.0, *stored.Sensors.Temperature)
	assert.Equal(t, 47.0, *stored.Sensors.TankLevel)
	assert.Equal(t, 47.0, *stored.Sensors.WaterLevel)
	assert.Equal(t, model.ConnOnline, stored.Status.Connection)
}

func TestSensorDataTankAlarm(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)

	rec, body := e.do(t, http.MethodPost, "/api/iot/sensor-data", map[string]any{
		"zoneId": z.ID,
		"sensors": map[string]any{
			"tankLevel":  4.0,
			"pumpStatus": true,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	cmds := body["commands"].(map[string]any)
	assert.Equal(t, true, cmds["tankLocked"])

	stored, err := e.zones.GetZone(context.Background(), z.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PumpLocked, stored.Status.Pump)

	alarms := e.events.byType(model.EventTankAlarm)
	require.Len(t, alarms, 1)
	assert.Equal(t, z.ID, alarms[0].ZoneID)
}

func TestManualPumpDeliveredOnce(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)

	rec, body := e.do(t, http.MethodPost, "/api/zones/1/pump", map[string]any{"action": "on"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ON", body["pump"])
	assert.Equal(t, true, body["pending"])
	require.Len(t, e.events.byType(model.EventManualWateringStarted), 1)

	// first poll delivers the queued command
	rec, body = e.do(t, http.MethodPost, "/api/iot/sensor-data", map[string]any{
		"zoneId":  z.ID,
		"sensors": map[string]any{"temperature": 21.0},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cmds := body["commands"].(map[string]any)
	assert.Equal(t, true, cmds["pumpState"])

	// second poll: slot already consumed
	rec, body = e.do(t, http.MethodPost, "/api/iot/sensor-data", map[string]any{
		"zoneId":  z.ID,
		"sensors": map[string]any{"temperature": 21.1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cmds = body["commands"].(map[string]any)
	assert.Nil(t, cmds["pumpState"])
}

func TestManualPumpRejectedWhileLocked(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)
	z.Sensors.TankLevel = model.Float64Ptr(3)
	z.Sensors.WaterLevel = model.Float64Ptr(3)
	z.Status.Pump = model.PumpLocked
	e.zones.put(z)

	rec, body := e.do(t, http.MethodPost, "/api/zones/1/pump", map[string]any{"action": "ON"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Pump locked: tank empty", body["error"])
	assert.Equal(t, 3.0, body["tankLevel"])

	// rejection leaves no trace: no slot, no event
	stored, err := e.zones.GetZone(context.Background(), z.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Status.ManualPumpCommand)
	assert.Equal(t, 0, e.events.count())
}

func TestCommandsPollConsumesSlot(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)
	z.Status.ManualPumpCommand = model.BoolPtr(true)
	e.zones.put(z)

	rec, body := e.do(t, http.MethodGet, "/api/iot/commands/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["pumpState"])
	assert.Equal(t, "OFF", body["currentPumpStatus"])

	rec, body = e.do(t, http.MethodGet, "/api/iot/commands/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["pumpState"])
}

func TestHeartbeatAndConnectionStatus(t *testing.T) {
	e := newTestEnv(t)
	z := e.seedZone(t)

	rec, body := e.do(t, http.MethodPost, "/api/iot/heartbeat/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, body = e.do(t, http.MethodGet, "/api/iot/connection-status/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, 0.0, body["secondsSinceLastUpdate"])

	// 45s of silence flips the zone offline, persistently
	e.now = e.now.Add(45 * time.Second)
	rec, body = e.do(t, http.MethodGet, "/api/iot/connection-status/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["connected"])

	stored, err := e.zones.GetZone(context.Background(), z.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConnOffline, stored.Status.Connection)
}

func TestRecorderFailureDoesNotFailRequest(t *testing.T) {
	e := newTestEnv(t)
	e.seedZone(t)
	e.events.failInsert = true

	rec, body := e.do(t, http.MethodPost, "/api/zones/1/pump", map[string]any{"action": "ON"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
}

func TestIoTHealth(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodGet, "/api/iot/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Agromind IoT", body["server"])
}
