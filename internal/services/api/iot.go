package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/reconcile"
	"github.com/agromind/agromind-backend/pkg/metrics"
)

type sensorDataRequest struct {
	ZoneID  int64               `json:"zoneId"`
	Sensors *model.SensorUpdate `json:"sensors"`
}

// SensorData handles POST /api/iot/sensor-data: the device pushes its
// readings and pulls the next command in one round trip.
func (h *Handlers) SensorData(w http.ResponseWriter, r *http.Request) {
	var req sensorDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ZoneID <= 0 || req.Sensors == nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	now := h.now()
	var res reconcile.ReportResult
	zone, err := h.updateZone(r.Context(), req.ZoneID, func(z *model.Zone) error {
		res = reconcile.ApplyDeviceReport(*z, *req.Sensors, now)
		z.Sensors = res.Sensors
		z.Status = res.Status
		return nil
	})
	if err != nil {
		writeZoneError(w, err, true)
		return
	}

	metrics.DeviceReports.Inc()
	if res.CommandDelivered {
		metrics.CommandsDelivered.Inc()
	}
	h.recorder.Record(r.Context(), res.Events...)
	h.history.WriteReading(r.Context(), zone, now)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"commands": res.Command,
	})
}

// Commands handles GET /api/iot/commands/{zoneId}: a commands-only poll,
// no sensor report attached.
func (h *Handlers) Commands(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "zoneId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	zone, err := h.zones.GetZone(r.Context(), id)
	if err != nil {
		writeZoneError(w, err, true)
		return
	}

	res := reconcile.BuildCommands(zone)
	if res.CommandDelivered {
		// consume the slot atomically against concurrent writers
		_, err = h.updateZone(r.Context(), id, func(z *model.Zone) error {
			res = reconcile.BuildCommands(*z)
			z.Status = res.Status
			return nil
		})
		if err != nil {
			writeZoneError(w, err, true)
			return
		}
		if res.CommandDelivered {
			metrics.CommandsDelivered.Inc()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zoneId":            id,
		"pumpState":         res.Command.PumpState,
		"autoMode":          res.Command.AutoMode,
		"moistureThreshold": res.Command.MoistureThreshold,
		"wateringDuration":  res.Command.WateringDuration,
		"tankLocked":        res.Command.TankLocked,
		"currentPumpStatus": res.CurrentPump,
	})
}

// Heartbeat handles POST /api/iot/heartbeat/{zoneId}: marks the zone
// online without sensor data.
func (h *Handlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "zoneId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	now := h.now()
	_, err := h.updateZone(r.Context(), id, func(z *model.Zone) error {
		z.Status = reconcile.ApplyHeartbeat(z.Status, now)
		return nil
	})
	if err != nil {
		writeZoneError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ConnectionStatus handles GET /api/iot/connection-status/{zoneId}.
// Reading the status lazily flips a stale zone to OFFLINE.
func (h *Handlers) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "zoneId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	now := h.now()
	zone, err := h.zones.GetZone(r.Context(), id)
	if err != nil {
		writeZoneError(w, err, true)
		return
	}

	cs, _, changed := reconcile.RefreshConnection(zone.Status, now)
	if changed {
		_, err = h.updateZone(r.Context(), id, func(z *model.Zone) error {
			_, updated, _ := reconcile.RefreshConnection(z.Status, now)
			z.Status = updated
			return nil
		})
		if err != nil {
			writeZoneError(w, err, true)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected":             cs.Connected,
		"lastUpdate":            cs.LastUpdate,
		"secondsSinceLastUpdate": cs.SecondsSinceUpd,
	})
}

// IoTHealth is the reachability probe the firmware calls at boot.
func (h *Handlers) IoTHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"server":    "Agromind IoT",
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
