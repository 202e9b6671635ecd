package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/reconcile"
	"github.com/agromind/agromind-backend/pkg/metrics"
)

// ZoneDetail handles GET /api/zones/detail/{id}.
func (h *Handlers) ZoneDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}
	zone, err := h.zones.GetZone(r.Context(), id)
	if err != nil {
		writeZoneError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// ZonesByUser handles GET /api/zones/{userId}.
func (h *Handlers) ZonesByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	zones, err := h.zones.ListZones(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if zones == nil {
		zones = []model.Zone{}
	}
	writeJSON(w, http.StatusOK, zones)
}

type createZoneRequest struct {
	UserID  int64                 `json:"userId"`
	Name    string                `json:"name"`
	Type    model.EnvironmentKind `json:"type"`
	Sensors *model.SensorSnapshot `json:"sensors"`
	Config  *model.ConfigDocument `json:"config"`
}

// CreateZone handles POST /api/zones. The zone starts with empty sensor
// readings and an UNKNOWN connection until its device shows up.
func (h *Handlers) CreateZone(w http.ResponseWriter, r *http.Request) {
	var req createZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.UserID <= 0 || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "userId and name are required")
		return
	}
	if !validEnvironment(req.Type) {
		writeError(w, http.StatusBadRequest, "Invalid zone type")
		return
	}

	zone := model.Zone{
		UserID: req.UserID,
		Name:   strings.TrimSpace(req.Name),
		Type:   req.Type,
		Status: model.DefaultStatus(),
		Config: model.DefaultConfig(),
	}
	if req.Sensors != nil {
		zone.Sensors = *req.Sensors
	}
	if req.Config != nil {
		zone.Config = *req.Config
	}

	created, err := h.zones.CreateZone(r.Context(), zone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.recorder.Record(r.Context(), model.NewEvent(created, model.EventZoneCreated,
		"Zone "+created.Name+" created", map[string]any{"type": string(created.Type)}, h.now()))

	writeJSON(w, http.StatusCreated, created)
}

type configPatch struct {
	AutoMode            *bool    `json:"autoMode"`
	MoistureThreshold   *float64 `json:"moistureThreshold"`
	WateringDuration    *int     `json:"wateringDuration"`
	RespectRainForecast *bool    `json:"respectRainForecast"`
	UseWeatherAPI       *bool    `json:"useWeatherApi"`
}

type updateZoneRequest struct {
	Name   *string                `json:"name"`
	Type   *model.EnvironmentKind `json:"type"`
	Config *configPatch           `json:"config"`
}

// UpdateZone handles PUT /api/zones/{id}: partial update of name, type and
// config. Config changes are diffed to produce the audit trail.
func (h *Handlers) UpdateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}
	var req updateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Type != nil && !validEnvironment(*req.Type) {
		writeError(w, http.StatusBadRequest, "Invalid zone type")
		return
	}

	now := h.now()
	var events []model.Event
	zone, err := h.updateZone(r.Context(), id, func(z *model.Zone) error {
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			z.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			z.Type = *req.Type
		}
		if req.Config != nil {
			oldCfg := z.Config
			z.Config = applyConfigPatch(z.Config, *req.Config)
			events = reconcile.DiffConfig(*z, oldCfg, z.Config, now)
		}
		return nil
	})
	if err != nil {
		writeZoneError(w, err, false)
		return
	}

	h.recorder.Record(r.Context(), events...)
	writeJSON(w, http.StatusOK, zone)
}

// DeleteZone handles DELETE /api/zones/{id}.
func (h *Handlers) DeleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}
	if err := h.zones.DeleteZone(r.Context(), id); err != nil {
		writeZoneError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Zone deleted"})
}

type pumpRequest struct {
	Action string `json:"action"`
}

// Pump handles POST /api/zones/{id}/pump: the operator's manual command.
// The instruction is queued in the command slot, not applied: only the
// next device poll delivers it, hence "pending" in the response.
func (h *Handlers) Pump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}
	var req pumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action != "ON" && action != "OFF" {
		writeError(w, http.StatusBadRequest, "Action must be ON or OFF")
		return
	}

	now := h.now()
	var res reconcile.ManualResult
	_, err := h.updateZone(r.Context(), id, func(z *model.Zone) error {
		var aerr error
		res, aerr = reconcile.ApplyManualCommand(*z, action == "ON", now)
		if aerr != nil {
			return aerr
		}
		z.Status = res.Status
		return nil
	})
	if err != nil {
		metrics.ManualCommands.WithLabelValues("rejected").Inc()
		writeZoneError(w, err, false)
		return
	}

	metrics.ManualCommands.WithLabelValues("accepted").Inc()
	h.recorder.Record(r.Context(), res.Events...)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"pump":    action,
		"pending": true,
	})
}

func applyConfigPatch(cfg model.ConfigDocument, p configPatch) model.ConfigDocument {
	if p.AutoMode != nil {
		cfg.AutoMode = *p.AutoMode
	}
	if p.MoistureThreshold != nil {
		cfg.MoistureThreshold = *p.MoistureThreshold
	}
	if p.WateringDuration != nil {
		cfg.WateringDuration = *p.WateringDuration
	}
	if p.RespectRainForecast != nil {
		cfg.RespectRainForecast = *p.RespectRainForecast
	}
	if p.UseWeatherAPI != nil {
		cfg.UseWeatherAPI = *p.UseWeatherAPI
	}
	return cfg
}

func validEnvironment(t model.EnvironmentKind) bool {
	switch t {
	case model.EnvOutdoor, model.EnvIndoor, model.EnvGreenhouse:
		return true
	}
	return false
}
