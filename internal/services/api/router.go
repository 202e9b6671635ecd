package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agromind/agromind-backend/pkg/metrics"
)

// NewRouter wires every endpoint. Route shapes mirror what the firmware
// and the mobile app already speak.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging)
	r.Use(Recovery)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	iot := r.PathPrefix("/api/iot").Subrouter()
	iot.HandleFunc("/sensor-data", h.SensorData).Methods(http.MethodPost)
	iot.HandleFunc("/commands/{zoneId}", h.Commands).Methods(http.MethodGet)
	iot.HandleFunc("/heartbeat/{zoneId}", h.Heartbeat).Methods(http.MethodPost)
	iot.HandleFunc("/connection-status/{zoneId}", h.ConnectionStatus).Methods(http.MethodGet)
	iot.HandleFunc("/health", h.IoTHealth).Methods(http.MethodGet)

	zones := r.PathPrefix("/api/zones").Subrouter()
	zones.HandleFunc("", h.CreateZone).Methods(http.MethodPost)
	zones.HandleFunc("/detail/{id}", h.ZoneDetail).Methods(http.MethodGet)
	zones.HandleFunc("/{id}/pump", h.Pump).Methods(http.MethodPost)
	zones.HandleFunc("/{id}", h.UpdateZone).Methods(http.MethodPut)
	zones.HandleFunc("/{id}", h.DeleteZone).Methods(http.MethodDelete)
	zones.HandleFunc("/{userId}", h.ZonesByUser).Methods(http.MethodGet)

	events := r.PathPrefix("/api/events").Subrouter()
	events.HandleFunc("", h.CreateEvent).Methods(http.MethodPost)
	events.HandleFunc("/{userId}", h.ListEvents).Methods(http.MethodGet)
	events.HandleFunc("/{userId}", h.DeleteEvents).Methods(http.MethodDelete)

	return r
}
