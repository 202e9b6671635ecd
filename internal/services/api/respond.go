package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agromind/agromind-backend/internal/reconcile"
	"github.com/agromind/agromind-backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeZoneError maps the error taxonomy onto HTTP. On device endpoints an
// unknown zone additionally signals the pairing-required condition: the
// device should enter re-provisioning instead of retrying forever.
func writeZoneError(w http.ResponseWriter, err error, devicePath bool) {
	var (
		locked *reconcile.LockedError
		empty  *reconcile.TankEmptyError
	)
	switch {
	case errors.Is(err, store.ErrZoneNotFound):
		if devicePath {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":           "Zone not found",
				"pairingRequired": true,
			})
			return
		}
		writeError(w, http.StatusNotFound, "Zone not found")
	case errors.As(err, &locked):
		body := map[string]any{"error": "Pump locked: tank empty"}
		if locked.TankLevel != nil {
			body["tankLevel"] = *locked.TankLevel
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &empty):
		body := map[string]any{"error": "Tank level too low"}
		if empty.TankLevel != nil {
			body["tankLevel"] = *empty.TankLevel
		}
		writeJSON(w, http.StatusBadRequest, body)
	default:
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
