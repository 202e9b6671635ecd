package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/store"
)

type eventView struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	ZoneID      int64          `json:"zoneId"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ListEvents handles GET /api/events/{userId} with optional
// limit/offset/zoneId/type query filters.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	q := r.URL.Query()
	filter := store.EventFilter{
		Type:   q.Get("type"),
		Limit:  queryInt(q.Get("limit"), 50),
		Offset: queryInt(q.Get("offset"), 0),
	}
	if raw := q.Get("zoneId"); raw != "" {
		if zid, err := strconv.ParseInt(raw, 10, 64); err == nil && zid > 0 {
			filter.ZoneID = &zid
		}
	}

	events, err := h.events.ListEvents(r.Context(), userID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			ID:          e.ID,
			Type:        e.Type,
			Description: e.Description,
			Timestamp:   e.CreatedAt,
			ZoneID:      e.ZoneID,
			Metadata:    e.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createEventRequest struct {
	UserID      int64          `json:"userId"`
	ZoneID      int64          `json:"zoneId"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// CreateEvent handles POST /api/events: collaborators (email service,
// scheduler) append their own audit rows through this.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.UserID <= 0 || req.ZoneID <= 0 || req.Type == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	created, err := h.events.InsertEvent(r.Context(), model.Event{
		UserID:      req.UserID,
		ZoneID:      req.ZoneID,
		Type:        req.Type,
		Description: req.Description,
		Metadata:    req.Metadata,
		CreatedAt:   h.now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, eventView{
		ID:          created.ID,
		Type:        created.Type,
		Description: created.Description,
		Timestamp:   created.CreatedAt,
		ZoneID:      created.ZoneID,
		Metadata:    created.Metadata,
	})
}

// DeleteEvents handles DELETE /api/events/{userId}?olderThan=days: clears
// a user's history, optionally only entries older than N days.
func (h *Handlers) DeleteEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var (
		deleted int64
		err     error
	)
	if raw := r.URL.Query().Get("olderThan"); raw != "" {
		days := queryInt(raw, 0)
		if days <= 0 {
			writeError(w, http.StatusBadRequest, "olderThan must be a positive number of days")
			return
		}
		cutoff := h.now().AddDate(0, 0, -days)
		deleted, err = h.events.DeleteEventsBefore(r.Context(), &userID, cutoff)
	} else {
		deleted, err = h.events.DeleteEventsForUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
