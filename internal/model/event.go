package model

import "time"

// Event types recorded by the control loop.
const (
	EventAutoWateringStarted   = "AUTO_WATERING_STARTED"
	EventAutoWateringEnded     = "AUTO_WATERING_ENDED"
	EventManualWateringStarted = "MANUAL_WATERING_STARTED"
	EventManualWateringEnded   = "MANUAL_WATERING_ENDED"
	EventTankAlarm             = "TANK_ALARM"
	EventTankRecovered         = "TANK_RECOVERED"
	EventConfigChange          = "CONFIG_CHANGE"
	EventZoneCreated           = "ZONE_CREATED"
)

// Event is one immutable audit row. Append-only: mai aggiornato, cancellato
// solo dalla retention per età.
type Event struct {
	ID          string         `json:"id"`
	UserID      int64          `json:"userId"`
	ZoneID      int64          `json:"zoneId"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"timestamp"`
}

// NewEvent builds an event for a zone. The store assigns the ID.
func NewEvent(zone Zone, typ, description string, metadata map[string]any, at time.Time) Event {
	return Event{
		UserID:      zone.UserID,
		ZoneID:      zone.ID,
		Type:        typ,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   at.UTC(),
	}
}
