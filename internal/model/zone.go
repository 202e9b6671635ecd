package model

import "time"

// EnvironmentKind classifies where a zone lives.
type EnvironmentKind string

const (
	EnvOutdoor    EnvironmentKind = "Outdoor"
	EnvIndoor     EnvironmentKind = "Indoor"
	EnvGreenhouse EnvironmentKind = "Greenhouse"
)

// PumpState is the pump state as last observed/derived for a zone.
// LOCKED is the safety state when the tank is near empty.
type PumpState string

const (
	PumpOn     PumpState = "ON"
	PumpOff    PumpState = "OFF"
	PumpLocked PumpState = "LOCKED"
)

// ConnectionState is derived from the last device contact (poll-based,
// nessuna sessione persistente col device).
type ConnectionState string

const (
	ConnOnline  ConnectionState = "ONLINE"
	ConnOffline ConnectionState = "OFFLINE"
	ConnUnknown ConnectionState = "UNKNOWN"
)

// Zone is one irrigation-controlled area with exactly one device.
// Sensors/Status/Config are stored as semi-structured documents so their
// shape can evolve independently of the storage schema.
type Zone struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Type      EnvironmentKind `json:"type"`
	Sensors   SensorSnapshot  `json:"sensors"`
	Status    StatusDocument  `json:"status"`
	Config    ConfigDocument  `json:"config"`
	Version   int64           `json:"-"` // store concurrency stamp
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SensorSnapshot holds the last-known readings for a zone. Fields are
// pointers because a zone has no readings until the first device report.
// TankLevel e WaterLevel sono alias storici dello stesso valore e devono
// restare sempre uguali.
type SensorSnapshot struct {
	SoilMoisture *float64 `json:"soilMoisture"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	LightLevel   *float64 `json:"lightLevel"`
	TankLevel    *float64 `json:"tankLevel"`
	WaterLevel   *float64 `json:"waterLevel"`
}

// StatusDocument is the observed machine state of a zone. The device poll
// path owns pump/connection fields; the operator path owns only
// ManualPumpCommand (the one-deep command slot).
type StatusDocument struct {
	Pump          PumpState       `json:"pump"`
	Connection    ConnectionState `json:"connection"`
	LastUpdate    *time.Time      `json:"lastUpdate"`
	HasSensorData bool            `json:"hasSensorData"`
	LastWatered   *time.Time      `json:"lastWatered"`

	// ManualPumpCommand: nil = nessun comando, true = accendi, false = spegni.
	// Overwrite-on-write, consumed by the next device poll.
	ManualPumpCommand *bool `json:"manualPumpCommand,omitempty"`
}

// ConfigDocument is the operator-controlled policy for a zone.
// RespectRainForecast/UseWeatherAPI are passthrough for collaborators;
// the control loop here never interprets them.
type ConfigDocument struct {
	AutoMode            bool    `json:"autoMode"`
	MoistureThreshold   float64 `json:"moistureThreshold"`
	WateringDuration    int     `json:"wateringDuration"`
	RespectRainForecast bool    `json:"respectRainForecast"`
	UseWeatherAPI       bool    `json:"useWeatherApi"`
}

const (
	DefaultMoistureThreshold = 30.0
	DefaultWateringDuration  = 10
)

// EffectiveThreshold returns the moisture threshold with the historical
// fallback applied (un valore zero equivale a "non configurato").
func (c ConfigDocument) EffectiveThreshold() float64 {
	if c.MoistureThreshold <= 0 {
		return DefaultMoistureThreshold
	}
	return c.MoistureThreshold
}

// EffectiveDuration returns the watering duration with the fallback applied.
func (c ConfigDocument) EffectiveDuration() int {
	if c.WateringDuration <= 0 {
		return DefaultWateringDuration
	}
	return c.WateringDuration
}

// DefaultStatus is the status document a freshly created zone starts with.
func DefaultStatus() StatusDocument {
	return StatusDocument{
		Pump:       PumpOff,
		Connection: ConnUnknown,
	}
}

// DefaultConfig is the config document a freshly created zone starts with.
func DefaultConfig() ConfigDocument {
	return ConfigDocument{
		AutoMode:          false,
		MoistureThreshold: DefaultMoistureThreshold,
		WateringDuration:  DefaultWateringDuration,
	}
}

// Float64Ptr is a small helper for building snapshots and updates.
func Float64Ptr(v float64) *float64 { return &v }

// BoolPtr mirrors Float64Ptr for booleans.
func BoolPtr(v bool) *bool { return &v }
