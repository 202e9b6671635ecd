package model

// SensorUpdate is a partial sensor report from a device. Nil fields were
// omitted by the device and keep their previous value (carry-forward).
type SensorUpdate struct {
	Temperature  *float64 `json:"temperature"`
	SoilMoisture *float64 `json:"soilMoisture"`
	WaterLevel   *float64 `json:"waterLevel"`
	TankLevel    *float64 `json:"tankLevel"`
	LightLevel   *float64 `json:"lightLevel"`
	Humidity     *float64 `json:"humidity"`
	PumpStatus   *bool    `json:"pumpStatus"`
}

// DeviceCommand is the outbound instruction handed back to the device on
// every poll. PumpState is nil ("null" on the wire) when no manual command
// is pending: the firmware then decides locally.
type DeviceCommand struct {
	PumpState         *bool   `json:"pumpState"`
	AutoMode          bool    `json:"autoMode"`
	MoistureThreshold float64 `json:"moistureThreshold"`
	WateringDuration  int     `json:"wateringDuration"`
	TankLocked        bool    `json:"tankLocked"`
}
