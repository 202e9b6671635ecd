// Package reconcile holds the pure decision logic that merges device
// reports and operator commands into one authoritative zone record.
// No I/O here: callers persist the results.
package reconcile

import (
	"fmt"
	"time"

	"github.com/agromind/agromind-backend/internal/model"
)

// Safety thresholds, in percent of tank capacity. The device firmware and
// the simulator apply the same values: lock at <= TankLockLevel, leave the
// lock only above TankRecoverLevel (hysteresis, prevents chatter at the
// boundary).
const (
	TankLockLevel    = 5.0
	TankRecoverLevel = 10.0

	// HysteresisBand: auto-mode stops watering only above
	// threshold+HysteresisBand.
	HysteresisBand = 25.0

	// StaleAfter: senza contatto dal device oltre questa finestra la zona
	// è considerata offline.
	StaleAfter = 30 * time.Second
)

// ReportResult is the outcome of one device-report cycle.
type ReportResult struct {
	Sensors model.SensorSnapshot
	Status  model.StatusDocument
	Command model.DeviceCommand
	Events  []model.Event

	// CommandDelivered is true when a pending manual command was consumed
	// by this cycle (cleared from the slot, handed to the device).
	CommandDelivered bool
}

// ApplyDeviceReport merges an incoming (possibly partial) sensor update
// into the zone record, applies the tank safety lock, diffs the pump state
// for audit events and builds the outbound command for the device.
func ApplyDeviceReport(zone model.Zone, in model.SensorUpdate, now time.Time) ReportResult {
	sensors := mergeSensors(zone.Sensors, in)

	// Il comando pendente va catturato prima di ogni altra mutazione:
	// deve sopravvivere al ciclo fino alla consegna.
	pending := cloneBool(zone.Status.ManualPumpCommand)

	prevPump := zone.Status.Pump
	newPump := computePump(prevPump, in.PumpStatus, sensors.TankLevel)

	status := zone.Status
	status.Pump = newPump
	status.Connection = model.ConnOnline
	status.LastUpdate = timePtr(now)
	status.HasSensorData = true
	if pending != nil {
		// at-most-once: consumed the instant it is read back by a poll
		status.ManualPumpCommand = nil
	}

	var events []model.Event
	if newPump != prevPump {
		ev := transitionEvent(zone, prevPump, newPump, sensors, now)
		events = append(events, ev)
		if prevPump == model.PumpOn && newPump == model.PumpOff {
			status.LastWatered = timePtr(now)
		}
	}

	cmd := model.DeviceCommand{
		PumpState:         pending,
		AutoMode:          zone.Config.AutoMode,
		MoistureThreshold: zone.Config.EffectiveThreshold(),
		WateringDuration:  zone.Config.EffectiveDuration(),
		TankLocked:        newPump == model.PumpLocked,
	}

	return ReportResult{
		Sensors:          sensors,
		Status:           status,
		Command:          cmd,
		Events:           events,
		CommandDelivered: pending != nil,
	}
}

// CommandsResult is the outcome of a commands-only poll (GET, no report).
type CommandsResult struct {
	Command          model.DeviceCommand
	CurrentPump      model.PumpState
	Status           model.StatusDocument
	CommandDelivered bool
}

// BuildCommands serves a poll that pulls commands without reporting sensor
// data. It consumes the pending command exactly like the report path but
// leaves sensors and pump state untouched.
func BuildCommands(zone model.Zone) CommandsResult {
	pending := cloneBool(zone.Status.ManualPumpCommand)

	status := zone.Status
	if pending != nil {
		status.ManualPumpCommand = nil
	}

	locked := zone.Sensors.TankLevel != nil && *zone.Sensors.TankLevel <= TankLockLevel

	return CommandsResult{
		Command: model.DeviceCommand{
			PumpState:         pending,
			AutoMode:          zone.Config.AutoMode,
			MoistureThreshold: zone.Config.EffectiveThreshold(),
			WateringDuration:  zone.Config.EffectiveDuration(),
			TankLocked:        locked,
		},
		CurrentPump:      zone.Status.Pump,
		Status:           status,
		CommandDelivered: pending != nil,
	}
}

// ApplyHeartbeat marks the zone online without touching sensor data.
func ApplyHeartbeat(status model.StatusDocument, now time.Time) model.StatusDocument {
	status.Connection = model.ConnOnline
	status.LastUpdate = timePtr(now)
	return status
}

// ConnectionStatus is the derived liveness of a zone device.
type ConnectionStatus struct {
	Connected       bool
	LastUpdate      *time.Time
	SecondsSinceUpd int
}

// RefreshConnection derives online/offline from the last contact timestamp
// (passive staleness check, finestra fissa di 30s). When the zone turned
// stale the returned status has Connection flipped to OFFLINE and changed
// is true, so the caller can lazily persist the flip.
func RefreshConnection(status model.StatusDocument, now time.Time) (ConnectionStatus, model.StatusDocument, bool) {
	cs := ConnectionStatus{LastUpdate: status.LastUpdate}
	if status.LastUpdate == nil {
		cs.SecondsSinceUpd = int(now.Sub(time.Time{}).Seconds())
	} else {
		cs.SecondsSinceUpd = int(now.Sub(*status.LastUpdate).Seconds())
	}
	cs.Connected = status.LastUpdate != nil && now.Sub(*status.LastUpdate) < StaleAfter

	changed := false
	if !cs.Connected && status.Connection != model.ConnOffline {
		status.Connection = model.ConnOffline
		changed = true
	}
	return cs, status, changed
}

// mergeSensors applies per-field last-write-wins over the previous
// snapshot; omitted fields carry forward. Tank/water aliases end up equal:
// waterLevel drives when supplied, otherwise tankLevel drives.
func mergeSensors(prev model.SensorSnapshot, in model.SensorUpdate) model.SensorSnapshot {
	out := model.SensorSnapshot{
		SoilMoisture: cloneFloat(prev.SoilMoisture),
		Temperature:  cloneFloat(prev.Temperature),
		Humidity:     cloneFloat(prev.Humidity),
		LightLevel:   cloneFloat(prev.LightLevel),
		TankLevel:    cloneFloat(prev.TankLevel),
		WaterLevel:   cloneFloat(prev.WaterLevel),
	}
	if in.SoilMoisture != nil {
		out.SoilMoisture = cloneFloat(in.SoilMoisture)
	}
	if in.Temperature != nil {
		out.Temperature = cloneFloat(in.Temperature)
	}
	if in.Humidity != nil {
		out.Humidity = cloneFloat(in.Humidity)
	}
	if in.LightLevel != nil {
		out.LightLevel = cloneFloat(in.LightLevel)
	}

	switch {
	case in.WaterLevel != nil:
		out.WaterLevel = cloneFloat(in.WaterLevel)
		out.TankLevel = cloneFloat(in.WaterLevel)
	case in.TankLevel != nil:
		out.TankLevel = cloneFloat(in.TankLevel)
		out.WaterLevel = cloneFloat(in.TankLevel)
	case out.TankLevel == nil && out.WaterLevel != nil:
		out.TankLevel = cloneFloat(out.WaterLevel)
	case out.WaterLevel == nil && out.TankLevel != nil:
		out.WaterLevel = cloneFloat(out.TankLevel)
	}
	return out
}

// computePump derives the new pump state. The device's self-reported
// pumpStatus is the raw truth (ON/OFF); the tank safety override wins over
// everything. Leaving LOCKED requires the tank back above the recovery
// threshold AND the device reporting a non-locked state.
func computePump(prev model.PumpState, reported *bool, tank *float64) model.PumpState {
	next := prev
	if reported != nil {
		if *reported {
			next = model.PumpOn
		} else {
			next = model.PumpOff
		}
	}

	if tank != nil && *tank <= TankLockLevel {
		return model.PumpLocked
	}
	if prev == model.PumpLocked {
		if tank == nil || *tank <= TankRecoverLevel {
			return model.PumpLocked
		}
		// tank recovered: accept whatever the device reported; without a
		// report the zone stays locked until the next one.
	}
	return next
}

func transitionEvent(zone model.Zone, prev, next model.PumpState, sensors model.SensorSnapshot, now time.Time) model.Event {
	meta := map[string]any{
		"previousPump": string(prev),
		"pump":         string(next),
	}
	if sensors.TankLevel != nil {
		meta["tankLevel"] = *sensors.TankLevel
	}
	if sensors.SoilMoisture != nil {
		meta["soilMoisture"] = *sensors.SoilMoisture
	}

	switch {
	case next == model.PumpLocked:
		return model.NewEvent(zone, model.EventTankAlarm,
			fmt.Sprintf("Pump locked: tank level at or below %.0f%%", TankLockLevel), meta, now)
	case prev == model.PumpLocked:
		return model.NewEvent(zone, model.EventTankRecovered,
			"Tank refilled, pump lock released", meta, now)
	case next == model.PumpOn:
		if zone.Config.AutoMode {
			return model.NewEvent(zone, model.EventAutoWateringStarted, "Automatic watering started", meta, now)
		}
		return model.NewEvent(zone, model.EventManualWateringStarted, "Manual watering started", meta, now)
	default: // ON -> OFF
		meta["duration"] = zone.Config.EffectiveDuration()
		if zone.Config.AutoMode {
			return model.NewEvent(zone, model.EventAutoWateringEnded, "Automatic watering ended", meta, now)
		}
		return model.NewEvent(zone, model.EventManualWateringEnded, "Manual watering ended", meta, now)
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
