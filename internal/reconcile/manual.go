package reconcile

import (
	"fmt"
	"time"

	"github.com/agromind/agromind-backend/internal/model"
)

// LockedError rejects a manual "on" while the pump is safety-locked.
// TankLevel is surfaced so the operator app can display it.
type LockedError struct {
	TankLevel *float64
}

func (e *LockedError) Error() string { return "pump locked: tank empty" }

// TankEmptyError rejects a manual "on" while the tank is at or below the
// lock level, even if the status document has not caught up yet.
type TankEmptyError struct {
	TankLevel *float64
}

func (e *TankEmptyError) Error() string { return "tank level too low" }

// ManualResult is the outcome of an operator pump command.
type ManualResult struct {
	Status model.StatusDocument
	Events []model.Event
}

// ApplyManualCommand validates an operator instruction against the current
// zone state and writes it into the command slot. The slot is one-deep and
// overwrite-biased: l'ultima intenzione dell'operatore vince. The command
// is only queued here; the device confirms implicitly on its next poll.
func ApplyManualCommand(zone model.Zone, on bool, now time.Time) (ManualResult, error) {
	if on && zone.Status.Pump == model.PumpLocked {
		return ManualResult{}, &LockedError{TankLevel: cloneFloat(zone.Sensors.TankLevel)}
	}
	// lo status può essere in ritardo rispetto all'ultima lettura serbatoio
	if on && zone.Sensors.TankLevel != nil && *zone.Sensors.TankLevel <= TankLockLevel {
		return ManualResult{}, &TankEmptyError{TankLevel: cloneFloat(zone.Sensors.TankLevel)}
	}

	status := zone.Status
	status.ManualPumpCommand = model.BoolPtr(on)
	if !on && zone.Status.Pump == model.PumpOn {
		status.LastWatered = timePtr(now)
	}

	meta := map[string]any{"requested": on, "pending": true}
	if zone.Sensors.TankLevel != nil {
		meta["tankLevel"] = *zone.Sensors.TankLevel
	}
	typ := model.EventManualWateringStarted
	desc := "Manual pump on requested"
	if !on {
		typ = model.EventManualWateringEnded
		desc = "Manual pump off requested"
	}

	return ManualResult{
		Status: status,
		Events: []model.Event{model.NewEvent(zone, typ, desc, meta, now)},
	}, nil
}

// DiffConfig emits one CONFIG_CHANGE event per policy field that changed,
// with old/new values in the metadata. Passthrough weather flags are not
// audited: the control loop never interprets them.
func DiffConfig(zone model.Zone, old, next model.ConfigDocument, now time.Time) []model.Event {
	var events []model.Event

	add := func(field string, oldV, newV any) {
		events = append(events, model.NewEvent(zone, model.EventConfigChange,
			fmt.Sprintf("Config changed: %s", field),
			map[string]any{"field": field, "old": oldV, "new": newV}, now))
	}

	if old.AutoMode != next.AutoMode {
		add("autoMode", old.AutoMode, next.AutoMode)
	}
	if old.MoistureThreshold != next.MoistureThreshold {
		add("moistureThreshold", old.MoistureThreshold, next.MoistureThreshold)
	}
	if old.WateringDuration != next.WateringDuration {
		add("wateringDuration", old.WateringDuration, next.WateringDuration)
	}
	return events
}
