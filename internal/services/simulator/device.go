// Package simulator runs virtual zone devices against the backend: each
// device keeps plausible sensor physics, pushes a reading every tick and
// obeys the commands the poll response hands back.
package simulator

import (
	"math/rand"
	"time"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/internal/reconcile"
)

// Seed defaults for a zone that has never reported.
const (
	seedTemperature  = 22.0
	seedHumidity     = 50.0
	seedLight        = 50.0
	seedSoilMoisture = 40.0
	seedTankLevel    = 100.0
)

// DeviceState is the internal state of one simulated device. Not
// goroutine-safe: each run loop owns its state.
type DeviceState struct {
	Temperature  float64
	Humidity     float64
	LightLevel   float64
	SoilMoisture float64
	TankLevel    float64

	PumpOn bool
	Locked bool

	AutoMode          bool
	MoistureThreshold float64
}

// SeedFromZone initializes the device from the server-side zone record,
// falling back to plausible defaults where the zone has no readings yet.
func SeedFromZone(z model.Zone) DeviceState {
	d := DeviceState{
		Temperature:       seedTemperature,
		Humidity:          seedHumidity,
		LightLevel:        seedLight,
		SoilMoisture:      seedSoilMoisture,
		TankLevel:         seedTankLevel,
		AutoMode:          z.Config.AutoMode,
		MoistureThreshold: z.Config.EffectiveThreshold(),
	}
	if z.Sensors.Temperature != nil {
		d.Temperature = *z.Sensors.Temperature
	}
	if z.Sensors.Humidity != nil {
		d.Humidity = *z.Sensors.Humidity
	}
	if z.Sensors.LightLevel != nil {
		d.LightLevel = *z.Sensors.LightLevel
	}
	if z.Sensors.SoilMoisture != nil {
		d.SoilMoisture = *z.Sensors.SoilMoisture
	}
	if z.Sensors.TankLevel != nil {
		d.TankLevel = *z.Sensors.TankLevel
	}
	d.PumpOn = z.Status.Pump == model.PumpOn
	d.Locked = z.Status.Pump == model.PumpLocked || d.TankLevel <= reconcile.TankLockLevel
	if d.Locked {
		d.PumpOn = false
	}
	return d
}

// Step advances the physics by one tick. rng and now are injected so the
// evolution is deterministic under test.
func (d *DeviceState) Step(rng *rand.Rand, now time.Time) {
	d.Temperature = clamp(d.Temperature+(rng.Float64()-0.5)*0.5, 15, 40)
	d.Humidity = clamp(d.Humidity+(rng.Float64()-0.5)*2, 20, 100)

	// luce: sale di giorno, scende di notte
	if h := now.Hour(); h >= 6 && h <= 18 {
		d.LightLevel = clamp(d.LightLevel+rng.Float64()*5, 0, 100)
	} else {
		d.LightLevel = clamp(d.LightLevel-rng.Float64()*5, 0, 100)
	}

	if d.PumpOn && !d.Locked {
		d.SoilMoisture = clamp(d.SoilMoisture+3, 0, 100)
		d.TankLevel = clamp(d.TankLevel-0.8, 0, 100)
	} else {
		d.SoilMoisture = clamp(d.SoilMoisture-0.2, 0, 100)
	}

	// tank safety first: the firmware never runs the pump dry
	if d.TankLevel <= reconcile.TankLockLevel {
		d.Locked = true
		d.PumpOn = false
	} else if d.Locked && d.TankLevel > reconcile.TankRecoverLevel {
		d.Locked = false
		d.PumpOn = false // restart only by command or auto rule
	}

	if d.AutoMode && !d.Locked {
		threshold := d.MoistureThreshold
		if threshold <= 0 {
			threshold = model.DefaultMoistureThreshold
		}
		switch {
		case !d.PumpOn && d.SoilMoisture < threshold:
			d.PumpOn = true
		case d.PumpOn && d.SoilMoisture > threshold+reconcile.HysteresisBand:
			d.PumpOn = false
		}
	}
}

// Apply obeys the command block from the poll response. A pump-ON while
// the tank lock is engaged is ignored.
func (d *DeviceState) Apply(cmd model.DeviceCommand) {
	d.AutoMode = cmd.AutoMode
	d.MoistureThreshold = cmd.MoistureThreshold
	if cmd.TankLocked {
		d.Locked = true
		d.PumpOn = false
	}
	if cmd.PumpState == nil {
		return
	}
	if *cmd.PumpState && d.Locked {
		return
	}
	d.PumpOn = *cmd.PumpState
}

// Reading builds the full sensor report for this tick.
func (d *DeviceState) Reading() model.SensorUpdate {
	return model.SensorUpdate{
		Temperature:  model.Float64Ptr(round1(d.Temperature)),
		Humidity:     model.Float64Ptr(round1(d.Humidity)),
		LightLevel:   model.Float64Ptr(round1(d.LightLevel)),
		SoilMoisture: model.Float64Ptr(round1(d.SoilMoisture)),
		WaterLevel:   model.Float64Ptr(round1(d.TankLevel)),
		PumpStatus:   model.BoolPtr(d.PumpOn),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
