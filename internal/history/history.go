// Package history mirrors every accepted sensor report into InfluxDB as a
// time series, so dashboards and statistics collaborators can query it.
// Writes are best-effort and never block the poll path outcome.
package history

import (
	"context"
	"log"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sony/gobreaker"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/pkg/metrics"
)

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Writer wraps the blocking write API in a circuit breaker: quando Influx
// è giù smettiamo di insistere a ogni poll.
type Writer struct {
	writeAPI    api.WriteAPIBlocking
	breaker     *gobreaker.CircuitBreaker
	measurement string
}

// NewWriter returns nil when the config is incomplete: the history mirror
// is optional and a nil *Writer is a safe no-op.
func NewWriter(cfg Config) *Writer {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "zone_sensors"
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "influx-history",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	return &Writer{
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		breaker:     cb,
		measurement: measurement,
	}
}

// WriteReading records the merged snapshot of a zone after a device report.
func (w *Writer) WriteReading(ctx context.Context, zone model.Zone, at time.Time) {
	if w == nil {
		return
	}

	tags := map[string]string{
		"zone_id": strconv.FormatInt(zone.ID, 10),
		"user_id": strconv.FormatInt(zone.UserID, 10),
	}
	fields := map[string]interface{}{
		"pump": string(zone.Status.Pump),
	}
	addField(fields, "soil_moisture", zone.Sensors.SoilMoisture)
	addField(fields, "temperature", zone.Sensors.Temperature)
	addField(fields, "humidity", zone.Sensors.Humidity)
	addField(fields, "light_level", zone.Sensors.LightLevel)
	addField(fields, "tank_level", zone.Sensors.TankLevel)

	point := influxdb2.NewPoint(w.measurement, tags, fields, at)

	_, err := w.breaker.Execute(func() (any, error) {
		wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return nil, w.writeAPI.WritePoint(wctx, point)
	})
	if err != nil {
		metrics.HistoryWriteFailures.Inc()
		log.Printf("history: write zone=%d failed: %v", zone.ID, err)
	}
}

func addField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
