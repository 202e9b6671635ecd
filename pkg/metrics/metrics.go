package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DeviceReports = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "device_reports_total",
			Help: "Total sensor reports received from devices.",
		},
	)
	ManualCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_commands_total",
			Help: "Total manual pump commands, by outcome.",
		},
		[]string{"result"},
	)
	CommandsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commands_delivered_total",
			Help: "Total pending manual commands handed to a device poll.",
		},
	)
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_recorded_total",
			Help: "Total audit events recorded, by type.",
		},
		[]string{"type"},
	)
	EventRecordFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_record_failures_total",
			Help: "Total audit events that could not be persisted.",
		},
	)
	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Total audit events that could not be fanned out to the broker.",
		},
	)
	HistoryWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "influx_write_failures_total",
			Help: "Total InfluxDB sensor-history write failures.",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		DeviceReports,
		ManualCommands,
		CommandsDelivered,
		EventsRecorded,
		EventRecordFailures,
		EventPublishFailures,
		HistoryWriteFailures,
	)
}

// Handler exposes the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
