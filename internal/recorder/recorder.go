// Package recorder appends audit events. Recording is fire-and-forget:
// a device poll or a manual command must succeed even when the audit trail
// cannot be written.
package recorder

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/agromind/agromind-backend/internal/model"
	"github.com/agromind/agromind-backend/pkg/metrics"
	"github.com/agromind/agromind-backend/pkg/rabbitmq"
)

// Store is the durable sink (the events table).
type Store interface {
	InsertEvent(ctx context.Context, e model.Event) (model.Event, error)
}

// Recorder persists events and optionally fans them out on the broker so
// external collaborators (notification/email service) can subscribe. The
// publisher owns the per-zone topic layout.
type Recorder struct {
	store     Store
	publisher rabbitmq.IPublisher // nil = fan-out disabled
}

func New(store Store, publisher rabbitmq.IPublisher) *Recorder {
	return &Recorder{store: store, publisher: publisher}
}

// Record appends each event, best-effort. Errors are logged and counted,
// mai propagati al chiamante.
func (r *Recorder) Record(ctx context.Context, events ...model.Event) {
	for _, ev := range events {
		stored, err := r.store.InsertEvent(ctx, ev)
		if err != nil {
			metrics.EventRecordFailures.Inc()
			log.Printf("recorder: insert %s for zone %d failed: %v", ev.Type, ev.ZoneID, err)
			continue
		}
		metrics.EventsRecorded.WithLabelValues(stored.Type).Inc()
		log.Printf("recorder: %s zone=%d %s", stored.Type, stored.ZoneID, stored.Description)
		r.publish(stored)
	}
}

func (r *Recorder) publish(ev model.Event) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.EventPublishFailures.Inc()
		return
	}
	topic := r.publisher.TopicFor(strconv.FormatInt(ev.ZoneID, 10))
	if err := r.publisher.PublishTo(topic, 1, false, string(payload)); err != nil {
		metrics.EventPublishFailures.Inc()
		log.Printf("recorder: publish %s to %s failed: %v", ev.Type, topic, err)
	}
}
