package recorder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromind/agromind-backend/internal/model"
)

type fakeStore struct {
	events []model.Event
	fail   bool
}

func (s *fakeStore) InsertEvent(_ context.Context, e model.Event) (model.Event, error) {
	if s.fail {
		return model.Event{}, errors.New("sink down")
	}
	e.ID = "ev-1"
	s.events = append(s.events, e)
	return e, nil
}

type fakePublisher struct {
	topics   []string
	messages []string
	err      error
}

func (p *fakePublisher) TopicFor(zoneID string) string {
	return strings.ReplaceAll("event/zone/{zone}", "{zone}", zoneID)
}

func (p *fakePublisher) PublishTo(topic string, _ byte, _ bool, message string) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakePublisher) Close() {}

func testEvent() model.Event {
	return model.Event{
		UserID:      3,
		ZoneID:      7,
		Type:        model.EventTankAlarm,
		Description: "Tank empty",
		CreatedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordPersistsAndPublishesOnZoneTopic(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}

	New(store, pub).Record(context.Background(), testEvent())

	require.Len(t, store.events, 1)
	require.Len(t, pub.topics, 1)
	assert.Equal(t, "event/zone/7", pub.topics[0])
	assert.Contains(t, pub.messages[0], `"TANK_ALARM"`)
}

func TestRecordWithoutPublisher(t *testing.T) {
	store := &fakeStore{}

	New(store, nil).Record(context.Background(), testEvent())

	require.Len(t, store.events, 1)
}

func TestRecordStoreFailureSkipsPublish(t *testing.T) {
	store := &fakeStore{fail: true}
	pub := &fakePublisher{}

	New(store, pub).Record(context.Background(), testEvent())

	assert.Empty(t, pub.topics)
}

func TestRecordPublishFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}

	New(store, pub).Record(context.Background(), testEvent(), testEvent())

	// both events still persisted
	assert.Len(t, store.events, 2)
}
