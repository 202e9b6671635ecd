package rabbitmq

import (
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher defines the methods used to fan events out to the broker.
type IPublisher interface {
	TopicFor(zoneID string) string
	PublishTo(topic string, qos byte, retained bool, message string) error
	Close()
}

// Publisher pubblica su topic per-zona derivati da un template.
type Publisher struct {
	client    mqtt.Client
	topicTmpl string // es. "event/zone/{zone}"
}

// NewPublisher creates a Publisher over the shared MQTT client.
func NewPublisher(client mqtt.Client, topicTmpl string) *Publisher {
	return &Publisher{client: client, topicTmpl: topicTmpl}
}

// TopicFor expands the topic template for a zone id.
func (p *Publisher) TopicFor(zoneID string) string {
	return strings.ReplaceAll(p.topicTmpl, "{zone}", zoneID)
}

// PublishTo publishes a message to the given topic.
func (p *Publisher) PublishTo(topic string, qos byte, retained bool, message string) error {
	token := p.client.Publish(topic, qos, retained, message)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}
	return nil
}

// Close gracefully closes the MQTT connection for the publisher.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
