package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/models"
)

// Emergency lifecycle events published to subscribers.
const (
	EventRaised   = "raised"
	EventResolved = "resolved"
)

// EmergencyEvent is the payload published for every emergency change.
type EmergencyEvent struct {
	Event      string           `json:"event"`
	Emergency  models.Emergency `json:"emergency"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher fans emergency events out to whoever watches over the driver.
type Publisher interface {
	PublishEmergency(ctx context.Context, ev EmergencyEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEmergency(ctx context.Context, ev EmergencyEvent) error {
	return nil
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher publishes emergency events with QoS 1 to
// <prefix>/<user_id>/<event>.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	timeout     time.Duration
}

const (
	publishQoS     = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "initinere-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqtt.Client, topicPrefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix, timeout: publishTimeout}
}

// Topic returns the topic an event is published on.
func (p *MQTTPublisher) Topic(ev EmergencyEvent) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, ev.Emergency.UserID, ev.Event)
}

func (p *MQTTPublisher) PublishEmergency(ctx context.Context, ev EmergencyEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal emergency event: %w", err)
	}

	token := p.client.Publish(p.Topic(ev), publishQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return errors.New("mqtt publish timed out")
	}
	return token.Error()
}

// Close disconnects from the broker, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
