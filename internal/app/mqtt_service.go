package app

import (
	"context"

	"github.com/dokzlo13/huectl/internal/config"
	"github.com/dokzlo13/huectl/internal/mqtt"
)

// MQTTService owns the broker connection and feeds commands into the
// relay.
type MQTTService struct {
	cfg    *config.Config
	client *mqtt.Client
	relay  *mqtt.Relay
}

// NewMQTTService creates a new MQTTService.
func NewMQTTService(cfg *config.Config, relay *mqtt.Relay) *MQTTService {
	client := mqtt.NewClient(cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS)
	relay.SetPublisher(client)
	return &MQTTService{
		cfg:    cfg,
		client: client,
		relay:  relay,
	}
}

// Start connects to the broker and subscribes the command topic.
// Connection drops after this point are retried by the client itself.
func (s *MQTTService) Start(ctx context.Context) error {
	return s.client.Connect(s.relay)
}

// Stop unsubscribes and drops the broker connection.
func (s *MQTTService) Stop() {
	s.client.Disconnect()
}
