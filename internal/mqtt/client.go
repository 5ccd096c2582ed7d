// Package mqtt bridges lighting commands between an MQTT broker and a
// bridge session. Commands arrive on {prefix}/set/{target}, state reports
// go out on {prefix}/status/{target}.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dchest/uniuri"
	pm "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Client wraps the paho connection for the daemon
type Client struct {
	client pm.Client
	prefix string
	qos    byte
}

// NewClient prepares a broker connection. Nothing dials until Connect.
func NewClient(broker, prefix string, qos byte) *Client {
	opts := pm.NewClientOptions().
		AddBroker(broker).
		SetClientID("huectl_" + uniuri.New()).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(pm.Client) {
			log.Info().Str("broker", broker).Msg("Connected to MQTT")
		}).
		SetConnectionLostHandler(func(_ pm.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})
	return &Client{client: pm.NewClient(opts), prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

func (c *Client) setTopic() string {
	return c.prefix + "/set/#"
}

// Connect dials the broker and subscribes the set topic. Each parsed
// command is dispatched to h on its own goroutine; the handler owns any
// serialization it needs.
func (c *Client) Connect(h CommandHandler) error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	prefix := c.prefix + "/set/"
	handler := func(_ pm.Client, msg pm.Message) {
		topic := msg.Topic()
		if !strings.HasPrefix(topic, prefix) {
			return
		}
		target := strings.TrimPrefix(topic, prefix)

		cmd, err := ParseCommand(msg.Payload())
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed command")
			return
		}
		log.Debug().Str("target", target).Stringer("command", cmd).Msg("Command received")

		go func() {
			if err := h.HandleCommand(target, cmd); err != nil {
				log.Error().Err(err).Str("target", target).Msg("Command failed")
			}
		}()
	}

	if token := c.client.Subscribe(c.setTopic(), c.qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", c.setTopic(), token.Error())
	}
	log.Info().Str("topic", c.setTopic()).Msg("Subscribed")
	return nil
}

// Publish reports state for a target as a retained message
func (c *Client) Publish(target string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode status payload: %w", err)
	}
	topic := fmt.Sprintf("%s/status/%s", c.prefix, target)
	if token := c.client.Publish(topic, c.qos, true, data); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

// Disconnect unsubscribes and drops the broker connection
func (c *Client) Disconnect() {
	log.Info().Msg("Disconnecting from MQTT")
	if token := c.client.Unsubscribe(c.setTopic()); token.Wait() && token.Error() != nil {
		log.Warn().Err(token.Error()).Msg("Unsubscribe failed")
	}
	c.client.Disconnect(250)
}
