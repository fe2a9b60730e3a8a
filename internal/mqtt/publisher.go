package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"interop-dashboard/internal/model"
)

// ActuatorTopic is where door commands for site are published.
func ActuatorTopic(site string) string {
	return "interop/" + site + "/atuador"
}

// Publisher writes actuator commands as retained messages, so a device that
// reconnects picks up the last requested state.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher returns a publisher for the site's actuator topic. site must be set.
func NewPublisher(client mqtt.Client, site string) (*Publisher, error) {
	if site == "" {
		return nil, errors.New("mqtt publisher: site is required")
	}
	return &Publisher{client: client, topic: ActuatorTopic(site)}, nil
}

// SetActuator publishes {"estado": open}.
func (p *Publisher) SetActuator(ctx context.Context, open bool) error {
	payload, err := json.Marshal(model.ActuatorCommand{Estado: open})
	if err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	token := p.client.Publish(p.topic, QoS, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	return nil
}
