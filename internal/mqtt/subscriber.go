package mqtt

import (
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"interop-dashboard/internal/model"
)

const (
	TopicSnapshot = "interop/+/snapshot"
	QoS           = 1
)

// TopicToSite extracts the site id from topic "interop/{site}/snapshot".
func TopicToSite(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "interop" || parts[2] != "snapshot" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Subscribe subscribes to interop/+/snapshot and calls onSnapshot with every
// decoded tree. Only messages for site are forwarded; an empty site accepts all.
func Subscribe(client mqtt.Client, site string, logger *slog.Logger, onSnapshot func(model.Snapshot)) error {
	log := logger.With("component", "mqtt")
	token := client.Subscribe(TopicSnapshot, QoS, func(c mqtt.Client, msg mqtt.Message) {
		got, ok := TopicToSite(msg.Topic())
		if !ok {
			log.Warn("invalid topic", "topic", msg.Topic())
			return
		}
		if site != "" && got != site {
			log.Debug("snapshot for other site ignored", "topic", msg.Topic())
			return
		}
		snap, err := model.DecodeSnapshot(msg.Payload())
		if err != nil {
			log.Error("invalid snapshot payload", "topic", msg.Topic(), "err", err)
			return
		}
		onSnapshot(snap)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSnapshot, token.Error())
	}
	log.Info("subscribed", "topic", TopicSnapshot, "qos", QoS, "site", site)
	return nil
}
