// Package telemetry publishes connection-lifecycle events onto an MQTT
// topic for external observability.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/lobbywire/lobbywire/internal/config"
	"github.com/lobbywire/lobbywire/internal/events"
)

// MQTTHandler manages the MQTT connection and publishes connection
// lifecycle and health events, adapted from the teacher's MQTTHandler.
type MQTTHandler struct {
	mu sync.Mutex

	cfg      config.MQTTConfig
	eventBus *events.EventBus
	client   mqtt.Client
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler. cfg.Enabled must be
// true.
func NewMQTTHandler(cfg config.MQTTConfig, eventBus *events.EventBus) (*MQTTHandler, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	hostname, _ := os.Hostname()
	metadata := map[string]interface{}{
		"hostname": hostname,
		"service":  "lobbywire",
	}

	handler := &MQTTHandler{
		cfg:      cfg,
		eventBus: eventBus,
		metadata: metadata,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("lobbywire-%s", hostname)
	}
	opts.SetClientID(clientID)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	handler.client = mqtt.NewClient(opts)
	return handler, nil
}

// Start connects to the MQTT broker and subscribes to events, blocking
// until ctx is cancelled.
func (h *MQTTHandler) Start(ctx context.Context) error {
	log.Info().Str("broker", h.cfg.BrokerURL).Msg("connecting to MQTT broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	h.subscribeEvents()

	<-ctx.Done()

	h.publish(h.cfg.Topic, map[string]interface{}{"event": "shutdown"})
	h.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")
	return nil
}

func (h *MQTTHandler) subscribeEvents() {
	h.eventBus.Subscribe(events.EventConnectionAccepted, "mqtt.connectionAccepted", h.onEvent)
	h.eventBus.Subscribe(events.EventHandshakeCompleted, "mqtt.handshakeCompleted", h.onEvent)
	h.eventBus.Subscribe(events.EventHandshakeFailed, "mqtt.handshakeFailed", h.onEvent)
	h.eventBus.Subscribe(events.EventConnectionClosed, "mqtt.connectionClosed", h.onEvent)
	h.eventBus.Subscribe(events.EventConnectionIdleClosed, "mqtt.connectionIdleClosed", h.onEvent)
	h.eventBus.Subscribe(events.EventProtocolViolation, "mqtt.protocolViolation", h.onEvent)
	h.eventBus.Subscribe(events.EventHealthSample, "mqtt.healthSample", h.onEvent)
}

func (h *MQTTHandler) onEvent(ctx context.Context, event events.Event) error {
	h.publish(h.cfg.Topic, map[string]interface{}{
		"event":   string(event.Type),
		"source":  event.Source,
		"payload": event.Payload,
	})
	return nil
}

// publish sends a JSON message to an MQTT topic, merged with handler
// metadata.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	msg := make(map[string]interface{}, len(h.metadata)+2)
	for k, v := range h.metadata {
		msg[k] = v
	}
	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := h.client.Publish(topic, 1, false, data)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}
